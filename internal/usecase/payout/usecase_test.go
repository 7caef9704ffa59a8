package payout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-commission-service/internal/testutil"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/ledger"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/onboarding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

type env struct {
	db        *gorm.DB
	processor *testutil.FakeProcessor
	publisher *testutil.RecordingPublisher
	payments  *repository.DefaultPaymentRepository
	uc        *DefaultPayoutUsecase
	affiliate *models.AffiliateModel
}

// racingPaymentRepo lets a competing payment claim sales right before ours.
type racingPaymentRepo struct {
	*repository.DefaultPaymentRepository
	beforeClaim func(p *domain.Payment)
}

func (r *racingPaymentRepo) CreatePaymentClaimingSales(ctx context.Context, p *domain.Payment) error {
	if r.beforeClaim != nil {
		r.beforeClaim(p)
	}
	return r.DefaultPaymentRepository.CreatePaymentClaimingSales(ctx, p)
}

func newEnv(t *testing.T, accountReady bool) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	processor := testutil.NewFakeProcessor()
	publisher := &testutil.RecordingPublisher{}
	logger := testutil.DiscardLogger()

	aff := testutil.SeedAffiliate(t, db, "acct_live")
	processor.SetAccount(&domain.ConnectedAccount{ID: "acct_live", PayoutsEnabled: accountReady, DetailsSubmitted: true})

	saleRepo := repository.NewDefaultSaleRepository(db)
	payments := repository.NewDefaultPaymentRepository(db)
	affiliates := repository.NewDefaultAffiliateRepository(db)
	notifications, err := notification.NewDefaultNotificationUsecase(
		repository.NewDefaultNotificationRepository(db), publisher, nil, logger)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	onboardingUc := onboarding.NewDefaultOnboardingUsecase(affiliates, processor, nil, notifications, logger)
	ledgerUc := ledger.NewDefaultLedgerUsecase(saleRepo, logger)

	uc := NewDefaultPayoutUsecase(saleRepo, payments, affiliates, processor, onboardingUc, ledgerUc,
		notifications, publisher, nil, logger)
	uc.now = func() time.Time { return fixedNow }

	return &env{db: db, processor: processor, publisher: publisher, payments: payments, uc: uc, affiliate: aff}
}

func (e *env) sale(t *testing.T, opts ...testutil.SaleOption) string {
	t.Helper()
	return testutil.SeedSale(t, e.db, e.affiliate.RefID, opts...).ID
}

func TestInitiatePayoutPaysRecomputedCommission(t *testing.T) {
	e := newEnv(t, true)
	s1 := e.sale(t, testutil.WithCommission("10.00"))
	s2 := e.sale(t, testutil.WithCommission("2.50"))
	requested := decimal.RequireFromString("999.00")

	payment, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{
		AffiliateID:     e.affiliate.ID,
		SaleIDs:         []string{s1, s2, s1},
		RequestedAmount: &requested,
	})
	if err != nil {
		t.Fatalf("InitiatePayout: %v", err)
	}

	if !payment.PaidCommission.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("paid commission = %s, want 12.50", payment.PaidCommission)
	}
	if payment.Status != domain.PaymentProcessing || payment.Method != domain.MethodStripeTransfer || !payment.Date.Equal(fixedNow) {
		t.Fatalf("payment = %+v", payment)
	}
	if len(payment.SaleIDs) != 2 {
		t.Fatalf("duplicate sale ids kept: %v", payment.SaleIDs)
	}

	if len(e.processor.CreateTransferCalls) != 1 {
		t.Fatalf("transfers created = %d", len(e.processor.CreateTransferCalls))
	}
	req := e.processor.CreateTransferCalls[0]
	if req.AccountID != "acct_live" || req.Currency != "usd" || !req.Amount.Equal(payment.PaidCommission) {
		t.Fatalf("transfer request = %+v", req)
	}
	if !strings.HasPrefix(req.IdempotencyKey, "payout:"+e.affiliate.ID+":") || req.Metadata["sale_amount"] != "200.00" {
		t.Fatalf("transfer key/metadata = %q %v", req.IdempotencyKey, req.Metadata)
	}

	for _, id := range []string{s1, s2} {
		if got := testutil.LoadSale(t, e.db, id); got.CommissionStatus != string(domain.CommissionProcessing) || got.TransferID != payment.TransactionID {
			t.Fatalf("sale %s = %s/%s", id, got.CommissionStatus, got.TransferID)
		}
	}
	if n := testutil.CountNotifications(t, e.db, e.affiliate.ID, domain.TitlePayoutInitiated); n != 1 {
		t.Fatalf("initiated notices = %d", n)
	}
	if types := e.publisher.EventTypes(); len(types) != 1 || types[0] != domain.PayoutEventInitiated {
		t.Fatalf("events = %v", types)
	}
}

func TestInitiatePayoutEstablishesMissingCommission(t *testing.T) {
	e := newEnv(t, true)
	id := e.sale(t)

	payment, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}})
	if err != nil {
		t.Fatalf("InitiatePayout: %v", err)
	}
	if !payment.PaidCommission.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("paid commission = %s, want 10", payment.PaidCommission)
	}
	if got := testutil.LoadSale(t, e.db, id); got.CommissionEstablishedAt == nil {
		t.Fatal("commission was not persisted")
	}
}

func TestInitiatePayoutRequiresCompleteOnboarding(t *testing.T) {
	e := newEnv(t, false)
	id := e.sale(t, testutil.WithCommission("10.00"))

	_, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}})
	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if len(e.processor.CreateTransferCalls) != 0 {
		t.Fatal("transfer created for unready account")
	}
}

func TestInitiatePayoutRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, e *env) *InitiatePayoutInput
		want  error
	}{
		{
			name: "no sales",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID}
			},
			want: domain.ErrValidation,
		},
		{
			name: "manual method",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{e.sale(t)}, Method: domain.MethodManual}
			},
			want: domain.ErrValidation,
		},
		{
			name: "unknown affiliate",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: uuid.NewString(), SaleIDs: []string{e.sale(t)}}
			},
			want: domain.ErrNotFound,
		},
		{
			name: "unknown sale",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{uuid.NewString()}}
			},
			want: domain.ErrNotFound,
		},
		{
			name: "foreign sale",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				foreign := testutil.SeedSale(t, e.db, "someone-else", testutil.WithCommission("10.00"))
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{foreign.ID}}
			},
			want: domain.ErrValidation,
		},
		{
			name: "already processing",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{e.sale(t, testutil.WithCommission("10.00"), testutil.WithStatus("processing"))}}
			},
			want: domain.ErrConflict,
		},
		{
			name: "fully refunded",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				id := e.sale(t, testutil.WithCommission("10.00"), func(s *models.SaleModel) { s.RefundStatus = "full" })
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}}
			},
			want: domain.ErrValidation,
		},
		{
			name: "zero commission",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{e.sale(t, testutil.WithCommission("0.00"))}}
			},
			want: domain.ErrValidation,
		},
		{
			name: "mixed currencies",
			setup: func(t *testing.T, e *env) *InitiatePayoutInput {
				return &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{
					e.sale(t, testutil.WithCommission("1.00")),
					e.sale(t, testutil.WithCommission("1.00"), testutil.WithCurrency("eur")),
				}}
			},
			want: domain.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, true)
			_, err := e.uc.InitiatePayout(context.Background(), tt.setup(t, e))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(e.processor.CreateTransferCalls) != 0 {
				t.Fatal("transfer created for rejected payout")
			}
		})
	}
}

func TestInitiatePayoutTransferFailureLeavesSalesUnpaid(t *testing.T) {
	e := newEnv(t, true)
	id := e.sale(t, testutil.WithCommission("10.00"))
	e.processor.CreateTransferErr = &domain.ExternalAPIError{Op: "create transfer", StatusCode: 400, Code: "balance_insufficient", Err: errors.New("insufficient funds")}

	_, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}})
	if !errors.Is(err, domain.ErrTransferFailed) || !errors.Is(err, domain.ErrExternalAPI) {
		t.Fatalf("err = %v, want transfer failure wrapping the processor error", err)
	}
	if got := testutil.LoadSale(t, e.db, id); got.CommissionStatus != string(domain.CommissionUnpaid) {
		t.Fatalf("sale status = %s", got.CommissionStatus)
	}
}

func TestInitiatePayoutLostClaimReversesTransfer(t *testing.T) {
	e := newEnv(t, true)
	id := e.sale(t, testutil.WithCommission("10.00"))

	racing := &racingPaymentRepo{DefaultPaymentRepository: e.payments}
	racing.beforeClaim = func(p *domain.Payment) {
		rival := *p
		rival.ID = uuid.NewString()
		rival.TransactionID = "tr_rival"
		if err := e.payments.CreatePaymentClaimingSales(context.Background(), &rival); err != nil {
			t.Errorf("rival claim: %v", err)
		}
	}
	e.uc.paymentRepo = racing

	_, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(e.processor.ReverseCalls) != 1 || e.processor.ReverseCalls[0] == "tr_rival" {
		t.Fatalf("reverse calls = %v", e.processor.ReverseCalls)
	}
}

func TestInitiatePayoutLostClaimToSameTransferKeepsIt(t *testing.T) {
	e := newEnv(t, true)
	id := e.sale(t, testutil.WithCommission("10.00"))

	racing := &racingPaymentRepo{DefaultPaymentRepository: e.payments}
	racing.beforeClaim = func(p *domain.Payment) {
		// an identical concurrent request resolved to the same idempotent transfer
		twin := *p
		twin.ID = uuid.NewString()
		if err := e.payments.CreatePaymentClaimingSales(context.Background(), &twin); err != nil {
			t.Errorf("twin claim: %v", err)
		}
	}
	e.uc.paymentRepo = racing

	_, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(e.processor.ReverseCalls) != 0 {
		t.Fatalf("winning transfer was reversed: %v", e.processor.ReverseCalls)
	}
}

func TestIdempotencyKey(t *testing.T) {
	if idempotencyKey("a", []string{"s2", "s1"}, 0) != idempotencyKey("a", []string{"s1", "s2"}, 0) {
		t.Fatal("key depends on sale order")
	}
	if idempotencyKey("a", []string{"s1"}, 0) == idempotencyKey("b", []string{"s1"}, 0) {
		t.Fatal("key ignores affiliate")
	}
	if idempotencyKey("a", []string{"s1"}, 0) == idempotencyKey("a", []string{"s1"}, 1) {
		t.Fatal("key ignores attempt")
	}

	many := make([]string, 40)
	for i := range many {
		many[i] = uuid.NewString()
	}
	if key := idempotencyKey(uuid.NewString(), many, 3); len(key) > 255 {
		t.Fatalf("key length = %d, exceeds processor limit", len(key))
	}
}

func TestInitiatePayoutRetriesAfterDefinitiveRejection(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	id := e.sale(t, testutil.WithCommission("10.00"))
	input := &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}}

	e.processor.CreateTransferErr = &domain.ExternalAPIError{Op: "create transfer", StatusCode: 400, Code: "balance_insufficient", Err: errors.New("insufficient funds")}
	if _, err := e.uc.InitiatePayout(ctx, input); !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("first attempt err = %v", err)
	}
	if got := testutil.LoadAffiliate(t, e.db, e.affiliate.ID); got.PayoutAttempt != 1 {
		t.Fatalf("payout attempt = %d, want 1", got.PayoutAttempt)
	}

	// balance topped up
	e.processor.CreateTransferErr = nil
	payment, err := e.uc.InitiatePayout(ctx, input)
	if err != nil {
		t.Fatalf("retry after rejection: %v", err)
	}
	calls := e.processor.CreateTransferCalls
	if len(calls) != 2 || calls[0].IdempotencyKey == calls[1].IdempotencyKey {
		t.Fatalf("retry reused the rejected key: %+v", calls)
	}
	if payment.TransactionID == "" {
		t.Fatal("retry produced no transfer")
	}
}

func TestInitiatePayoutKeepsKeyAfterTransportError(t *testing.T) {
	e := newEnv(t, true)
	id := e.sale(t, testutil.WithCommission("10.00"))
	e.processor.CreateTransferErr = &domain.ExternalAPIError{Op: "create transfer", Err: errors.New("connection reset")}

	if _, err := e.uc.InitiatePayout(context.Background(), &InitiatePayoutInput{AffiliateID: e.affiliate.ID, SaleIDs: []string{id}}); err == nil {
		t.Fatal("expected transfer failure")
	}
	if got := testutil.LoadAffiliate(t, e.db, e.affiliate.ID); got.PayoutAttempt != 0 {
		t.Fatalf("payout attempt = %d after an ambiguous failure", got.PayoutAttempt)
	}
}

func TestPaymentReads(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	if _, err := e.uc.GetPayment(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty id err = %v", err)
	}
	if _, err := e.uc.GetPayment(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing payment err = %v", err)
	}
	history, err := e.uc.ListPaymentHistory(ctx, e.affiliate.ID)
	if err != nil || len(history) != 0 {
		t.Fatalf("history = %v, %v", history, err)
	}
}
