package payout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxKeySales bounds the sale list embedded verbatim in an idempotency key.
const maxKeySales = 160

// InitiatePayout pays the recomputed commission of the given sales to the
// affiliate's connected account. The transfer is created first; the payment
// row and the sale claims are written only once a transfer id exists.
func (uc *DefaultPayoutUsecase) InitiatePayout(ctx context.Context, input *InitiatePayoutInput) (*domain.Payment, error) {
	payment, err := uc.initiate(ctx, input)
	if err != nil {
		uc.metrics.RecordPayoutRejected(rejectReason(err))
		return nil, err
	}
	return payment, nil
}

func (uc *DefaultPayoutUsecase) initiate(ctx context.Context, input *InitiatePayoutInput) (*domain.Payment, error) {
	saleIDs, method, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	affiliate, err := uc.affiliateRepo.GetAffiliateByID(ctx, input.AffiliateID)
	if err != nil {
		return nil, err
	}

	state, _, err := uc.onboarding.LiveState(ctx, affiliate)
	if err != nil {
		return nil, err
	}
	if state != domain.OnboardingComplete {
		return nil, fmt.Errorf("%w: onboarding is %s", domain.ErrNotReady, state)
	}

	now := uc.now()
	sales, err := uc.loadPayableSales(ctx, affiliate, saleIDs, state)
	if err != nil {
		return nil, err
	}

	amount, saleAmount, currency := totals(sales)
	if input.RequestedAmount != nil && !input.RequestedAmount.Equal(amount) {
		uc.logger.Warn("requested payout amount ignored",
			"affiliate_id", affiliate.ID, "requested", input.RequestedAmount.String(), "commission", amount.String())
	}

	transfer, err := uc.processor.CreateTransfer(ctx, domain.TransferRequest{
		AccountID:      affiliate.StripeAccountID,
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey(affiliate.ID, saleIDs, affiliate.PayoutAttempt),
		TransferGroup:  "affiliate_" + affiliate.ID,
		Metadata: map[string]string{
			"affiliate_id": affiliate.ID,
			"sale_ids":     strings.Join(saleIDs, ","),
			"sale_amount":  saleAmount.StringFixed(domain.MoneyPlaces),
		},
	})
	if err != nil {
		uc.advanceAttemptIfRejected(ctx, affiliate, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}

	payment := &domain.Payment{
		ID:             uuid.New().String(),
		AffiliateID:    affiliate.ID,
		SaleIDs:        saleIDs,
		SaleAmount:     saleAmount,
		PaidCommission: amount,
		Method:         method,
		TransactionID:  transfer.ID,
		Status:         domain.PaymentProcessing,
		Date:           now,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.paymentRepo.CreatePaymentClaimingSales(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			uc.compensate(ctx, transfer.ID, saleIDs)
		}
		return nil, err
	}

	uc.logger.Info("payout initiated",
		"affiliate_id", affiliate.ID, "payment_id", payment.ID, "transfer_id", transfer.ID,
		"amount", amount.String(), "currency", currency)
	uc.metrics.RecordPayoutInitiated(currency, amount.InexactFloat64())

	text := fmt.Sprintf("A payout of %s %s is on its way (transfer %s).",
		amount.StringFixed(domain.MoneyPlaces), strings.ToUpper(currency), transfer.ID)
	if _, err := uc.notifications.Notify(ctx, affiliate.ID, domain.TitlePayoutInitiated, text, domain.DedupTitleText, now); err != nil {
		uc.logger.Error("failed to store payout notice", "transfer_id", transfer.ID, "error", err)
	}
	uc.publishEvent(ctx, payment)

	return payment, nil
}

func validateInput(input *InitiatePayoutInput) ([]string, domain.PayoutMethod, error) {
	if input == nil {
		return nil, "", domain.NewValidationError("input", "required")
	}
	if input.AffiliateID == "" {
		return nil, "", domain.NewValidationError("affiliate_id", "required")
	}

	seen := make(map[string]struct{}, len(input.SaleIDs))
	saleIDs := make([]string, 0, len(input.SaleIDs))
	for _, id := range input.SaleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, "", domain.NewValidationError("sale_ids", "empty sale id")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		saleIDs = append(saleIDs, id)
	}
	if len(saleIDs) == 0 {
		return nil, "", domain.NewValidationError("sale_ids", "at least one sale is required")
	}

	method := input.Method
	if method == "" {
		method = domain.MethodStripeTransfer
	}
	if method != domain.MethodStripeTransfer {
		return nil, "", domain.NewValidationError("method", "unsupported payout method "+string(method))
	}
	return saleIDs, method, nil
}

func (uc *DefaultPayoutUsecase) loadPayableSales(ctx context.Context, affiliate *domain.Affiliate, saleIDs []string, state domain.OnboardingState) ([]*domain.Sale, error) {
	sales, err := uc.saleRepo.GetSalesByIDs(ctx, saleIDs)
	if err != nil {
		return nil, err
	}

	currency := ""
	for i, sale := range sales {
		if sale.RefID != affiliate.RefID {
			return nil, domain.NewValidationError("sale_ids", fmt.Sprintf("sale %s does not belong to affiliate", sale.ID))
		}
		if sale.CommissionEstablishedAt == nil {
			established, err := uc.ledger.Establish(ctx, sale.ID, uc.now())
			if err != nil {
				return nil, err
			}
			sales[i], sale = established, established
		}

		if !domain.CanPay(sale, state) {
			switch {
			case sale.CommissionStatus != domain.CommissionUnpaid:
				return nil, fmt.Errorf("%w: sale %s is %s", domain.ErrConflict, sale.ID, sale.CommissionStatus)
			case sale.RefundStatus == domain.RefundFull:
				return nil, domain.NewValidationError("sale_ids", fmt.Sprintf("sale %s is fully refunded", sale.ID))
			default:
				return nil, domain.NewValidationError("amount", fmt.Sprintf("sale %s has no commission to pay", sale.ID))
			}
		}

		saleCurrency := strings.ToLower(sale.Currency)
		if currency == "" {
			currency = saleCurrency
		} else if saleCurrency != currency {
			return nil, domain.NewValidationError("sale_ids", "sales span more than one currency")
		}
	}
	return sales, nil
}

func totals(sales []*domain.Sale) (amount, saleAmount decimal.Decimal, currency string) {
	for _, sale := range sales {
		amount = amount.Add(sale.CommissionEarned)
		saleAmount = saleAmount.Add(sale.SaleAmountHint())
		currency = strings.ToLower(sale.Currency)
	}
	return amount, saleAmount, currency
}

// idempotencyKey is stable for the same affiliate, set of sales and attempt,
// so a retried request resolves to the transfer the processor already
// created. Long sale lists are hashed to stay within the processor's limit.
func idempotencyKey(affiliateID string, saleIDs []string, attempt int) string {
	sorted := append([]string(nil), saleIDs...)
	sort.Strings(sorted)
	sales := strings.Join(sorted, ",")
	if len(sales) > maxKeySales {
		sum := sha256.Sum256([]byte(sales))
		sales = hex.EncodeToString(sum[:])
	}
	return fmt.Sprintf("payout:%s:%s:%d", affiliateID, sales, attempt)
}

// advanceAttemptIfRejected moves the affiliate to a fresh idempotency key
// after a definitive rejection. Transport errors and 5xx keep the key, since
// the transfer may exist.
func (uc *DefaultPayoutUsecase) advanceAttemptIfRejected(ctx context.Context, affiliate *domain.Affiliate, err error) {
	var apiErr *domain.ExternalAPIError
	if !errors.As(err, &apiErr) || !apiErr.Rejected() {
		return
	}
	if err := uc.affiliateRepo.AdvancePayoutAttempt(ctx, affiliate.ID, affiliate.PayoutAttempt); err != nil {
		uc.logger.Error("failed to advance payout attempt", "affiliate_id", affiliate.ID, "error", err)
	}
}

// compensate reverses a transfer whose sales were claimed by someone else,
// unless the winning claim is this very transfer.
func (uc *DefaultPayoutUsecase) compensate(ctx context.Context, transferID string, saleIDs []string) {
	sales, err := uc.saleRepo.GetSalesByIDs(ctx, saleIDs)
	if err == nil {
		for _, sale := range sales {
			if sale.TransferID == transferID {
				uc.logger.Info("claim already holds transfer, nothing to reverse", "transfer_id", transferID)
				return
			}
		}
	}

	if err := uc.processor.ReverseTransfer(ctx, transferID, "reverse:"+transferID); err != nil {
		uc.logger.Error("failed to reverse transfer after lost claim", "transfer_id", transferID, "error", err)
		return
	}
	uc.logger.Warn("reversed transfer after lost claim", "transfer_id", transferID)
}

func (uc *DefaultPayoutUsecase) publishEvent(ctx context.Context, payment *domain.Payment) {
	if uc.publisher == nil {
		return
	}
	err := uc.publisher.PublishPayoutEvent(ctx, domain.PayoutEvent{
		Type:          domain.PayoutEventInitiated,
		PaymentID:     payment.ID,
		AffiliateID:   payment.AffiliateID,
		TransactionID: payment.TransactionID,
		Amount:        payment.PaidCommission.StringFixed(domain.MoneyPlaces),
		Currency:      payment.Currency,
		OccurredAt:    payment.Date,
	})
	if err != nil {
		uc.logger.Error("failed to publish payout event", "payment_id", payment.ID, "error", err)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotReady):
		return "not_ready"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrExternalAPI):
		return "processor"
	}
	return "internal"
}
