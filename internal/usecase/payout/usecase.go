package payout

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/ledger"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/onboarding"
	"github.com/shopspring/decimal"
)

type InitiatePayoutInput struct {
	AffiliateID string
	SaleIDs     []string
	Method      domain.PayoutMethod
	// RequestedAmount is what the caller believes is owed. It is compared
	// against the recomputed commission and never paid out as such.
	RequestedAmount *decimal.Decimal
}

type PayoutUsecase interface {
	InitiatePayout(ctx context.Context, input *InitiatePayoutInput) (*domain.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListPaymentHistory(ctx context.Context, affiliateID string) ([]*domain.PaymentHistoryEntry, error)
}

type DefaultPayoutUsecase struct {
	saleRepo      domain.SaleRepository
	paymentRepo   domain.PaymentRepository
	affiliateRepo domain.AffiliateRepository
	processor     domain.PaymentProcessor
	onboarding    onboarding.OnboardingUsecase
	ledger        ledger.LedgerUsecase
	notifications notification.NotificationUsecase
	publisher     domain.EventPublisher
	metrics       *metrics.CommissionMetrics
	logger        *slog.Logger
	now           func() time.Time
}

func NewDefaultPayoutUsecase(
	saleRepo domain.SaleRepository,
	paymentRepo domain.PaymentRepository,
	affiliateRepo domain.AffiliateRepository,
	processor domain.PaymentProcessor,
	onboardingUc onboarding.OnboardingUsecase,
	ledgerUc ledger.LedgerUsecase,
	notifications notification.NotificationUsecase,
	publisher domain.EventPublisher,
	m *metrics.CommissionMetrics,
	logger *slog.Logger,
) *DefaultPayoutUsecase {
	return &DefaultPayoutUsecase{
		saleRepo:      saleRepo,
		paymentRepo:   paymentRepo,
		affiliateRepo: affiliateRepo,
		processor:     processor,
		onboarding:    onboardingUc,
		ledger:        ledgerUc,
		notifications: notifications,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DefaultPayoutUsecase) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, domain.NewValidationError("payment_id", "required")
	}
	return uc.paymentRepo.GetPaymentByID(ctx, paymentID)
}

func (uc *DefaultPayoutUsecase) ListPaymentHistory(ctx context.Context, affiliateID string) ([]*domain.PaymentHistoryEntry, error) {
	if affiliateID == "" {
		return nil, domain.NewValidationError("affiliate_id", "required")
	}
	return uc.paymentRepo.ListPaymentHistory(ctx, affiliateID)
}
