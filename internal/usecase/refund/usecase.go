package refund

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
	"github.com/shopspring/decimal"
)

type RefundProcessor interface {
	CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.Refund, error)
	RetrieveRefund(ctx context.Context, refundID string) (*domain.Refund, error)
}

type RefundUsecase interface {
	// RecordRefund folds a processor refund into its sale. Refunds that have not
	// succeeded leave the sale untouched.
	RecordRefund(ctx context.Context, saleID, refundID string, now time.Time) (*domain.Sale, error)
	// CreateRefund refunds part or all of the sale's charge. A zero amount
	// refunds whatever is left.
	CreateRefund(ctx context.Context, saleID string, amount decimal.Decimal, reason string, now time.Time) (*domain.Refund, error)
}

type DefaultRefundUsecase struct {
	saleRepo      domain.SaleRepository
	affiliateRepo domain.AffiliateRepository
	processor     RefundProcessor
	notifications notification.NotificationUsecase
	metrics       *metrics.CommissionMetrics
	logger        *slog.Logger
}

func NewDefaultRefundUsecase(
	saleRepo domain.SaleRepository,
	affiliateRepo domain.AffiliateRepository,
	processor RefundProcessor,
	notifications notification.NotificationUsecase,
	m *metrics.CommissionMetrics,
	logger *slog.Logger,
) *DefaultRefundUsecase {
	return &DefaultRefundUsecase{
		saleRepo:      saleRepo,
		affiliateRepo: affiliateRepo,
		processor:     processor,
		notifications: notifications,
		metrics:       m,
		logger:        logger,
	}
}

func (uc *DefaultRefundUsecase) RecordRefund(ctx context.Context, saleID, refundID string, now time.Time) (*domain.Sale, error) {
	if saleID == "" {
		return nil, domain.NewValidationError("sale_id", "required")
	}
	if refundID == "" {
		return nil, domain.NewValidationError("refund_id", "required")
	}
	sale, err := uc.saleRepo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	refund, err := uc.processor.RetrieveRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	return uc.apply(ctx, sale, refund, now)
}

func (uc *DefaultRefundUsecase) CreateRefund(ctx context.Context, saleID string, amount decimal.Decimal, reason string, now time.Time) (*domain.Refund, error) {
	if saleID == "" {
		return nil, domain.NewValidationError("sale_id", "required")
	}
	if amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}
	sale, err := uc.saleRepo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.ChargeID == "" {
		return nil, domain.NewValidationError("sale_id", "sale has no charge to refund")
	}

	remaining := sale.NetAmount().Sub(sale.RefundedAmount)
	if !remaining.IsPositive() || sale.RefundStatus == domain.RefundFull {
		return nil, domain.NewValidationError("amount", "sale is already fully refunded")
	}
	if amount.IsZero() {
		amount = remaining
	}
	if amount.GreaterThan(remaining) {
		return nil, domain.NewValidationError("amount", fmt.Sprintf("exceeds refundable %s", remaining.StringFixed(domain.MoneyPlaces)))
	}

	refund, err := uc.processor.CreateRefund(ctx, domain.RefundRequest{
		ChargeID:       sale.ChargeID,
		Amount:         amount,
		Currency:       sale.Currency,
		IdempotencyKey: fmt.Sprintf("refund:%s:%s:%s", sale.ID, sale.RefundedAmount.StringFixed(domain.MoneyPlaces), amount.StringFixed(domain.MoneyPlaces)),
		Reason:         reason,
	})
	if err != nil {
		return nil, err
	}

	if _, err := uc.apply(ctx, sale, refund, now); err != nil {
		return nil, err
	}
	return refund, nil
}

func (uc *DefaultRefundUsecase) apply(ctx context.Context, sale *domain.Sale, refund *domain.Refund, now time.Time) (*domain.Sale, error) {
	if sale.ChargeID != "" && refund.ChargeID != "" && sale.ChargeID != refund.ChargeID {
		return nil, domain.NewValidationError("refund_id", "refund belongs to a different charge")
	}
	if refund.Currency != "" && !strings.EqualFold(refund.Currency, sale.Currency) {
		return nil, domain.NewValidationError("refund_id", "refund currency does not match sale")
	}
	if refund.State != domain.RefundSucceeded {
		uc.logger.Info("refund not settled yet, sale unchanged", "sale_id", sale.ID, "refund_id", refund.ID, "state", refund.State)
		return sale, nil
	}

	updated, applied, err := uc.saleRepo.ApplyRefund(ctx, sale.ID, refund)
	if err != nil {
		return nil, err
	}
	if !applied {
		return updated, nil
	}
	uc.metrics.RecordRefundApplied(string(updated.RefundStatus))
	uc.logger.Info("refund applied",
		"sale_id", sale.ID, "refund_id", refund.ID, "refund_status", updated.RefundStatus,
		"commission_status", updated.CommissionStatus)

	affiliate, err := uc.affiliateRepo.GetAffiliateByRefID(ctx, updated.RefID)
	if err != nil {
		uc.logger.Error("failed to resolve affiliate for refund notice", "ref_id", updated.RefID, "error", err)
		return updated, nil
	}
	text := fmt.Sprintf("A refund of %s %s was issued on order %s (refund %s).",
		refund.Amount.StringFixed(domain.MoneyPlaces), strings.ToUpper(sale.Currency), updated.OrderID, refund.ID)
	if _, err := uc.notifications.Notify(ctx, affiliate.ID, domain.TitleRefundRecorded, text, domain.DedupTitleText, now); err != nil {
		uc.logger.Error("failed to store refund notice", "refund_id", refund.ID, "error", err)
	}
	return updated, nil
}
