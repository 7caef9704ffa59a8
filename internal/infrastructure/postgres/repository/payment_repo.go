package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var historyConflictColumns = []clause.Column{{Name: "affiliate_id"}, {Name: "transaction_id"}}

type DefaultPaymentRepository struct {
	db *gorm.DB
}

func NewDefaultPaymentRepository(db *gorm.DB) *DefaultPaymentRepository {
	return &DefaultPaymentRepository{db: db}
}

func (r *DefaultPaymentRepository) CreatePaymentClaimingSales(ctx context.Context, payment *domain.Payment) error {
	saleIDs := uniqueStrings(payment.SaleIDs)
	if len(saleIDs) == 0 {
		return domain.NewValidationError("sale_ids", "at least one sale is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&models.SaleModel{}).
			Where("id IN ? AND commission_status = ? AND refund_status <> ?",
				saleIDs, domain.CommissionUnpaid, domain.RefundFull).
			Updates(map[string]any{
				"commission_status": string(domain.CommissionProcessing),
				"transfer_id":       payment.TransactionID,
				"payment_id":        payment.ID,
				"updated_at":        now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to claim sales: %w", res.Error)
		}
		if res.RowsAffected != int64(len(saleIDs)) {
			return fmt.Errorf("%w: claimed %d of %d sales", domain.ErrConflict, res.RowsAffected, len(saleIDs))
		}

		if err := tx.Create(mappers.ToGORMPayment(payment)).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
}

func (r *DefaultPaymentRepository) GetPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).Preload("Sales").First(&model, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}
		return nil, err
	}
	return mappers.ToDomainPayment(&model), nil
}

// FindReconciliationCandidates returns non-terminal payments created through
// the processor since the given time, oldest first.
func (r *DefaultPaymentRepository) FindReconciliationCandidates(ctx context.Context, method domain.PayoutMethod, since time.Time) ([]*domain.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Sales").
		Where("method = ?", string(method)).
		Where("transaction_id LIKE ? ESCAPE '\\'", likePrefix(domain.TransferIDPrefix)).
		Where("status IN ?", []string{string(domain.PaymentProcessing), string(domain.PaymentPaid)}).
		Where("date >= ?", since).
		Order("date ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, fmt.Errorf("failed to find reconciliation candidates: %w", err)
	}

	payments := make([]*domain.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = mappers.ToDomainPayment(&paymentModels[i])
	}
	return payments, nil
}

// SettlePayment applies a settled transfer. Every statement is guarded by the
// current status, so replays change nothing and the running total moves only
// on the processing -> paid edge.
func (r *DefaultPaymentRepository) SettlePayment(ctx context.Context, cmd domain.SettleCommand) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		paidAt := cmd.PaidAt.UTC()

		res := tx.Model(&models.PaymentModel{}).
			Where("id = ? AND status = ?", cmd.PaymentID, domain.PaymentProcessing).
			Updates(map[string]any{
				"status":     string(domain.PaymentPaid),
				"paid_at":    paidAt,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		result.PaymentAdvanced = res.RowsAffected == 1

		currentStatus := domain.PaymentPaid
		if !result.PaymentAdvanced {
			status, err := paymentStatus(tx, cmd.PaymentID)
			if err != nil {
				return err
			}
			currentStatus = status
		}

		// a reversed payment never flows back into paid sales or history
		if currentStatus == domain.PaymentTransferReversed {
			return nil
		}

		res = tx.Model(&models.SaleModel{}).
			Where("id IN ? AND commission_status IN ?", cmd.SaleIDs,
				[]string{string(domain.CommissionUnpaid), string(domain.CommissionProcessing)}).
			Updates(map[string]any{
				"commission_status": string(domain.CommissionPaid),
				"paid_at":           paidAt,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		result.SalesAdvanced = res.RowsAffected

		entry := models.PaymentHistoryModel{
			AffiliateID:   cmd.AffiliateID,
			TransactionID: cmd.TransferID,
			PaymentID:     cmd.PaymentID,
			Amount:        cmd.Amount,
			Currency:      cmd.Currency,
			Status:        string(domain.PaymentPaid),
			Date:          paidAt,
			PaidAt:        &paidAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		written, err := upsertHistory(tx, &entry, result.PaymentAdvanced,
			[]string{"payment_id", "amount", "currency", "status", "date", "paid_at", "updated_at"})
		if err != nil {
			return err
		}
		result.HistoryWritten = written

		if result.PaymentAdvanced {
			if err := adjustTotal(tx, cmd.AffiliateID, cmd.Amount); err != nil {
				return err
			}
			result.TotalDelta = cmd.Amount
		}
		return nil
	})
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	return result, nil
}

// ReversePayment applies a reversed transfer. Sales are reversed wherever they
// are not already terminal; a previously paid payment gives its amount back
// from the running total exactly once.
func (r *DefaultPaymentRepository) ReversePayment(ctx context.Context, cmd domain.ReverseCommand) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		update := map[string]any{
			"status":     string(domain.PaymentTransferReversed),
			"updated_at": now,
		}

		res := tx.Model(&models.PaymentModel{}).
			Where("id = ? AND status = ?", cmd.PaymentID, domain.PaymentPaid).
			Updates(update)
		if res.Error != nil {
			return res.Error
		}
		wasPaid := res.RowsAffected == 1
		result.PaymentAdvanced = wasPaid

		if !wasPaid {
			res = tx.Model(&models.PaymentModel{}).
				Where("id = ? AND status = ?", cmd.PaymentID, domain.PaymentProcessing).
				Updates(update)
			if res.Error != nil {
				return res.Error
			}
			result.PaymentAdvanced = res.RowsAffected == 1
		}

		if !result.PaymentAdvanced {
			if _, err := paymentStatus(tx, cmd.PaymentID); err != nil {
				return err
			}
		}

		res = tx.Model(&models.SaleModel{}).
			Where("id IN ? AND commission_status NOT IN ?", cmd.SaleIDs, terminalCommissionStatuses).
			Updates(map[string]any{
				"commission_status": string(domain.CommissionReversed),
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		result.SalesAdvanced = res.RowsAffected

		reversedAt := cmd.ReversedAt.UTC()
		entry := models.PaymentHistoryModel{
			AffiliateID:   cmd.AffiliateID,
			TransactionID: cmd.TransferID,
			PaymentID:     cmd.PaymentID,
			Amount:        cmd.Amount,
			Currency:      cmd.Currency,
			Status:        string(domain.PaymentTransferReversed),
			Date:          reversedAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		written, err := upsertHistory(tx, &entry, result.PaymentAdvanced,
			[]string{"payment_id", "amount", "currency", "status", "updated_at"})
		if err != nil {
			return err
		}
		result.HistoryWritten = written

		if wasPaid {
			if err := adjustTotal(tx, cmd.AffiliateID, cmd.Amount.Neg()); err != nil {
				return err
			}
			result.TotalDelta = cmd.Amount.Neg()
		}
		return nil
	})
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	return result, nil
}

func (r *DefaultPaymentRepository) ListPaymentHistory(ctx context.Context, affiliateID string) ([]*domain.PaymentHistoryEntry, error) {
	var entries []models.PaymentHistoryModel
	if err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("date DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	history := make([]*domain.PaymentHistoryEntry, len(entries))
	for i := range entries {
		history[i] = mappers.ToDomainPaymentHistory(&entries[i])
	}
	return history, nil
}

// upsertHistory updates the snapshot row in place when the payment state
// actually moved, and otherwise only inserts it if it is missing.
func upsertHistory(tx *gorm.DB, entry *models.PaymentHistoryModel, advanced bool, columns []string) (bool, error) {
	onConflict := clause.OnConflict{Columns: historyConflictColumns, DoNothing: true}
	if advanced {
		onConflict = clause.OnConflict{Columns: historyConflictColumns, DoUpdates: clause.AssignmentColumns(columns)}
	}
	res := tx.Clauses(onConflict).Create(entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to upsert payment history: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func adjustTotal(tx *gorm.DB, affiliateID string, delta decimal.Decimal) error {
	res := tx.Model(&models.AffiliateModel{}).
		Where("id = ?", affiliateID).
		Update("total_commission", gorm.Expr("total_commission + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to adjust commission total: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "affiliate", ID: affiliateID}
	}
	return nil
}

func paymentStatus(tx *gorm.DB, paymentID string) (domain.PaymentStatus, error) {
	var model models.PaymentModel
	if err := tx.Select("id", "status").First(&model, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}
		return "", err
	}
	return domain.PaymentStatus(model.Status), nil
}

// likePrefix escapes LIKE wildcards in prefix and appends %.
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
