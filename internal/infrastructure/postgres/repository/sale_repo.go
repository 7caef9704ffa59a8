package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// terminalCommissionStatuses includes the legacy spelling so guards never
// overwrite rows the migration has not rewritten yet.
var terminalCommissionStatuses = []string{string(domain.CommissionReversed), "refunded"}

type DefaultSaleRepository struct {
	db *gorm.DB
}

func NewDefaultSaleRepository(db *gorm.DB) *DefaultSaleRepository {
	return &DefaultSaleRepository{db: db}
}

func (r *DefaultSaleRepository) GetSaleByID(ctx context.Context, saleID string) (*domain.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "sale", ID: saleID}
		}
		return nil, err
	}
	return mappers.ToDomainSale(&model), nil
}

// GetSalesByIDs returns the sales in the order requested.
func (r *DefaultSaleRepository) GetSalesByIDs(ctx context.Context, saleIDs []string) ([]*domain.Sale, error) {
	var saleModels []models.SaleModel
	if err := r.db.WithContext(ctx).Where("id IN ?", saleIDs).Find(&saleModels).Error; err != nil {
		return nil, fmt.Errorf("failed to find sales: %w", err)
	}

	byID := make(map[string]*models.SaleModel, len(saleModels))
	for i := range saleModels {
		byID[saleModels[i].ID] = &saleModels[i]
	}

	sales := make([]*domain.Sale, 0, len(saleIDs))
	for _, id := range saleIDs {
		model, ok := byID[id]
		if !ok {
			return nil, &domain.NotFoundError{Entity: "sale", ID: id}
		}
		sales = append(sales, mappers.ToDomainSale(model))
	}
	return sales, nil
}

func (r *DefaultSaleRepository) FindUnestablished(ctx context.Context, limit int) ([]*domain.Sale, error) {
	var saleModels []models.SaleModel
	if err := r.db.WithContext(ctx).
		Where("commission_established_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&saleModels).Error; err != nil {
		return nil, err
	}

	sales := make([]*domain.Sale, len(saleModels))
	for i := range saleModels {
		sales[i] = mappers.ToDomainSale(&saleModels[i])
	}
	return sales, nil
}

func (r *DefaultSaleRepository) EstablishCommission(ctx context.Context, saleID string, earned decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.SaleModel{}).
		Where("id = ? AND commission_established_at IS NULL", saleID).
		Updates(map[string]any{
			"commission_earned":         earned,
			"commission_established_at": at,
			"updated_at":                time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ApplyRefund records refund once per refund id and folds its amount into the
// sale. A full refund reverses a commission that was never claimed. The sale
// row stays locked until commit so concurrent refunds accumulate in turn.
func (r *DefaultSaleRepository) ApplyRefund(ctx context.Context, saleID string, refund *domain.Refund) (*domain.Sale, bool, error) {
	var applied bool
	var result models.SaleModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale models.SaleModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, "id = ?", saleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "sale", ID: saleID}
			}
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SaleRefundModel{
			RefundID:  refund.ID,
			SaleID:    saleID,
			Amount:    refund.Amount,
			Currency:  refund.Currency,
			CreatedAt: time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			result = sale
			return nil
		}
		applied = true

		current := mappers.ToDomainSale(&sale)
		refunded := current.RefundedAmount.Add(refund.Amount)
		next := domain.NextRefundStatus(current.RefundStatus, refunded, current.NetAmount())
		now := time.Now().UTC()

		if err := tx.Model(&models.SaleModel{}).
			Where("id = ?", saleID).
			Updates(map[string]any{
				"refunded_amount": refunded,
				"refund_status":   string(next),
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}

		if next == domain.RefundFull {
			if err := tx.Model(&models.SaleModel{}).
				Where("id = ? AND commission_status = ?", saleID, domain.CommissionUnpaid).
				Updates(map[string]any{
					"commission_status": string(domain.CommissionReversed),
					"updated_at":        now,
				}).Error; err != nil {
				return err
			}
		}

		return tx.First(&result, "id = ?", saleID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return mappers.ToDomainSale(&result), applied, nil
}

// CreateSale is used by order ingestion fixtures and backfills.
func (r *DefaultSaleRepository) CreateSale(ctx context.Context, sale *domain.Sale) error {
	return r.db.WithContext(ctx).Create(mappers.ToGORMSale(sale)).Error
}
