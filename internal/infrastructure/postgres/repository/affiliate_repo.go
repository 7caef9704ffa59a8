package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultAffiliateRepository struct {
	db *gorm.DB
}

func NewDefaultAffiliateRepository(db *gorm.DB) *DefaultAffiliateRepository {
	return &DefaultAffiliateRepository{db: db}
}

func (r *DefaultAffiliateRepository) CreateAffiliate(ctx context.Context, affiliate *domain.Affiliate) error {
	return r.db.WithContext(ctx).Create(mappers.ToGORMAffiliate(affiliate)).Error
}

func (r *DefaultAffiliateRepository) GetAffiliateByID(ctx context.Context, affiliateID string) (*domain.Affiliate, error) {
	var model models.AffiliateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", affiliateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "affiliate", ID: affiliateID}
		}
		return nil, err
	}
	return mappers.ToDomainAffiliate(&model), nil
}

func (r *DefaultAffiliateRepository) GetAffiliateByRefID(ctx context.Context, refID string) (*domain.Affiliate, error) {
	var model models.AffiliateModel
	if err := r.db.WithContext(ctx).First(&model, "ref_id = ?", refID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "affiliate", ID: refID}
		}
		return nil, err
	}
	return mappers.ToDomainAffiliate(&model), nil
}

// ListAffiliatesAfter pages through affiliates by id. An empty afterID starts
// from the beginning.
func (r *DefaultAffiliateRepository) ListAffiliatesAfter(ctx context.Context, afterID string, limit int) ([]*domain.Affiliate, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}

	var affiliateModels []models.AffiliateModel
	if err := query.Find(&affiliateModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list affiliates: %w", err)
	}

	affiliates := make([]*domain.Affiliate, len(affiliateModels))
	for i := range affiliateModels {
		affiliates[i] = mappers.ToDomainAffiliate(&affiliateModels[i])
	}
	return affiliates, nil
}

func (r *DefaultAffiliateRepository) SetPayoutAccount(ctx context.Context, affiliateID, accountID string) error {
	res := r.db.WithContext(ctx).Model(&models.AffiliateModel{}).
		Where("id = ?", affiliateID).
		Updates(map[string]any{
			"stripe_account_id": accountID,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "affiliate", ID: affiliateID}
	}
	return nil
}

func (r *DefaultAffiliateRepository) AdvancePayoutAttempt(ctx context.Context, affiliateID string, from int) error {
	res := r.db.WithContext(ctx).Model(&models.AffiliateModel{}).
		Where("id = ? AND payout_attempt = ?", affiliateID, from).
		Updates(map[string]any{
			"payout_attempt": from + 1,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to advance payout attempt: %w", res.Error)
	}
	return nil
}

func (r *DefaultAffiliateRepository) Disconnect(ctx context.Context, affiliateID string, purge domain.NotificationPurge, seed []*domain.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AffiliateModel{}).
			Where("id = ?", affiliateID).
			Updates(map[string]any{
				"stripe_account_id": "",
				"updated_at":        time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &domain.NotFoundError{Entity: "affiliate", ID: affiliateID}
		}

		del := tx.Where("affiliate_id = ?", affiliateID)
		switch {
		case len(purge.Titles) > 0 && purge.Prefix != "":
			del = del.Where("title IN ? OR title LIKE ? ESCAPE '\\'", purge.Titles, likePrefix(purge.Prefix))
		case len(purge.Titles) > 0:
			del = del.Where("title IN ?", purge.Titles)
		case purge.Prefix != "":
			del = del.Where("title LIKE ? ESCAPE '\\'", likePrefix(purge.Prefix))
		default:
			del = nil
		}
		if del != nil {
			if err := del.Delete(&models.NotificationModel{}).Error; err != nil {
				return fmt.Errorf("failed to purge onboarding notices: %w", err)
			}
		}

		for _, n := range seed {
			if err := tx.Clauses(notificationDedup).Create(mappers.ToGORMNotification(n)).Error; err != nil {
				return fmt.Errorf("failed to seed notice: %w", err)
			}
		}
		return nil
	})
}

var notificationDedup = clause.OnConflict{
	Columns:   []clause.Column{{Name: "affiliate_id"}, {Name: "dedup_key"}},
	DoNothing: true,
}
