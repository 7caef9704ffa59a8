package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultNotificationRepository struct {
	db *gorm.DB
}

func NewDefaultNotificationRepository(db *gorm.DB) *DefaultNotificationRepository {
	return &DefaultNotificationRepository{db: db}
}

// CreateNotification inserts n unless a notice with the same dedup key exists.
// Notices without a key are always inserted.
func (r *DefaultNotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(notificationDedup).Create(mappers.ToGORMNotification(n))
	if res.Error != nil {
		return false, fmt.Errorf("failed to create notification: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *DefaultNotificationRepository) LatestByTitles(ctx context.Context, affiliateID string, titles []string) (*domain.Notification, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	var model models.NotificationModel
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ? AND title IN ?", affiliateID, titles).
		Order("date DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return mappers.ToDomainNotification(&model), nil
}

func (r *DefaultNotificationRepository) ListNotifications(ctx context.Context, affiliateID string, limit int) ([]*domain.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notificationModels []models.NotificationModel
	if err := query.Find(&notificationModels).Error; err != nil {
		return nil, err
	}

	notifications := make([]*domain.Notification, len(notificationModels))
	for i := range notificationModels {
		notifications[i] = mappers.ToDomainNotification(&notificationModels[i])
	}
	return notifications, nil
}

func (r *DefaultNotificationRepository) MarkRead(ctx context.Context, affiliateID, notificationID string) error {
	res := r.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("id = ? AND affiliate_id = ?", notificationID, affiliateID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "notification", ID: notificationID}
	}
	return nil
}
