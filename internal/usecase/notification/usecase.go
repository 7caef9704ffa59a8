package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/jaevor/go-nanoid"
)

type NotificationUsecase interface {
	// Notify appends a notice under the given dedup policy. It reports whether
	// a new row was stored.
	Notify(ctx context.Context, affiliateID, title, text string, policy domain.DedupPolicy, now time.Time) (bool, error)
	// Build returns an unsaved notice with id and dedup key filled in.
	Build(affiliateID, title, text string, policy domain.DedupPolicy, now time.Time) *domain.Notification
	// Publish forwards an already stored notice to the delivery transport.
	Publish(ctx context.Context, n *domain.Notification)
	// Latest returns the newest notice carrying one of titles, or nil.
	Latest(ctx context.Context, affiliateID string, titles ...string) (*domain.Notification, error)
	ListNotifications(ctx context.Context, affiliateID string, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, affiliateID, notificationID string) error
}

type DefaultNotificationUsecase struct {
	notificationRepo domain.NotificationRepository
	publisher        domain.EventPublisher
	metrics          *metrics.CommissionMetrics
	logger           *slog.Logger
	newID            func() string
}

func NewDefaultNotificationUsecase(
	notificationRepo domain.NotificationRepository,
	publisher domain.EventPublisher,
	m *metrics.CommissionMetrics,
	logger *slog.Logger,
) (*DefaultNotificationUsecase, error) {
	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to init notification id generator: %w", err)
	}
	return &DefaultNotificationUsecase{
		notificationRepo: notificationRepo,
		publisher:        publisher,
		metrics:          m,
		logger:           logger,
		newID:            idGenerator,
	}, nil
}

func (uc *DefaultNotificationUsecase) Build(affiliateID, title, text string, policy domain.DedupPolicy, now time.Time) *domain.Notification {
	return &domain.Notification{
		ID:          uc.newID(),
		AffiliateID: affiliateID,
		Title:       title,
		Text:        text,
		Date:        now.UTC(),
		DedupKey:    domain.DedupKeyFor(policy, title, text),
	}
}

func (uc *DefaultNotificationUsecase) Notify(ctx context.Context, affiliateID, title, text string, policy domain.DedupPolicy, now time.Time) (bool, error) {
	if affiliateID == "" {
		return false, domain.NewValidationError("affiliate_id", "required")
	}
	n := uc.Build(affiliateID, title, text, policy, now)

	created, err := uc.notificationRepo.CreateNotification(ctx, n)
	if err != nil {
		return false, err
	}
	uc.metrics.RecordNotification(created)
	if created {
		uc.Publish(ctx, n)
	}
	return created, nil
}

// Delivery is best effort; the stored row stays the source of truth.
func (uc *DefaultNotificationUsecase) Publish(ctx context.Context, n *domain.Notification) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishNotification(ctx, n); err != nil {
		uc.logger.Error("failed to publish notification",
			"affiliate_id", n.AffiliateID, "title", n.Title, "error", err)
	}
}

func (uc *DefaultNotificationUsecase) Latest(ctx context.Context, affiliateID string, titles ...string) (*domain.Notification, error) {
	return uc.notificationRepo.LatestByTitles(ctx, affiliateID, titles)
}

func (uc *DefaultNotificationUsecase) ListNotifications(ctx context.Context, affiliateID string, limit int) ([]*domain.Notification, error) {
	if affiliateID == "" {
		return nil, domain.NewValidationError("affiliate_id", "required")
	}
	return uc.notificationRepo.ListNotifications(ctx, affiliateID, limit)
}

func (uc *DefaultNotificationUsecase) MarkRead(ctx context.Context, affiliateID, notificationID string) error {
	if notificationID == "" {
		return domain.NewValidationError("notification_id", "required")
	}
	return uc.notificationRepo.MarkRead(ctx, affiliateID, notificationID)
}
