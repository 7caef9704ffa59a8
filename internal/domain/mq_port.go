package domain

import (
	"context"
	"time"
)

type PayoutEventType string

const (
	PayoutEventInitiated PayoutEventType = "payout.initiated"
	PayoutEventPaid      PayoutEventType = "payout.paid"
	PayoutEventReversed  PayoutEventType = "payout.reversed"
)

type PayoutEvent struct {
	Type          PayoutEventType
	PaymentID     string
	AffiliateID   string
	TransactionID string
	Amount        string
	Currency      string
	OccurredAt    time.Time
}

// EventPublisher forwards created notices and payout lifecycle events to the
// delivery transport.
type EventPublisher interface {
	PublishNotification(ctx context.Context, n *Notification) error
	PublishPayoutEvent(ctx context.Context, e PayoutEvent) error
}
