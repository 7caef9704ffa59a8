package kafka

import "time"

type NotificationEvent struct {
	NotificationID string    `json:"notification_id"`
	AffiliateID    string    `json:"affiliate_id"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	Date           time.Time `json:"date"`
}

type PayoutEvent struct {
	Type          string    `json:"type"`
	PaymentID     string    `json:"payment_id"`
	AffiliateID   string    `json:"affiliate_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}
