package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SaleRepository interface {
	GetSaleByID(ctx context.Context, saleID string) (*Sale, error)
	GetSalesByIDs(ctx context.Context, saleIDs []string) ([]*Sale, error)
	FindUnestablished(ctx context.Context, limit int) ([]*Sale, error)
	// EstablishCommission writes earned only while no commission is recorded.
	EstablishCommission(ctx context.Context, saleID string, earned decimal.Decimal, at time.Time) (bool, error)
	// ApplyRefund folds a refund into the sale once per refund id.
	ApplyRefund(ctx context.Context, saleID string, refund *Refund) (*Sale, bool, error)
}

type PaymentRepository interface {
	// CreatePaymentClaimingSales marks the sales processing only where they are
	// still unpaid and stores the payment. ErrConflict when any claim misses.
	CreatePaymentClaimingSales(ctx context.Context, payment *Payment) error
	GetPaymentByID(ctx context.Context, paymentID string) (*Payment, error)
	FindReconciliationCandidates(ctx context.Context, method PayoutMethod, since time.Time) ([]*Payment, error)
	SettlePayment(ctx context.Context, cmd SettleCommand) (ReconcileResult, error)
	ReversePayment(ctx context.Context, cmd ReverseCommand) (ReconcileResult, error)
	ListPaymentHistory(ctx context.Context, affiliateID string) ([]*PaymentHistoryEntry, error)
}

type AffiliateRepository interface {
	GetAffiliateByID(ctx context.Context, affiliateID string) (*Affiliate, error)
	GetAffiliateByRefID(ctx context.Context, refID string) (*Affiliate, error)
	ListAffiliatesAfter(ctx context.Context, afterID string, limit int) ([]*Affiliate, error)
	SetPayoutAccount(ctx context.Context, affiliateID, accountID string) error
	// AdvancePayoutAttempt moves the attempt counter on only if it still equals from.
	AdvancePayoutAttempt(ctx context.Context, affiliateID string, from int) error
	// Disconnect clears the payout account, purges onboarding notices and
	// appends seed in one transaction.
	Disconnect(ctx context.Context, affiliateID string, purge NotificationPurge, seed []*Notification) error
}

type NotificationRepository interface {
	// CreateNotification returns false when the dedup key already exists.
	CreateNotification(ctx context.Context, n *Notification) (bool, error)
	// LatestByTitles returns the newest notice whose title is one of titles, or nil.
	LatestByTitles(ctx context.Context, affiliateID string, titles []string) (*Notification, error)
	ListNotifications(ctx context.Context, affiliateID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, affiliateID, notificationID string) error
}

type ReconciliationRun struct {
	ID         string
	Since      time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Candidates int
	Paid       int
	Reversed   int
	Unchanged  int
	Failed     int
}

type ReconciliationRunRepository interface {
	RecordRun(ctx context.Context, run *ReconciliationRun) error
}
