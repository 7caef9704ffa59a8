package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AffiliateModel struct {
	ID              string `gorm:"primaryKey;type:uuid"`
	RefID           string `gorm:"not null;uniqueIndex:ux_affiliates_ref_id"`
	Email           string
	Name            string
	StripeAccountID string          `gorm:"not null;default:''"`
	TotalCommission decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	PayoutAttempt   int             `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (AffiliateModel) TableName() string { return "affiliates" }

type NotificationModel struct {
	ID          string    `gorm:"primaryKey"`
	AffiliateID string    `gorm:"not null;uniqueIndex:ux_notifications_dedup,priority:1;index:idx_notifications_title,priority:1"`
	DedupKey    *string   `gorm:"uniqueIndex:ux_notifications_dedup,priority:2"`
	Title       string    `gorm:"not null;index:idx_notifications_title,priority:2"`
	Text        string    `gorm:"not null"`
	Date        time.Time `gorm:"not null;index:idx_notifications_date"`
	Read        bool      `gorm:"not null;default:false"`
}

func (NotificationModel) TableName() string { return "affiliate_notifications" }

type ReconciliationRunModel struct {
	ID         string    `gorm:"primaryKey"`
	Since      time.Time `gorm:"not null"`
	StartedAt  time.Time `gorm:"not null;index:idx_reconciliation_runs_started_at"`
	FinishedAt time.Time `gorm:"not null"`
	Candidates int
	Paid       int
	Reversed   int
	Unchanged  int
	Failed     int
}

func (ReconciliationRunModel) TableName() string { return "reconciliation_runs" }

// All lists every model owned by the service, in dependency order.
func All() []any {
	return []any{
		&AffiliateModel{},
		&SaleModel{},
		&SaleRefundModel{},
		&PaymentModel{},
		&PaymentSaleModel{},
		&PaymentHistoryModel{},
		&NotificationModel{},
		&ReconciliationRunModel{},
	}
}
