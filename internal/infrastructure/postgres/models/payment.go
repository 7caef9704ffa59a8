package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentModel struct {
	ID             string          `gorm:"primaryKey;type:uuid"`
	AffiliateID    string          `gorm:"not null;index:idx_payments_affiliate_id"`
	SaleAmount     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	PaidCommission decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Method         string          `gorm:"not null;index:idx_payments_method_date,priority:1"`
	TransactionID  string          `gorm:"not null;uniqueIndex:ux_payments_transaction_id"`
	Status         string          `gorm:"not null;index:idx_payments_status"`
	Date           time.Time       `gorm:"not null;index:idx_payments_method_date,priority:2"`
	PaidAt         *time.Time
	Currency       string             `gorm:"not null"`
	Sales          []PaymentSaleModel `gorm:"foreignKey:PaymentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PaymentModel) TableName() string { return "payments" }

type PaymentSaleModel struct {
	PaymentID string `gorm:"primaryKey;type:uuid"`
	SaleID    string `gorm:"primaryKey;type:uuid;index:idx_payment_sales_sale_id"`
	Position  int    `gorm:"not null;default:0"`
}

func (PaymentSaleModel) TableName() string { return "payment_sales" }

// PaymentHistoryModel is the affiliate's denormalized payout snapshot.
type PaymentHistoryModel struct {
	ID            uint            `gorm:"primaryKey"`
	AffiliateID   string          `gorm:"not null;uniqueIndex:ux_payment_history_tx,priority:1"`
	TransactionID string          `gorm:"not null;uniqueIndex:ux_payment_history_tx,priority:2"`
	PaymentID     string          `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency      string          `gorm:"not null"`
	Status        string          `gorm:"not null"`
	Date          time.Time       `gorm:"not null"`
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (PaymentHistoryModel) TableName() string { return "affiliate_payment_history" }
