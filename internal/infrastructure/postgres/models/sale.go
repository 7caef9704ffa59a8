package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleModel struct {
	ID                      string `gorm:"primaryKey;type:uuid"`
	RefID                   string `gorm:"not null;index:idx_sales_ref_id"`
	OrderID                 string `gorm:"index:idx_sales_order_id"`
	ChargeID                string
	Subtotal                decimal.Decimal     `gorm:"type:numeric(20,2);not null;default:0"`
	Discount                decimal.Decimal     `gorm:"type:numeric(20,2);not null;default:0"`
	AmountOverride          decimal.NullDecimal `gorm:"type:numeric(20,2)"`
	LegacyAmount            decimal.NullDecimal `gorm:"type:numeric(20,2)"`
	Currency                string              `gorm:"not null"`
	CommissionRate          decimal.Decimal     `gorm:"type:numeric(10,6);not null;default:0"`
	CommissionEarned        decimal.Decimal     `gorm:"type:numeric(20,2);not null;default:0"`
	CommissionEstablishedAt *time.Time
	CommissionStatus        string          `gorm:"not null;default:'unpaid';index:idx_sales_commission_status"`
	RefundStatus            string          `gorm:"not null;default:'none'"`
	RefundedAmount          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	TransferID              string          `gorm:"index:idx_sales_transfer_id"`
	PaymentID               string          `gorm:"index:idx_sales_payment_id"`
	PaidAt                  *time.Time
	CreatedAt               time.Time `gorm:"index:idx_sales_created_at"`
	UpdatedAt               time.Time
}

func (SaleModel) TableName() string { return "sales" }

// SaleRefundModel records each processor refund folded into a sale, once.
type SaleRefundModel struct {
	RefundID  string          `gorm:"primaryKey"`
	SaleID    string          `gorm:"not null;index:idx_sale_refunds_sale_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency  string          `gorm:"not null"`
	CreatedAt time.Time
}

func (SaleRefundModel) TableName() string { return "sale_refunds" }
