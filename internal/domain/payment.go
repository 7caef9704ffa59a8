package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentProcessing       PaymentStatus = "processing"
	PaymentPaid             PaymentStatus = "paid"
	PaymentTransferReversed PaymentStatus = "transfer_reversed"
)

type PayoutMethod string

const (
	MethodStripeTransfer PayoutMethod = "stripe_transfer"
	MethodManual         PayoutMethod = "manual"
)

// TransferIDPrefix marks processor transfer ids.
const TransferIDPrefix = "tr_"

// Payment is the payout voucher aggregating one or more sales.
type Payment struct {
	ID             string
	AffiliateID    string
	SaleIDs        []string
	SaleAmount     decimal.Decimal
	PaidCommission decimal.Decimal
	Method         PayoutMethod
	TransactionID  string
	Status         PaymentStatus
	Date           time.Time
	PaidAt         *time.Time
	Currency       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExternalTransfer reports whether the processor holds the authoritative
// record for this payment.
func (p *Payment) IsExternalTransfer() bool {
	return p.Method == MethodStripeTransfer && strings.HasPrefix(p.TransactionID, TransferIDPrefix)
}

// PaymentHistoryEntry is the affiliate-facing snapshot of a confirmed payment,
// unique per (affiliate, transaction id).
type PaymentHistoryEntry struct {
	AffiliateID   string
	TransactionID string
	PaymentID     string
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	Date          time.Time
	PaidAt        *time.Time
	UpdatedAt     time.Time
}

// SettleCommand advances a payment whose transfer the processor reports as settled.
type SettleCommand struct {
	PaymentID   string
	AffiliateID string
	TransferID  string
	SaleIDs     []string
	Amount      decimal.Decimal
	Currency    string
	PaidAt      time.Time
}

// ReverseCommand moves a payment whose transfer was reversed into the terminal state.
type ReverseCommand struct {
	PaymentID   string
	AffiliateID string
	TransferID  string
	SaleIDs     []string
	Amount      decimal.Decimal
	Currency    string
	ReversedAt  time.Time
}

// ReconcileResult counts the rows a guarded write actually changed.
type ReconcileResult struct {
	PaymentAdvanced bool
	SalesAdvanced   int64
	HistoryWritten  bool
	TotalDelta      decimal.Decimal
}

func (r ReconcileResult) Changed() bool {
	return r.PaymentAdvanced || r.SalesAdvanced > 0 || r.HistoryWritten
}
