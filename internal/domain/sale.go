package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionUnpaid     CommissionStatus = "unpaid"
	CommissionProcessing CommissionStatus = "processing"
	CommissionPaid       CommissionStatus = "paid"
	CommissionReversed   CommissionStatus = "reversed"

	// legacyCommissionRefunded is the old spelling of the terminal state.
	legacyCommissionRefunded = "refunded"
)

type RefundStatus string

const (
	RefundNone    RefundStatus = "none"
	RefundPartial RefundStatus = "partial"
	RefundFull    RefundStatus = "full"
)

// MoneyPlaces is the precision money values are rounded to.
const MoneyPlaces = 2

// ParseCommissionStatus maps stored values onto the canonical set.
// Legacy "refunded" rows are read as reversed; empty reads as unpaid.
func ParseCommissionStatus(raw string) (CommissionStatus, bool) {
	switch raw {
	case "", string(CommissionUnpaid):
		return CommissionUnpaid, true
	case string(CommissionProcessing):
		return CommissionProcessing, true
	case string(CommissionPaid):
		return CommissionPaid, true
	case string(CommissionReversed), legacyCommissionRefunded:
		return CommissionReversed, true
	}
	return "", false
}

func (s CommissionStatus) rank() int {
	switch s {
	case CommissionUnpaid:
		return 0
	case CommissionProcessing:
		return 1
	case CommissionPaid:
		return 2
	}
	return -1
}

// CanTransition reports whether from -> to is a legal ledger move:
// forward along unpaid -> processing -> paid, or into reversed from any
// non-reversed state. Reversed never changes again.
func (s CommissionStatus) CanTransition(to CommissionStatus) bool {
	if s == CommissionReversed {
		return false
	}
	if to == CommissionReversed {
		return true
	}
	from, next := s.rank(), to.rank()
	return from >= 0 && next > from
}

func (s CommissionStatus) Terminal() bool { return s == CommissionReversed }

type Sale struct {
	ID                      string
	RefID                   string
	OrderID                 string
	ChargeID                string
	Subtotal                decimal.Decimal
	Discount                decimal.Decimal
	AmountOverride          *decimal.Decimal
	LegacyAmount            *decimal.Decimal
	Currency                string
	CommissionRate          decimal.Decimal
	CommissionEarned        decimal.Decimal
	CommissionEstablishedAt *time.Time
	CommissionStatus        CommissionStatus
	RefundStatus            RefundStatus
	RefundedAmount          decimal.Decimal
	TransferID              string
	PaymentID               string
	PaidAt                  *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// NetAmount is subtotal minus discount, floored at zero.
func (s *Sale) NetAmount() decimal.Decimal {
	net := s.Subtotal.Sub(s.Discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// ComputeCommission returns max(0, subtotal-discount) * rate rounded to the
// smallest unit the currency can be paid out in.
func ComputeCommission(subtotal, discount, rate decimal.Decimal, currency string) decimal.Decimal {
	net := subtotal.Sub(discount)
	if net.IsNegative() || rate.IsNegative() {
		return decimal.Zero
	}
	return net.Mul(rate).Round(CurrencyExponent(currency))
}

// EstablishCommission fixes CommissionEarned the first time it is called.
// Later rate changes never recompute it. Returns false when already set.
func (s *Sale) EstablishCommission(now time.Time) bool {
	if s.CommissionEstablishedAt != nil {
		return false
	}
	s.CommissionEarned = ComputeCommission(s.Subtotal, s.Discount, s.CommissionRate, s.Currency)
	s.CommissionEstablishedAt = &now
	return true
}

// SaleAmountHint resolves the amount reported to the processor as metadata:
// explicit override, then subtotal-discount, then the legacy flat amount.
// It never decides how much is paid out.
func (s *Sale) SaleAmountHint() decimal.Decimal {
	if s.AmountOverride != nil && s.AmountOverride.IsPositive() {
		return *s.AmountOverride
	}
	if net := s.NetAmount(); net.IsPositive() {
		return net
	}
	if s.LegacyAmount != nil {
		return *s.LegacyAmount
	}
	return decimal.Zero
}

// CanPay holds iff the sale is unpaid, not fully refunded, carries a positive
// commission and the owning affiliate has finished onboarding.
func CanPay(s *Sale, state OnboardingState) bool {
	return s.CommissionStatus == CommissionUnpaid &&
		s.RefundStatus != RefundFull &&
		s.CommissionEarned.IsPositive() &&
		state == OnboardingComplete
}

// NextRefundStatus folds a cumulative refunded amount into the refund status.
// The status only moves forward: none -> partial -> full.
func NextRefundStatus(current RefundStatus, refunded, total decimal.Decimal) RefundStatus {
	next := RefundNone
	switch {
	case refunded.IsPositive() && refunded.GreaterThanOrEqual(total):
		next = RefundFull
	case refunded.IsPositive():
		next = RefundPartial
	}
	if refundRank(next) < refundRank(current) {
		return current
	}
	return next
}

func refundRank(s RefundStatus) int {
	switch s {
	case RefundPartial:
		return 1
	case RefundFull:
		return 2
	}
	return 0
}
