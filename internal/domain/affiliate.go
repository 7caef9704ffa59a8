package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Affiliate struct {
	ID              string
	RefID           string
	Email           string
	Name            string
	StripeAccountID string
	TotalCommission decimal.Decimal
	PayoutAttempt   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Affiliate) HasPayoutAccount() bool { return a.StripeAccountID != "" }
