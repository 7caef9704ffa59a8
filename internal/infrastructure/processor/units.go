package processor

import (
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/shopspring/decimal"
)

// toMinorUnits converts a decimal amount into the processor's integer unit.
// Amounts with more precision than the currency allows are rejected.
func toMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if currency == "" {
		return 0, domain.NewValidationError("currency", "required")
	}
	if !amount.IsPositive() {
		return 0, domain.NewValidationError("amount", "must be positive")
	}
	shifted := amount.Shift(domain.CurrencyExponent(currency))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, domain.NewValidationError("amount", "too many decimal places for "+currency)
	}
	return shifted.IntPart(), nil
}

func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -domain.CurrencyExponent(currency))
}
