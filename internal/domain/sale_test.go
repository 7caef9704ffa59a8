package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeCommission(t *testing.T) {
	tests := []struct {
		name                     string
		subtotal, discount, rate string
		currency                 string
		want                     string
	}{
		{"plain", "100", "0", "0.1", "usd", "10"},
		{"discounted", "100", "25", "0.2", "usd", "15"},
		{"discount exceeds subtotal", "10", "12", "0.5", "usd", "0"},
		{"rounds to cents", "33.33", "0", "0.15", "usd", "5"},
		{"zero rate", "100", "0", "0", "usd", "0"},
		{"zero-decimal currency rounds to whole units", "1001", "0", "0.1", "jpy", "100"},
		{"zero-decimal currency rounds half up", "1005", "0", "0.1", "JPY", "101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCommission(dec(tt.subtotal), dec(tt.discount), dec(tt.rate), tt.currency)
			if !got.Equal(dec(tt.want)) {
				t.Fatalf("ComputeCommission = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstablishCommissionUsesSaleCurrency(t *testing.T) {
	s := &Sale{Subtotal: dec("1001"), CommissionRate: dec("0.1"), Currency: "jpy"}
	s.EstablishCommission(time.Now())
	if !s.CommissionEarned.Equal(dec("100")) {
		t.Fatalf("jpy commission = %s, want 100", s.CommissionEarned)
	}
	if CurrencyExponent("usd") != MoneyPlaces || CurrencyExponent("KRW") != 0 {
		t.Fatal("unexpected currency exponents")
	}
}

func TestEstablishCommissionOnlyOnce(t *testing.T) {
	s := &Sale{Subtotal: dec("100"), Discount: dec("0"), CommissionRate: dec("0.1")}
	if !s.EstablishCommission(time.Now()) {
		t.Fatal("first establish should succeed")
	}
	s.CommissionRate = dec("0.5")
	if s.EstablishCommission(time.Now()) {
		t.Fatal("second establish should be a no-op")
	}
	if !s.CommissionEarned.Equal(dec("10")) {
		t.Fatalf("commission recomputed: %s", s.CommissionEarned)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to CommissionStatus
		want     bool
	}{
		{CommissionUnpaid, CommissionProcessing, true},
		{CommissionProcessing, CommissionPaid, true},
		{CommissionUnpaid, CommissionPaid, true},
		{CommissionPaid, CommissionProcessing, false},
		{CommissionPaid, CommissionUnpaid, false},
		{CommissionUnpaid, CommissionReversed, true},
		{CommissionProcessing, CommissionReversed, true},
		{CommissionPaid, CommissionReversed, true},
		{CommissionReversed, CommissionPaid, false},
		{CommissionReversed, CommissionReversed, false},
		{CommissionPaid, CommissionPaid, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseCommissionStatusMapsLegacyRefunded(t *testing.T) {
	got, ok := ParseCommissionStatus("refunded")
	if !ok || got != CommissionReversed {
		t.Fatalf("refunded parsed as %q (%v)", got, ok)
	}
	if _, ok := ParseCommissionStatus("bogus"); ok {
		t.Fatal("unknown status accepted")
	}
}

func TestCanPay(t *testing.T) {
	base := func() *Sale {
		return &Sale{
			CommissionStatus: CommissionUnpaid,
			RefundStatus:     RefundNone,
			CommissionEarned: dec("10"),
		}
	}
	if !CanPay(base(), OnboardingComplete) {
		t.Fatal("unpaid sale with ready affiliate should be payable")
	}
	if CanPay(base(), OnboardingInProgress) {
		t.Fatal("affiliate not ready")
	}
	paid := base()
	paid.CommissionStatus = CommissionPaid
	if CanPay(paid, OnboardingComplete) {
		t.Fatal("paid sale is not payable")
	}
	refunded := base()
	refunded.RefundStatus = RefundFull
	if CanPay(refunded, OnboardingComplete) {
		t.Fatal("fully refunded sale is not payable")
	}
	partial := base()
	partial.RefundStatus = RefundPartial
	if !CanPay(partial, OnboardingComplete) {
		t.Fatal("partially refunded sale is payable")
	}
	zero := base()
	zero.CommissionEarned = decimal.Zero
	if CanPay(zero, OnboardingComplete) {
		t.Fatal("zero commission is not payable")
	}
}

func TestSaleAmountHintFallback(t *testing.T) {
	override := dec("80")
	legacy := dec("42")

	s := &Sale{Subtotal: dec("100"), Discount: dec("10"), AmountOverride: &override, LegacyAmount: &legacy}
	if got := s.SaleAmountHint(); !got.Equal(override) {
		t.Fatalf("override ignored: %s", got)
	}
	s.AmountOverride = nil
	if got := s.SaleAmountHint(); !got.Equal(dec("90")) {
		t.Fatalf("net amount ignored: %s", got)
	}
	s.Subtotal, s.Discount = decimal.Zero, decimal.Zero
	if got := s.SaleAmountHint(); !got.Equal(legacy) {
		t.Fatalf("legacy amount ignored: %s", got)
	}
}

func TestNextRefundStatusNeverMovesBack(t *testing.T) {
	if got := NextRefundStatus(RefundNone, dec("5"), dec("100")); got != RefundPartial {
		t.Fatalf("got %s", got)
	}
	if got := NextRefundStatus(RefundPartial, dec("100"), dec("100")); got != RefundFull {
		t.Fatalf("got %s", got)
	}
	if got := NextRefundStatus(RefundFull, dec("5"), dec("100")); got != RefundFull {
		t.Fatalf("got %s", got)
	}
}
