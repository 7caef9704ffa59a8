package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	AccountID      string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	TransferGroup  string
	Metadata       map[string]string
}

type Transfer struct {
	ID                   string
	Reversed             bool
	CreatedAt            time.Time
	BalanceTransactionID string
	Currency             string
	Amount               decimal.Decimal
}

// Validate rejects transfer payloads that cannot be reconciled against.
func (t *Transfer) Validate(expectedID string) error {
	switch {
	case t == nil:
		return NewMalformedPayloadError("retrieve transfer", "empty transfer")
	case t.ID == "":
		return NewMalformedPayloadError("retrieve transfer", "missing id")
	case expectedID != "" && t.ID != expectedID:
		return NewMalformedPayloadError("retrieve transfer", "id mismatch")
	case t.CreatedAt.IsZero():
		return NewMalformedPayloadError("retrieve transfer", "missing created timestamp")
	case t.Currency == "":
		return NewMalformedPayloadError("retrieve transfer", "missing currency")
	}
	return nil
}

type ConnectedAccount struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	CurrentlyDue     []string
}

func (a *ConnectedAccount) Validate(expectedID string) error {
	switch {
	case a == nil:
		return NewMalformedPayloadError("retrieve account", "empty account")
	case a.ID == "":
		return NewMalformedPayloadError("retrieve account", "missing id")
	case expectedID != "" && a.ID != expectedID:
		return NewMalformedPayloadError("retrieve account", "id mismatch")
	}
	return nil
}

type RefundState string

const (
	RefundPending   RefundState = "pending"
	RefundSucceeded RefundState = "succeeded"
	RefundFailed    RefundState = "failed"
	RefundCanceled  RefundState = "canceled"
)

type RefundRequest struct {
	ChargeID       string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Reason         string
}

type Refund struct {
	ID        string
	ChargeID  string
	State     RefundState
	Amount    decimal.Decimal
	Currency  string
	CreatedAt time.Time
}

func (r *Refund) Validate(expectedID string) error {
	switch {
	case r == nil:
		return NewMalformedPayloadError("retrieve refund", "empty refund")
	case r.ID == "":
		return NewMalformedPayloadError("retrieve refund", "missing id")
	case expectedID != "" && r.ID != expectedID:
		return NewMalformedPayloadError("retrieve refund", "id mismatch")
	case !r.Amount.IsPositive():
		return NewMalformedPayloadError("retrieve refund", "non-positive amount")
	}
	switch r.State {
	case RefundPending, RefundSucceeded, RefundFailed, RefundCanceled:
		return nil
	}
	return NewMalformedPayloadError("retrieve refund", "unknown status "+string(r.State))
}

// AccountReader is the slice of the processor the onboarding state machine needs.
type AccountReader interface {
	RetrieveConnectedAccount(ctx context.Context, accountID string) (*ConnectedAccount, error)
}

type PaymentProcessor interface {
	AccountReader
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	RetrieveTransfer(ctx context.Context, transferID string) (*Transfer, error)
	ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) error
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
	RetrieveRefund(ctx context.Context, refundID string) (*Refund, error)
}
