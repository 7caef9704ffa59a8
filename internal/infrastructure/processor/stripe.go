package processor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"golang.org/x/time/rate"
)

// backend is the part of the Stripe client the adapter calls.
type backend interface {
	NewTransfer(params *stripe.TransferParams) (*stripe.Transfer, error)
	GetTransfer(id string, params *stripe.TransferParams) (*stripe.Transfer, error)
	NewTransferReversal(params *stripe.TransferReversalParams) (*stripe.TransferReversal, error)
	GetAccount(id string, params *stripe.AccountParams) (*stripe.Account, error)
	NewRefund(params *stripe.RefundParams) (*stripe.Refund, error)
	GetRefund(id string, params *stripe.RefundParams) (*stripe.Refund, error)
}

type apiBackend struct {
	api *client.API
}

func (b apiBackend) NewTransfer(params *stripe.TransferParams) (*stripe.Transfer, error) {
	return b.api.Transfers.New(params)
}

func (b apiBackend) GetTransfer(id string, params *stripe.TransferParams) (*stripe.Transfer, error) {
	return b.api.Transfers.Get(id, params)
}

func (b apiBackend) NewTransferReversal(params *stripe.TransferReversalParams) (*stripe.TransferReversal, error) {
	return b.api.TransferReversals.New(params)
}

func (b apiBackend) GetAccount(id string, params *stripe.AccountParams) (*stripe.Account, error) {
	return b.api.Accounts.GetByID(id, params)
}

func (b apiBackend) NewRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	return b.api.Refunds.New(params)
}

func (b apiBackend) GetRefund(id string, params *stripe.RefundParams) (*stripe.Refund, error) {
	return b.api.Refunds.Get(id, params)
}

// StripeProcessor implements domain.PaymentProcessor on top of stripe-go.
// Every call waits on a shared limiter and every payload is validated before
// it leaves the adapter.
type StripeProcessor struct {
	backend backend
	limiter *rate.Limiter
	metrics *metrics.CommissionMetrics
}

func NewStripeProcessor(secretKey string, ratePerSecond float64, burst int, m *metrics.CommissionMetrics) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return newStripeProcessor(apiBackend{api: api}, rate.NewLimiter(rate.Limit(ratePerSecond), burst), m)
}

func newStripeProcessor(b backend, limiter *rate.Limiter, m *metrics.CommissionMetrics) *StripeProcessor {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &StripeProcessor{backend: b, limiter: limiter, metrics: m}
}

func (p *StripeProcessor) CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.Transfer, error) {
	const op = "create transfer"
	amount, err := toMinorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.AccountID),
	}
	if req.TransferGroup != "" {
		params.TransferGroup = stripe.String(req.TransferGroup)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	var tr *stripe.Transfer
	err = p.call(ctx, op, func() error {
		var callErr error
		tr, callErr = p.backend.NewTransfer(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	transfer := toDomainTransfer(tr)
	if err := transfer.Validate(""); err != nil {
		return nil, err
	}
	return transfer, nil
}

func (p *StripeProcessor) RetrieveTransfer(ctx context.Context, transferID string) (*domain.Transfer, error) {
	const op = "retrieve transfer"
	params := &stripe.TransferParams{}
	params.Context = ctx

	var tr *stripe.Transfer
	err := p.call(ctx, op, func() error {
		var callErr error
		tr, callErr = p.backend.GetTransfer(transferID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	transfer := toDomainTransfer(tr)
	if err := transfer.Validate(transferID); err != nil {
		return nil, err
	}
	return transfer, nil
}

// ReverseTransfer reverses the full transfer amount.
func (p *StripeProcessor) ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) error {
	params := &stripe.TransferReversalParams{ID: stripe.String(transferID)}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	params.Context = ctx

	return p.call(ctx, "reverse transfer", func() error {
		_, callErr := p.backend.NewTransferReversal(params)
		return callErr
	})
}

func (p *StripeProcessor) RetrieveConnectedAccount(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	var acct *stripe.Account
	err := p.call(ctx, "retrieve account", func() error {
		var callErr error
		acct, callErr = p.backend.GetAccount(accountID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var result *domain.ConnectedAccount
	if acct != nil {
		result = &domain.ConnectedAccount{
			ID:               acct.ID,
			ChargesEnabled:   acct.ChargesEnabled,
			PayoutsEnabled:   acct.PayoutsEnabled,
			DetailsSubmitted: acct.DetailsSubmitted,
		}
		if acct.Requirements != nil {
			result.CurrentlyDue = append([]string(nil), acct.Requirements.CurrentlyDue...)
		}
	}
	if err := result.Validate(accountID); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *StripeProcessor) CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.Refund, error) {
	params := &stripe.RefundParams{Charge: stripe.String(req.ChargeID)}
	if req.Amount.IsPositive() {
		amount, err := toMinorUnits(req.Amount, req.Currency)
		if err != nil {
			return nil, err
		}
		params.Amount = stripe.Int64(amount)
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	var rf *stripe.Refund
	err := p.call(ctx, "create refund", func() error {
		var callErr error
		rf, callErr = p.backend.NewRefund(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	refund := toDomainRefund(rf)
	if err := refund.Validate(""); err != nil {
		return nil, err
	}
	return refund, nil
}

func (p *StripeProcessor) RetrieveRefund(ctx context.Context, refundID string) (*domain.Refund, error) {
	params := &stripe.RefundParams{}
	params.Context = ctx

	var rf *stripe.Refund
	err := p.call(ctx, "retrieve refund", func() error {
		var callErr error
		rf, callErr = p.backend.GetRefund(refundID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	refund := toDomainRefund(rf)
	if err := refund.Validate(refundID); err != nil {
		return nil, err
	}
	return refund, nil
}

func (p *StripeProcessor) call(ctx context.Context, op string, fn func() error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &domain.ExternalAPIError{Op: op, Err: err}
	}
	start := time.Now()
	err := fn()
	p.metrics.RecordProcessorCall(op, time.Since(start).Seconds(), err)
	if err != nil {
		return mapStripeError(op, err)
	}
	return nil
}

func mapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status == 0 && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			status = http.StatusNotFound
		}
		return &domain.ExternalAPIError{
			Op:         op,
			StatusCode: status,
			Code:       string(stripeErr.Code),
			Err:        errors.New(stripeErr.Msg),
		}
	}
	return &domain.ExternalAPIError{Op: op, Err: err}
}

func toDomainTransfer(tr *stripe.Transfer) *domain.Transfer {
	if tr == nil {
		return nil
	}
	transfer := &domain.Transfer{
		ID:       tr.ID,
		Reversed: tr.Reversed,
		Currency: string(tr.Currency),
		Amount:   fromMinorUnits(tr.Amount, string(tr.Currency)),
	}
	if tr.Created > 0 {
		transfer.CreatedAt = time.Unix(tr.Created, 0).UTC()
	}
	if tr.BalanceTransaction != nil {
		transfer.BalanceTransactionID = tr.BalanceTransaction.ID
	}
	return transfer
}

func toDomainRefund(rf *stripe.Refund) *domain.Refund {
	if rf == nil {
		return nil
	}
	refund := &domain.Refund{
		ID:       rf.ID,
		State:    domain.RefundState(rf.Status),
		Currency: string(rf.Currency),
		Amount:   fromMinorUnits(rf.Amount, string(rf.Currency)),
	}
	if rf.Charge != nil {
		refund.ChargeID = rf.Charge.ID
	}
	if rf.Created > 0 {
		refund.CreatedAt = time.Unix(rf.Created, 0).UTC()
	}
	return refund
}
