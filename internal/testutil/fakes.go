package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/shopspring/decimal"
)

// FakeProcessor is an in-memory payment processor. Transfers are idempotent
// per key, as the real one is.
type FakeProcessor struct {
	mu sync.Mutex

	Accounts  map[string]*domain.ConnectedAccount
	Transfers map[string]*domain.Transfer
	Refunds   map[string]*domain.Refund

	byKey     map[string]*domain.Transfer
	rejected  map[string]error
	refundKey map[string]*domain.Refund
	seq       int

	CreateTransferErr   error
	RetrieveTransferErr map[string]error
	AccountErr          error

	CreateTransferCalls []domain.TransferRequest
	ReverseCalls        []string
	AccountCalls        int
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{
		Accounts:            make(map[string]*domain.ConnectedAccount),
		Transfers:           make(map[string]*domain.Transfer),
		Refunds:             make(map[string]*domain.Refund),
		byKey:               make(map[string]*domain.Transfer),
		rejected:            make(map[string]error),
		refundKey:           make(map[string]*domain.Refund),
		RetrieveTransferErr: make(map[string]error),
	}
}

func (p *FakeProcessor) SetAccount(acct *domain.ConnectedAccount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Accounts[acct.ID] = acct
}

func (p *FakeProcessor) RetrieveConnectedAccount(_ context.Context, accountID string) (*domain.ConnectedAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AccountCalls++
	if p.AccountErr != nil {
		return nil, p.AccountErr
	}
	acct, ok := p.Accounts[accountID]
	if !ok {
		return nil, &domain.ExternalAPIError{Op: "retrieve account", StatusCode: 404, Err: fmt.Errorf("no such account")}
	}
	cp := *acct
	return &cp, nil
}

func (p *FakeProcessor) CreateTransfer(_ context.Context, req domain.TransferRequest) (*domain.Transfer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CreateTransferCalls = append(p.CreateTransferCalls, req)
	if err, ok := p.rejected[req.IdempotencyKey]; ok {
		return nil, err
	}
	if p.CreateTransferErr != nil {
		// definitive rejections are replayed for the same key, like the real processor
		if apiErr, ok := p.CreateTransferErr.(*domain.ExternalAPIError); ok && apiErr.Rejected() {
			p.rejected[req.IdempotencyKey] = p.CreateTransferErr
		}
		return nil, p.CreateTransferErr
	}
	if tr, ok := p.byKey[req.IdempotencyKey]; ok {
		cp := *tr
		return &cp, nil
	}
	p.seq++
	tr := &domain.Transfer{
		ID:                   fmt.Sprintf("tr_%04d", p.seq),
		CreatedAt:            time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		BalanceTransactionID: fmt.Sprintf("txn_%04d", p.seq),
		Currency:             req.Currency,
		Amount:               req.Amount,
	}
	p.byKey[req.IdempotencyKey] = tr
	p.Transfers[tr.ID] = tr
	cp := *tr
	return &cp, nil
}

// PutTransfer registers a transfer directly, as if created out of band.
func (p *FakeProcessor) PutTransfer(tr *domain.Transfer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Transfers[tr.ID] = tr
}

func (p *FakeProcessor) RetrieveTransfer(_ context.Context, transferID string) (*domain.Transfer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.RetrieveTransferErr[transferID]; err != nil {
		return nil, err
	}
	tr, ok := p.Transfers[transferID]
	if !ok {
		return nil, &domain.ExternalAPIError{Op: "retrieve transfer", StatusCode: 404, Err: fmt.Errorf("no such transfer")}
	}
	cp := *tr
	return &cp, nil
}

func (p *FakeProcessor) ReverseTransfer(_ context.Context, transferID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReverseCalls = append(p.ReverseCalls, transferID)
	tr, ok := p.Transfers[transferID]
	if !ok {
		return &domain.ExternalAPIError{Op: "reverse transfer", StatusCode: 404, Err: fmt.Errorf("no such transfer")}
	}
	tr.Reversed = true
	return nil
}

func (p *FakeProcessor) CreateRefund(_ context.Context, req domain.RefundRequest) (*domain.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.refundKey[req.IdempotencyKey]; ok {
		cp := *r
		return &cp, nil
	}
	p.seq++
	r := &domain.Refund{
		ID:        fmt.Sprintf("re_%04d", p.seq),
		ChargeID:  req.ChargeID,
		State:     domain.RefundSucceeded,
		Amount:    req.Amount,
		Currency:  req.Currency,
		CreatedAt: time.Now().UTC(),
	}
	p.refundKey[req.IdempotencyKey] = r
	p.Refunds[r.ID] = r
	cp := *r
	return &cp, nil
}

// PutRefund registers a refund issued outside the service.
func (p *FakeProcessor) PutRefund(chargeID, amount, currency string, state domain.RefundState) *domain.Refund {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	r := &domain.Refund{
		ID:        fmt.Sprintf("re_%04d", p.seq),
		ChargeID:  chargeID,
		State:     state,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
	p.Refunds[r.ID] = r
	return r
}

func (p *FakeProcessor) RetrieveRefund(_ context.Context, refundID string) (*domain.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.Refunds[refundID]
	if !ok {
		return nil, &domain.ExternalAPIError{Op: "retrieve refund", StatusCode: 404, Err: fmt.Errorf("no such refund")}
	}
	cp := *r
	return &cp, nil
}

// RecordingPublisher keeps every published message.
type RecordingPublisher struct {
	mu            sync.Mutex
	Notifications []*domain.Notification
	Events        []domain.PayoutEvent
	Err           error
}

func (p *RecordingPublisher) PublishNotification(_ context.Context, n *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Notifications = append(p.Notifications, n)
	return p.Err
}

func (p *RecordingPublisher) PublishPayoutEvent(_ context.Context, e domain.PayoutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return p.Err
}

func (p *RecordingPublisher) EventTypes() []domain.PayoutEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]domain.PayoutEventType, len(p.Events))
	for i, e := range p.Events {
		types[i] = e.Type
	}
	return types
}
