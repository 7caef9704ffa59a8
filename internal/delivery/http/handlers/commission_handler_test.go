package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/delivery/http/dto/commission"
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/lock"
	"github.com/LavaJover/shvark-commission-service/internal/testutil"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/payout"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/reconciliation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type stubPayouts struct {
	lastInput *payout.InitiatePayoutInput
	err       error
}

func (s *stubPayouts) InitiatePayout(_ context.Context, input *payout.InitiatePayoutInput) (*domain.Payment, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Payment{
		ID:             "pay_1",
		AffiliateID:    input.AffiliateID,
		SaleIDs:        input.SaleIDs,
		PaidCommission: decimal.RequireFromString("12.5"),
		Method:         domain.MethodStripeTransfer,
		TransactionID:  "tr_1",
		Status:         domain.PaymentProcessing,
		Currency:       "usd",
	}, nil
}

func (s *stubPayouts) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	return nil, &domain.NotFoundError{Entity: "payment", ID: id}
}

func (s *stubPayouts) ListPaymentHistory(context.Context, string) ([]*domain.PaymentHistoryEntry, error) {
	return nil, nil
}

type stubReconciliation struct {
	lookback time.Duration
}

func (s *stubReconciliation) Run(_ context.Context, now time.Time, lookback time.Duration) (*domain.ReconciliationRun, error) {
	s.lookback = lookback
	return &domain.ReconciliationRun{ID: "run_1", Since: now.Add(-lookback), StartedAt: now, FinishedAt: now, Paid: 2}, nil
}

func (s *stubReconciliation) Tick(context.Context, time.Time) error { return nil }

type stubOnboarding struct {
	err error
}

func (s *stubOnboarding) LiveState(context.Context, *domain.Affiliate) (domain.OnboardingState, *domain.ConnectedAccount, error) {
	return domain.OnboardingComplete, nil, nil
}

func (s *stubOnboarding) Status(_ context.Context, affiliateID string, _ time.Time) (*domain.OnboardingStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.OnboardingStatus{AffiliateID: affiliateID, State: domain.OnboardingInProgress, AccountID: "acct_1"}, nil
}

func (s *stubOnboarding) ConnectAccount(ctx context.Context, affiliateID, _ string, now time.Time) (*domain.OnboardingStatus, error) {
	return s.Status(ctx, affiliateID, now)
}

func (s *stubOnboarding) Disconnect(context.Context, string, time.Time) error { return s.err }

func newTestRouter(payouts *stubPayouts, rec *stubReconciliation, onb *stubOnboarding) http.Handler {
	return newGuardedRouter(payouts, rec, onb, nil)
}

func newGuardedRouter(payouts *stubPayouts, rec *stubReconciliation, onb *stubOnboarding, guard lock.RunGuard) http.Handler {
	h := NewCommissionHandler(payouts, rec, onb, nil, nil, nil, guard, 48*time.Hour)
	return NewRouter(h, prometheus.NewRegistry(), testutil.DiscardLogger())
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) commission.ErrorResponse {
	t.Helper()
	var body commission.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestInitiatePayoutHandler(t *testing.T) {
	payouts := &stubPayouts{}
	router := newTestRouter(payouts, &stubReconciliation{}, &stubOnboarding{})

	rec := do(t, router, http.MethodPost, "/v1/payouts", `{"affiliate_id":"aff_1","sale_ids":["s1","s2"],"requested_amount":"12.50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var resp commission.PaymentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PaidCommission != "12.50" || resp.TransactionID != "tr_1" {
		t.Fatalf("response = %+v", resp)
	}
	if payouts.lastInput.RequestedAmount == nil || !payouts.lastInput.RequestedAmount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("requested amount not passed through: %+v", payouts.lastInput)
	}
}

func TestInitiatePayoutHandlerValidation(t *testing.T) {
	router := newTestRouter(&stubPayouts{}, &stubReconciliation{}, &stubOnboarding{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing affiliate", `{"sale_ids":["s1"]}`, "affiliate_id"},
		{"no sales", `{"affiliate_id":"a","sale_ids":[]}`, "sale_ids"},
		{"bad method", `{"affiliate_id":"a","sale_ids":["s1"],"method":"cash"}`, "method"},
		{"bad amount", `{"affiliate_id":"a","sale_ids":["s1"],"requested_amount":"lots"}`, "requested_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/payouts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decodeError(t, rec)
			if _, ok := body.Fields[tt.field]; !ok {
				t.Fatalf("fields = %v, want %s", body.Fields, tt.field)
			}
		})
	}

	if rec := do(t, router, http.MethodPost, "/v1/payouts", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status = %d", rec.Code)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError("x", "bad"), http.StatusBadRequest, "validation_failed"},
		{errors.Join(domain.ErrNotReady), http.StatusPreconditionFailed, "payout_account_not_ready"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{errors.Join(domain.ErrTransferFailed, &domain.ExternalAPIError{Op: "create transfer", StatusCode: 404}), http.StatusBadGateway, "transfer_failed"},
		{&domain.ExternalAPIError{Op: "retrieve account", StatusCode: 404, Err: errors.New("gone")}, http.StatusBadGateway, "processor_error"},
		{&domain.NotFoundError{Entity: "sale", ID: "s"}, http.StatusNotFound, "not_found"},
		{errors.New("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		payouts := &stubPayouts{err: tt.err}
		router := newTestRouter(payouts, &stubReconciliation{}, &stubOnboarding{})
		rec := do(t, router, http.MethodPost, "/v1/payouts", `{"affiliate_id":"a","sale_ids":["s1"]}`)
		if rec.Code != tt.status {
			t.Fatalf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		body := decodeError(t, rec)
		if body.Code != tt.code {
			t.Fatalf("%v: code = %s, want %s", tt.err, body.Code, tt.code)
		}
		if tt.status == http.StatusInternalServerError && body.Message != "internal error" {
			t.Fatalf("internal error leaked: %q", body.Message)
		}
	}
}

func TestRunReconciliationHandler(t *testing.T) {
	rec := &stubReconciliation{}
	router := newTestRouter(&stubPayouts{}, rec, &stubOnboarding{})

	if resp := do(t, router, http.MethodPost, "/v1/reconciliation/runs", ""); resp.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.Code, resp.Body)
	}
	if rec.lookback != 48*time.Hour {
		t.Fatalf("default lookback = %s", rec.lookback)
	}

	if resp := do(t, router, http.MethodPost, "/v1/reconciliation/runs", `{"lookback_hours":6}`); resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if rec.lookback != 6*time.Hour {
		t.Fatalf("lookback = %s", rec.lookback)
	}

	if resp := do(t, router, http.MethodPost, "/v1/reconciliation/runs", `{"lookback_hours":-1}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("negative lookback status = %d", resp.Code)
	}
}

func TestRunReconciliationRespectsRunGuard(t *testing.T) {
	guard := lock.NewLocalRunGuard()
	rec := &stubReconciliation{}
	router := newGuardedRouter(&stubPayouts{}, rec, &stubOnboarding{}, guard)

	release, ok, err := guard.TryAcquire(context.Background(), reconciliation.JobName)
	if err != nil || !ok {
		t.Fatalf("TryAcquire = %v, %v", ok, err)
	}
	resp := do(t, router, http.MethodPost, "/v1/reconciliation/runs", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("status while held = %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Code != "conflict" {
		t.Fatalf("code = %s", body.Code)
	}
	if rec.lookback != 0 {
		t.Fatal("reconciliation ran while another runner held the job")
	}

	release()
	if resp := do(t, router, http.MethodPost, "/v1/reconciliation/runs", ""); resp.Code != http.StatusOK {
		t.Fatalf("status after release = %d", resp.Code)
	}
	if _, ok, _ := guard.TryAcquire(context.Background(), reconciliation.JobName); !ok {
		t.Fatal("handler did not release the job")
	}
}

func TestOnboardingRoutes(t *testing.T) {
	onb := &stubOnboarding{}
	router := newTestRouter(&stubPayouts{}, &stubReconciliation{}, onb)

	resp := do(t, router, http.MethodGet, "/v1/affiliates/aff_1/onboarding", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"in_progress"`) {
		t.Fatalf("status = %d body=%s", resp.Code, resp.Body)
	}

	if resp := do(t, router, http.MethodPut, "/v1/affiliates/aff_1/payout-account", `{"account_id":"ba_123"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("non-account id status = %d", resp.Code)
	}
	if resp := do(t, router, http.MethodPut, "/v1/affiliates/aff_1/payout-account", `{"account_id":"acct_123"}`); resp.Code != http.StatusOK {
		t.Fatalf("connect status = %d", resp.Code)
	}
	if resp := do(t, router, http.MethodDelete, "/v1/affiliates/aff_1/payout-account", ""); resp.Code != http.StatusNoContent {
		t.Fatalf("disconnect status = %d", resp.Code)
	}

	onb.err = &domain.NotFoundError{Entity: "affiliate", ID: "aff_1"}
	if resp := do(t, router, http.MethodGet, "/v1/affiliates/aff_1/onboarding", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("missing affiliate status = %d", resp.Code)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	router := newTestRouter(&stubPayouts{}, &stubReconciliation{}, &stubOnboarding{})
	if resp := do(t, router, http.MethodGet, "/v1/payouts/pay_404", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&stubPayouts{}, &stubReconciliation{}, &stubOnboarding{})
	if resp := do(t, router, http.MethodGet, "/healthz", ""); resp.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.Code)
	}
	if resp := do(t, router, http.MethodGet, "/metrics", ""); resp.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.Code)
	}
}
