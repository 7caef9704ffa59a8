package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/delivery/http/dto/commission"
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/lock"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/ledger"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/onboarding"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/payout"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/reconciliation"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/refund"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const defaultNotificationLimit = 50

type CommissionHandler struct {
	payouts        payout.PayoutUsecase
	reconciliation reconciliation.ReconciliationUsecase
	onboarding     onboarding.OnboardingUsecase
	notifications  notification.NotificationUsecase
	refunds        refund.RefundUsecase
	ledger         ledger.LedgerUsecase
	guard          lock.RunGuard
	lookback       time.Duration
	validate       *validator.Validate
	now            func() time.Time
}

func NewCommissionHandler(
	payouts payout.PayoutUsecase,
	reconciliationUc reconciliation.ReconciliationUsecase,
	onboardingUc onboarding.OnboardingUsecase,
	notifications notification.NotificationUsecase,
	refunds refund.RefundUsecase,
	ledgerUc ledger.LedgerUsecase,
	guard lock.RunGuard,
	lookback time.Duration,
) *CommissionHandler {
	if guard == nil {
		guard = lock.NewLocalRunGuard()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &CommissionHandler{
		payouts:        payouts,
		reconciliation: reconciliationUc,
		onboarding:     onboardingUc,
		notifications:  notifications,
		refunds:        refunds,
		ledger:         ledgerUc,
		guard:          guard,
		lookback:       lookback,
		validate:       validate,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// decode reads the JSON body into dst and validates it. It writes the error
// response itself and reports false on failure.
func (h *CommissionHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return false
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func (h *CommissionHandler) InitiatePayout(w http.ResponseWriter, r *http.Request) {
	var req commission.InitiatePayoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	input := &payout.InitiatePayoutInput{
		AffiliateID: strings.TrimSpace(req.AffiliateID),
		SaleIDs:     req.SaleIDs,
		Method:      domain.PayoutMethod(req.Method),
	}
	if req.RequestedAmount != nil {
		amount, err := decimal.NewFromString(*req.RequestedAmount)
		if err != nil {
			writeDomainError(w, domain.NewValidationError("requested_amount", "must be a decimal"))
			return
		}
		input.RequestedAmount = &amount
	}

	payment, err := h.payouts.InitiatePayout(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, commission.NewPaymentResponse(payment))
}

func (h *CommissionHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payouts.GetPayment(r.Context(), chi.URLParam(r, "payment_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewPaymentResponse(payment))
}

func (h *CommissionHandler) ListPaymentHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.payouts.ListPaymentHistory(r.Context(), chi.URLParam(r, "affiliate_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewPaymentHistoryResponse(entries))
}

func (h *CommissionHandler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	var req commission.RunReconciliationRequest
	if !h.decode(w, r, &req) {
		return
	}
	lookback := h.lookback
	if req.LookbackHours > 0 {
		lookback = time.Duration(req.LookbackHours) * time.Hour
	}

	release, ok, err := h.guard.TryAcquire(r.Context(), reconciliation.JobName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeDomainError(w, fmt.Errorf("%w: reconciliation is already running", domain.ErrConflict))
		return
	}
	defer release()

	run, err := h.reconciliation.Run(r.Context(), h.now(), lookback)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewReconciliationRunResponse(run))
}

func (h *CommissionHandler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.onboarding.Status(r.Context(), chi.URLParam(r, "affiliate_id"), h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewOnboardingStatusResponse(status))
}

func (h *CommissionHandler) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	var req commission.ConnectAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := h.onboarding.ConnectAccount(r.Context(), chi.URLParam(r, "affiliate_id"), req.AccountID, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewOnboardingStatusResponse(status))
}

func (h *CommissionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.onboarding.Disconnect(r.Context(), chi.URLParam(r, "affiliate_id"), h.now()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommissionHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeDomainError(w, domain.NewValidationError("limit", "must be between 1 and 500"))
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.ListNotifications(r.Context(), chi.URLParam(r, "affiliate_id"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewNotificationsResponse(notifications))
}

func (h *CommissionHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "affiliate_id"), chi.URLParam(r, "notification_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommissionHandler) EstablishCommission(w http.ResponseWriter, r *http.Request) {
	sale, err := h.ledger.Establish(r.Context(), chi.URLParam(r, "sale_id"), h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewSaleResponse(sale))
}

func (h *CommissionHandler) RecordRefund(w http.ResponseWriter, r *http.Request) {
	var req commission.RecordRefundRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, err := h.refunds.RecordRefund(r.Context(), chi.URLParam(r, "sale_id"), req.RefundID, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commission.NewSaleResponse(sale))
}

func (h *CommissionHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req commission.CreateRefundRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeDomainError(w, domain.NewValidationError("amount", "must be a decimal"))
			return
		}
		amount = parsed
	}

	rf, err := h.refunds.CreateRefund(r.Context(), chi.URLParam(r, "sale_id"), amount, req.Reason, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, commission.NewRefundResponse(rf))
}
