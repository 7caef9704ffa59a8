package commission

import (
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
)

type PaymentResponse struct {
	ID             string     `json:"id"`
	AffiliateID    string     `json:"affiliate_id"`
	SaleIDs        []string   `json:"sale_ids"`
	SaleAmount     string     `json:"sale_amount"`
	PaidCommission string     `json:"paid_commission"`
	Method         string     `json:"method"`
	TransactionID  string     `json:"transaction_id"`
	Status         string     `json:"status"`
	Currency       string     `json:"currency"`
	Date           time.Time  `json:"date"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

func NewPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		AffiliateID:    p.AffiliateID,
		SaleIDs:        p.SaleIDs,
		SaleAmount:     p.SaleAmount.StringFixed(domain.MoneyPlaces),
		PaidCommission: p.PaidCommission.StringFixed(domain.MoneyPlaces),
		Method:         string(p.Method),
		TransactionID:  p.TransactionID,
		Status:         string(p.Status),
		Currency:       p.Currency,
		Date:           p.Date,
		PaidAt:         p.PaidAt,
	}
}

type PaymentHistoryResponse struct {
	TransactionID string     `json:"transaction_id"`
	PaymentID     string     `json:"payment_id"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	Date          time.Time  `json:"date"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func NewPaymentHistoryResponse(entries []*domain.PaymentHistoryEntry) []PaymentHistoryResponse {
	out := make([]PaymentHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, PaymentHistoryResponse{
			TransactionID: e.TransactionID,
			PaymentID:     e.PaymentID,
			Amount:        e.Amount.StringFixed(domain.MoneyPlaces),
			Currency:      e.Currency,
			Status:        string(e.Status),
			Date:          e.Date,
			PaidAt:        e.PaidAt,
		})
	}
	return out
}

type ReconciliationRunResponse struct {
	ID         string    `json:"id"`
	Since      time.Time `json:"since"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Candidates int       `json:"candidates"`
	Paid       int       `json:"paid"`
	Reversed   int       `json:"reversed"`
	Unchanged  int       `json:"unchanged"`
	Failed     int       `json:"failed"`
}

func NewReconciliationRunResponse(run *domain.ReconciliationRun) ReconciliationRunResponse {
	return ReconciliationRunResponse{
		ID:         run.ID,
		Since:      run.Since,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Candidates: run.Candidates,
		Paid:       run.Paid,
		Reversed:   run.Reversed,
		Unchanged:  run.Unchanged,
		Failed:     run.Failed,
	}
}

type OnboardingStatusResponse struct {
	AffiliateID      string   `json:"affiliate_id"`
	State            string   `json:"state"`
	AccountID        string   `json:"account_id,omitempty"`
	ChargesEnabled   bool     `json:"charges_enabled"`
	PayoutsEnabled   bool     `json:"payouts_enabled"`
	DetailsSubmitted bool     `json:"details_submitted"`
	CurrentlyDue     []string `json:"currently_due"`
}

func NewOnboardingStatusResponse(s *domain.OnboardingStatus) OnboardingStatusResponse {
	due := s.CurrentlyDue
	if due == nil {
		due = []string{}
	}
	return OnboardingStatusResponse{
		AffiliateID:      s.AffiliateID,
		State:            string(s.State),
		AccountID:        s.AccountID,
		ChargesEnabled:   s.ChargesEnabled,
		PayoutsEnabled:   s.PayoutsEnabled,
		DetailsSubmitted: s.DetailsSubmitted,
		CurrentlyDue:     due,
	}
}

type NotificationResponse struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Text  string    `json:"text"`
	Date  time.Time `json:"date"`
	Read  bool      `json:"read"`
}

func NewNotificationsResponse(ns []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{ID: n.ID, Title: n.Title, Text: n.Text, Date: n.Date, Read: n.Read})
	}
	return out
}

type SaleResponse struct {
	ID               string `json:"id"`
	RefID            string `json:"ref_id"`
	CommissionEarned string `json:"commission_earned"`
	CommissionStatus string `json:"commission_status"`
	RefundStatus     string `json:"refund_status"`
	RefundedAmount   string `json:"refunded_amount"`
	Currency         string `json:"currency"`
}

func NewSaleResponse(s *domain.Sale) SaleResponse {
	return SaleResponse{
		ID:               s.ID,
		RefID:            s.RefID,
		CommissionEarned: s.CommissionEarned.StringFixed(domain.MoneyPlaces),
		CommissionStatus: string(s.CommissionStatus),
		RefundStatus:     string(s.RefundStatus),
		RefundedAmount:   s.RefundedAmount.StringFixed(domain.MoneyPlaces),
		Currency:         s.Currency,
	}
}

type RefundResponse struct {
	ID       string `json:"id"`
	ChargeID string `json:"charge_id"`
	State    string `json:"state"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func NewRefundResponse(r *domain.Refund) RefundResponse {
	return RefundResponse{
		ID:       r.ID,
		ChargeID: r.ChargeID,
		State:    string(r.State),
		Amount:   r.Amount.StringFixed(domain.MoneyPlaces),
		Currency: r.Currency,
	}
}

type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
