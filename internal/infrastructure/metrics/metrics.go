package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CommissionMetrics holds the service's payout and reconciliation metrics.
// A nil *CommissionMetrics records nothing.
type CommissionMetrics struct {
	PayoutsInitiatedTotal   *prometheus.CounterVec
	PayoutsRejectedTotal    *prometheus.CounterVec
	PayoutAmountTotal       *prometheus.CounterVec
	ProcessorCallDuration   *prometheus.HistogramVec
	ProcessorErrorsTotal    *prometheus.CounterVec
	ReconciledPaymentsTotal *prometheus.CounterVec
	ReconciliationDuration  prometheus.Histogram
	RemindersSentTotal      prometheus.Counter
	NotificationsTotal      *prometheus.CounterVec
	RefundsAppliedTotal     *prometheus.CounterVec
}

func NewCommissionMetrics(reg prometheus.Registerer) *CommissionMetrics {
	factory := promauto.With(reg)
	return &CommissionMetrics{
		PayoutsInitiatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_payouts_initiated_total",
				Help: "Payouts whose transfer was created and sales claimed",
			},
			[]string{"currency"},
		),
		PayoutsRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_payouts_rejected_total",
				Help: "Payout requests refused before or during initiation",
			},
			[]string{"reason"},
		),
		PayoutAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_payout_amount_total",
				Help: "Commission amount sent in initiated payouts",
			},
			[]string{"currency"},
		),
		ProcessorCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commission_processor_call_duration_seconds",
				Help:    "Payment processor round-trip time",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
			},
			[]string{"op"},
		),
		ProcessorErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_processor_errors_total",
				Help: "Failed payment processor calls",
			},
			[]string{"op"},
		),
		ReconciledPaymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_reconciled_payments_total",
				Help: "Reconciliation outcomes per candidate payment",
			},
			[]string{"outcome"},
		),
		ReconciliationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "commission_reconciliation_duration_seconds",
				Help:    "Duration of a full reconciliation pass",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		RemindersSentTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commission_onboarding_reminders_total",
				Help: "Onboarding reminders appended",
			},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_notifications_total",
				Help: "Notification writes by result",
			},
			[]string{"result"},
		),
		RefundsAppliedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_refunds_applied_total",
				Help: "Refunds folded into sales by resulting refund status",
			},
			[]string{"refund_status"},
		),
	}
}

func (m *CommissionMetrics) RecordPayoutInitiated(currency string, amount float64) {
	if m == nil {
		return
	}
	m.PayoutsInitiatedTotal.WithLabelValues(currency).Inc()
	m.PayoutAmountTotal.WithLabelValues(currency).Add(amount)
}

func (m *CommissionMetrics) RecordPayoutRejected(reason string) {
	if m == nil {
		return
	}
	m.PayoutsRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *CommissionMetrics) RecordProcessorCall(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.ProcessorCallDuration.WithLabelValues(op).Observe(seconds)
	if err != nil {
		m.ProcessorErrorsTotal.WithLabelValues(op).Inc()
	}
}

// RecordReconciled counts one candidate; outcome is paid, reversed, unchanged or failed.
func (m *CommissionMetrics) RecordReconciled(outcome string) {
	if m == nil {
		return
	}
	m.ReconciledPaymentsTotal.WithLabelValues(outcome).Inc()
}

func (m *CommissionMetrics) RecordReconciliationDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ReconciliationDuration.Observe(seconds)
}

func (m *CommissionMetrics) RecordReminder() {
	if m == nil {
		return
	}
	m.RemindersSentTotal.Inc()
}

func (m *CommissionMetrics) RecordNotification(created bool) {
	if m == nil {
		return
	}
	result := "deduplicated"
	if created {
		result = "created"
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

func (m *CommissionMetrics) RecordRefundApplied(refundStatus string) {
	if m == nil {
		return
	}
	m.RefundsAppliedTotal.WithLabelValues(refundStatus).Inc()
}
