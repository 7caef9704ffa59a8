package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *CommissionHandler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/payouts", h.InitiatePayout)
		r.Get("/payouts/{payment_id}", h.GetPayment)
		r.Post("/reconciliation/runs", h.RunReconciliation)

		r.Route("/affiliates/{affiliate_id}", func(r chi.Router) {
			r.Get("/onboarding", h.OnboardingStatus)
			r.Put("/payout-account", h.ConnectAccount)
			r.Delete("/payout-account", h.Disconnect)
			r.Get("/payment-history", h.ListPaymentHistory)
			r.Get("/notifications", h.ListNotifications)
			r.Post("/notifications/{notification_id}/read", h.MarkNotificationRead)
		})

		r.Route("/sales/{sale_id}", func(r chi.Router) {
			r.Post("/commission", h.EstablishCommission)
			r.Post("/refunds", h.RecordRefund)
			r.Post("/refunds/issue", h.CreateRefund)
		})
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
