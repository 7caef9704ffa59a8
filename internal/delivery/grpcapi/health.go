package grpcapi

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "commission.v1.CommissionService"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthReporter struct {
	server   *health.Server
	deps     map[string]Pinger
	interval time.Duration
	logger   *slog.Logger
}

// NewServer returns a gRPC server exposing the standard health service and the
// reporter that keeps it current.
func NewServer(deps map[string]Pinger, interval time.Duration, logger *slog.Logger) (*grpc.Server, *HealthReporter) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if interval <= 0 {
		interval = 15 * time.Second
	}
	return srv, &HealthReporter{server: hs, deps: deps, interval: interval, logger: logger}
}

// Check pings every dependency once and publishes the combined status.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, dep := range h.deps {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := dep.PingContext(pingCtx)
		cancel()
		if err != nil {
			h.logger.Error("health check failed", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
