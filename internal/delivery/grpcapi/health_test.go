package grpcapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthReporterCheck(t *testing.T) {
	var dbErr error
	deps := map[string]Pinger{"postgres": PingFunc(func(context.Context) error { return dbErr })}
	_, reporter := NewServer(deps, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := reporter.Check(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %s", got)
	}
	resp, err := reporter.server.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health service status = %v, err = %v", resp, err)
	}

	dbErr = errors.New("connection refused")
	if got := reporter.Check(context.Background()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %s", got)
	}
}
