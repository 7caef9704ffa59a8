package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/app/background"
	"github.com/LavaJover/shvark-commission-service/internal/app/setup"
	"github.com/LavaJover/shvark-commission-service/internal/config"
	"github.com/LavaJover/shvark-commission-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-commission-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/migrate"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()
	logger := setup.NewLogger(cfg.LogConfig, os.Stdout)
	slog.SetDefault(logger)

	deps, err := setup.InitializeDependencies(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}
	defer deps.Close()

	if err := migrate.RunMigrations(deps.DB, cfg.CommissionDB.MigrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		log.Fatalf("failed to init usecases: %v", err)
	}
	jobs, err := setup.BuildJobs(deps, uc)
	if err != nil {
		log.Fatalf("failed to build jobs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := background.NewBackgroundTasks(deps.RunGuard, logger, jobs...)
	tasks.StartAll(ctx)

	// HTTP API
	handler := handlers.NewCommissionHandler(
		uc.Payouts,
		uc.Reconciliation,
		uc.Onboarding,
		uc.Notifications,
		uc.Refunds,
		uc.Ledger,
		deps.RunGuard,
		cfg.Reconciliation.Lookback(),
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:           handlers.NewRouter(handler, deps.Registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve http: %v", err)
		}
	}()

	// gRPC health
	grpcServer, reporter := grpcapi.NewServer(healthDependencies(deps), 0, logger)
	go reporter.Run(ctx)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go func() {
		logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("failed to serve grpc: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	tasks.Wait()
}

func healthDependencies(deps *setup.Dependencies) map[string]grpcapi.Pinger {
	checks := make(map[string]grpcapi.Pinger)
	if sqlDB, err := deps.DB.DB(); err == nil {
		checks["postgres"] = sqlDB
	}
	if deps.Redis != nil {
		checks["redis"] = grpcapi.PingFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}
	return checks
}
