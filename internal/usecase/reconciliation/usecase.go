package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
	"github.com/jaevor/go-nanoid"
)

const DefaultLookback = 48 * time.Hour

// JobName is the run-guard key shared by scheduled, CLI and HTTP runs.
const JobName = "reconciliation"

// TransferReader is the processor call reconciliation depends on.
type TransferReader interface {
	RetrieveTransfer(ctx context.Context, transferID string) (*domain.Transfer, error)
}

type ReconciliationUsecase interface {
	// Run reconciles every candidate payment created within lookback of now.
	Run(ctx context.Context, now time.Time, lookback time.Duration) (*domain.ReconciliationRun, error)
	Tick(ctx context.Context, now time.Time) error
}

type DefaultReconciliationUsecase struct {
	paymentRepo   domain.PaymentRepository
	transfers     TransferReader
	notifications notification.NotificationUsecase
	publisher     domain.EventPublisher
	runLog        domain.ReconciliationRunRepository
	method        domain.PayoutMethod
	lookback      time.Duration
	metrics       *metrics.CommissionMetrics
	logger        *slog.Logger
	newRunID      func() string
}

func NewDefaultReconciliationUsecase(
	paymentRepo domain.PaymentRepository,
	transfers TransferReader,
	notifications notification.NotificationUsecase,
	publisher domain.EventPublisher,
	runLog domain.ReconciliationRunRepository,
	method domain.PayoutMethod,
	lookback time.Duration,
	m *metrics.CommissionMetrics,
	logger *slog.Logger,
) (*DefaultReconciliationUsecase, error) {
	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, fmt.Errorf("failed to init run id generator: %w", err)
	}
	if method == "" {
		method = domain.MethodStripeTransfer
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &DefaultReconciliationUsecase{
		paymentRepo:   paymentRepo,
		transfers:     transfers,
		notifications: notifications,
		publisher:     publisher,
		runLog:        runLog,
		method:        method,
		lookback:      lookback,
		metrics:       m,
		logger:        logger,
		newRunID:      idGenerator,
	}, nil
}

// Tick runs one pass with the configured look-back window.
func (uc *DefaultReconciliationUsecase) Tick(ctx context.Context, now time.Time) error {
	_, err := uc.Run(ctx, now, uc.lookback)
	return err
}
