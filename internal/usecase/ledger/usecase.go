package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
)

const defaultBatchSize = 500

type LedgerUsecase interface {
	// Establish fixes commissionEarned on a single sale if it is not set yet
	// and returns the sale as stored.
	Establish(ctx context.Context, saleID string, now time.Time) (*domain.Sale, error)
	// EstablishPending runs Establish over ingested sales that have none.
	EstablishPending(ctx context.Context, now time.Time) (int, error)
}

type DefaultLedgerUsecase struct {
	saleRepo  domain.SaleRepository
	logger    *slog.Logger
	batchSize int
}

func NewDefaultLedgerUsecase(saleRepo domain.SaleRepository, logger *slog.Logger) *DefaultLedgerUsecase {
	return &DefaultLedgerUsecase{
		saleRepo:  saleRepo,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

func (uc *DefaultLedgerUsecase) Establish(ctx context.Context, saleID string, now time.Time) (*domain.Sale, error) {
	sale, err := uc.saleRepo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.establish(ctx, sale, now); err != nil {
		return nil, err
	}
	return sale, nil
}

func (uc *DefaultLedgerUsecase) establish(ctx context.Context, sale *domain.Sale, now time.Time) (bool, error) {
	if !sale.EstablishCommission(now.UTC()) {
		return false, nil
	}
	written, err := uc.saleRepo.EstablishCommission(ctx, sale.ID, sale.CommissionEarned, *sale.CommissionEstablishedAt)
	if err != nil {
		return false, err
	}
	if !written {
		// another writer got there first; its value wins
		stored, err := uc.saleRepo.GetSaleByID(ctx, sale.ID)
		if err != nil {
			return false, err
		}
		*sale = *stored
	}
	return written, nil
}

func (uc *DefaultLedgerUsecase) EstablishPending(ctx context.Context, now time.Time) (int, error) {
	established := 0
	for {
		sales, err := uc.saleRepo.FindUnestablished(ctx, uc.batchSize)
		if err != nil {
			return established, err
		}
		if len(sales) == 0 {
			return established, nil
		}

		progressed := false
		for _, sale := range sales {
			written, err := uc.establish(ctx, sale, now)
			if err != nil {
				uc.logger.Error("failed to establish commission", "sale_id", sale.ID, "error", err)
				continue
			}
			if written {
				established++
				progressed = true
			}
		}
		if !progressed || len(sales) < uc.batchSize {
			return established, nil
		}
	}
}
