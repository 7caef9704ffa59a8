package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-commission-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestEstablishFixesCommission(t *testing.T) {
	db := testutil.NewTestDB(t)
	uc := NewDefaultLedgerUsecase(repository.NewDefaultSaleRepository(db), testutil.DiscardLogger())
	ctx := context.Background()
	sale := testutil.SeedSale(t, db, "ref-1", func(s *models.SaleModel) {
		s.Discount = decimal.RequireFromString("20.00")
		s.CommissionRate = decimal.RequireFromString("0.125")
	})

	got, err := uc.Establish(ctx, sale.ID, time.Now())
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if !got.CommissionEarned.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("earned = %s, want 10", got.CommissionEarned)
	}

	// a later rate change never recomputes an established commission
	if err := db.Model(&models.SaleModel{}).Where("id = ?", sale.ID).Update("commission_rate", decimal.RequireFromString("0.5")).Error; err != nil {
		t.Fatalf("update rate: %v", err)
	}
	got, err = uc.Establish(ctx, sale.ID, time.Now())
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if !got.CommissionEarned.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("earned after rate change = %s", got.CommissionEarned)
	}
}

func TestEstablishUnknownSale(t *testing.T) {
	db := testutil.NewTestDB(t)
	uc := NewDefaultLedgerUsecase(repository.NewDefaultSaleRepository(db), testutil.DiscardLogger())
	if _, err := uc.Establish(context.Background(), uuid.NewString(), time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEstablishPendingBatches(t *testing.T) {
	db := testutil.NewTestDB(t)
	uc := NewDefaultLedgerUsecase(repository.NewDefaultSaleRepository(db), testutil.DiscardLogger())
	uc.batchSize = 2
	for i := 0; i < 5; i++ {
		testutil.SeedSale(t, db, "ref-1")
	}
	testutil.SeedSale(t, db, "ref-1", testutil.WithCommission("1.00"))

	n, err := uc.EstablishPending(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("EstablishPending: %v", err)
	}
	if n != 5 {
		t.Fatalf("established %d, want 5", n)
	}
	if n, _ := uc.EstablishPending(context.Background(), time.Now()); n != 0 {
		t.Fatalf("second pass established %d", n)
	}
}
