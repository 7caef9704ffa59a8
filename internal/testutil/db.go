// Package testutil holds fixtures shared by repository and usecase tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedAffiliate(t *testing.T, db *gorm.DB, accountID string) *models.AffiliateModel {
	t.Helper()
	id := uuid.NewString()
	m := &models.AffiliateModel{
		ID:              id,
		RefID:           "ref-" + id[:8],
		Email:           id[:8] + "@example.com",
		Name:            "Affiliate " + id[:8],
		StripeAccountID: accountID,
		TotalCommission: decimal.Zero,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed affiliate: %v", err)
	}
	return m
}

type SaleOption func(*models.SaleModel)

func WithCommission(earned string) SaleOption {
	return func(s *models.SaleModel) {
		at := time.Now().UTC()
		s.CommissionEarned = decimal.RequireFromString(earned)
		s.CommissionEstablishedAt = &at
	}
}

func WithStatus(status string) SaleOption {
	return func(s *models.SaleModel) { s.CommissionStatus = status }
}

func WithCurrency(currency string) SaleOption {
	return func(s *models.SaleModel) { s.Currency = currency }
}

// SeedSale stores a 100.00 usd sale at a 10% rate for the affiliate's ref id.
// Its commission is not established unless WithCommission is passed.
func SeedSale(t *testing.T, db *gorm.DB, refID string, opts ...SaleOption) *models.SaleModel {
	t.Helper()
	now := time.Now().UTC()
	m := &models.SaleModel{
		ID:               uuid.NewString(),
		RefID:            refID,
		OrderID:          "order-" + uuid.NewString()[:8],
		ChargeID:         "ch_" + uuid.NewString()[:12],
		Subtotal:         decimal.RequireFromString("100.00"),
		Discount:         decimal.Zero,
		Currency:         "usd",
		CommissionRate:   decimal.RequireFromString("0.10"),
		CommissionStatus: "unpaid",
		RefundStatus:     "none",
		RefundedAmount:   decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	return m
}

func LoadSale(t *testing.T, db *gorm.DB, id string) *models.SaleModel {
	t.Helper()
	var m models.SaleModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		t.Fatalf("load sale %s: %v", id, err)
	}
	return &m
}

func LoadAffiliate(t *testing.T, db *gorm.DB, id string) *models.AffiliateModel {
	t.Helper()
	var m models.AffiliateModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		t.Fatalf("load affiliate %s: %v", id, err)
	}
	return &m
}

func CountNotifications(t *testing.T, db *gorm.DB, affiliateID, title string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.NotificationModel{}).
		Where("affiliate_id = ? AND title = ?", affiliateID, title).
		Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}
