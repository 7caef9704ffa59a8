package postgres

import (
	"fmt"
	"log"

	"github.com/LavaJover/shvark-commission-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MustInitDB(cfg *config.CommissionConfig) *gorm.DB {
	db, err := InitDB(cfg.CommissionDB.Dsn)
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}
	return db
}

// InitDB opens the pool; schema changes come from the migrations directory.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}
