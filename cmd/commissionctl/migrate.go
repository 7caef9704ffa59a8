package main

import (
	"fmt"

	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(db *gorm.DB, path string) error {
				return migrate.RunMigrations(db, path)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			return withDB(cmd, func(db *gorm.DB, path string) error {
				return migrate.RollbackMigrations(db, path, steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}

func withDB(cmd *cobra.Command, fn func(db *gorm.DB, path string) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := postgres.InitDB(cfg.CommissionDB.Dsn)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(db, cfg.CommissionDB.MigrationsPath)
}
