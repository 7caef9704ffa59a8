package logger

import (
	"context"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

// PGRunLogger keeps one row per reconciliation pass.
type PGRunLogger struct {
	db *gorm.DB
}

func NewPGRunLogger(db *gorm.DB) *PGRunLogger {
	return &PGRunLogger{db: db}
}

func (l *PGRunLogger) RecordRun(ctx context.Context, run *domain.ReconciliationRun) error {
	return l.db.WithContext(ctx).Create(&models.ReconciliationRunModel{
		ID:         run.ID,
		Since:      run.Since.UTC(),
		StartedAt:  run.StartedAt.UTC(),
		FinishedAt: run.FinishedAt.UTC(),
		Candidates: run.Candidates,
		Paid:       run.Paid,
		Reversed:   run.Reversed,
		Unchanged:  run.Unchanged,
		Failed:     run.Failed,
	}).Error
}

// LastRun returns the most recent pass, or nil before the first one.
func (l *PGRunLogger) LastRun(ctx context.Context) (*domain.ReconciliationRun, error) {
	var model models.ReconciliationRunModel
	res := l.db.WithContext(ctx).Order("started_at DESC").Limit(1).Find(&model)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &domain.ReconciliationRun{
		ID:         model.ID,
		Since:      model.Since,
		StartedAt:  model.StartedAt,
		FinishedAt: model.FinishedAt,
		Candidates: model.Candidates,
		Paid:       model.Paid,
		Reversed:   model.Reversed,
		Unchanged:  model.Unchanged,
		Failed:     model.Failed,
	}, nil
}
