package logger

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/testutil"
)

func TestRunLogger(t *testing.T) {
	db := testutil.NewTestDB(t)
	l := NewPGRunLogger(db)
	ctx := context.Background()

	if run, err := l.LastRun(ctx); err != nil || run != nil {
		t.Fatalf("empty log = %+v, %v", run, err)
	}

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		run := &domain.ReconciliationRun{
			ID:         id,
			Since:      start.Add(-48 * time.Hour),
			StartedAt:  start.Add(time.Duration(i) * time.Hour),
			FinishedAt: start.Add(time.Duration(i)*time.Hour + time.Second),
			Candidates: 3,
			Paid:       i,
		}
		if err := l.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	last, err := l.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if last.ID != "run-b" || last.Paid != 1 || last.Candidates != 3 {
		t.Fatalf("last run = %+v", last)
	}
}
