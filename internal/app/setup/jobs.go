package setup

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/app/background"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/reconciliation"
)

const establishInterval = 5 * time.Minute

// BuildJobs lists the scheduled jobs the service runs.
func BuildJobs(deps *Dependencies, uc *UseCases) ([]background.Job, error) {
	loc, err := deps.Config.Reminder.Location()
	if err != nil {
		return nil, err
	}
	return []background.Job{
		{
			Name:     "onboarding-reminders",
			Schedule: background.DailySchedule{Hour: deps.Config.Reminder.Hour, Minute: deps.Config.Reminder.Minute, Location: loc},
			Task:     uc.Reminders,
		},
		{
			Name:     reconciliation.JobName,
			Schedule: background.IntervalSchedule{Every: deps.Config.Reconciliation.Interval},
			Task:     uc.Reconciliation,
		},
		{
			Name:     "commission-establishment",
			Schedule: background.IntervalSchedule{Every: establishInterval},
			Task: background.TaskFunc(func(ctx context.Context, now time.Time) error {
				_, err := uc.Ledger.EstablishPending(ctx, now)
				return err
			}),
		},
	}, nil
}
