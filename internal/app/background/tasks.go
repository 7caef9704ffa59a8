package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/lock"
)

type Job struct {
	Name     string
	Schedule Schedule
	Task     Task
}

type BackgroundTasks struct {
	jobs   []Job
	guard  lock.RunGuard
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewBackgroundTasks(guard lock.RunGuard, logger *slog.Logger, jobs ...Job) *BackgroundTasks {
	if guard == nil {
		guard = lock.NewLocalRunGuard()
	}
	return &BackgroundTasks{
		jobs:   jobs,
		guard:  guard,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	for _, job := range bt.jobs {
		bt.wg.Add(1)
		go func(job Job) {
			defer bt.wg.Done()
			bt.runScheduled(ctx, job)
		}(job)
	}
}

// Wait blocks until every job loop has returned after ctx is cancelled.
func (bt *BackgroundTasks) Wait() {
	bt.wg.Wait()
}

func (bt *BackgroundTasks) runScheduled(ctx context.Context, job Job) {
	for {
		next := job.Schedule.Next(bt.now())
		bt.logger.Info("job scheduled", "job", job.Name, "next_run", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := bt.RunOnce(ctx, job, bt.now()); err != nil {
				bt.logger.Error("job failed", "job", job.Name, "error", err)
			}
		}
	}
}

// RunOnce ticks the job unless another runner holds it. It reports whether
// the job actually ran.
func (bt *BackgroundTasks) RunOnce(ctx context.Context, job Job, now time.Time) (bool, error) {
	release, ok, err := bt.guard.TryAcquire(ctx, job.Name)
	if err != nil {
		return false, err
	}
	if !ok {
		bt.logger.Info("job already running elsewhere, skipping", "job", job.Name)
		return false, nil
	}
	defer release()

	start := time.Now()
	err = job.Task.Tick(ctx, now)
	bt.logger.Info("job finished", "job", job.Name, "duration", time.Since(start))
	return true, err
}
