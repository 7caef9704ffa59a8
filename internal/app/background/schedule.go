package background

import (
	"context"
	"time"
)

// Task is a recurring job driven by an explicit trigger so callers control
// the clock.
type Task interface {
	Tick(ctx context.Context, now time.Time) error
}

type TaskFunc func(ctx context.Context, now time.Time) error

func (f TaskFunc) Tick(ctx context.Context, now time.Time) error { return f(ctx, now) }

type Schedule interface {
	// Next returns the first activation strictly after the given time.
	Next(after time.Time) time.Time
}

// DailySchedule fires once a day at Hour:Minute in Location.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (s DailySchedule) Next(after time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, loc)
	}
	return next
}

type IntervalSchedule struct {
	Every time.Duration
}

func (s IntervalSchedule) Next(after time.Time) time.Time {
	every := s.Every
	if every <= 0 {
		every = time.Minute
	}
	return after.Add(every)
}
