package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/testutil"
)

func TestReminderCadence(t *testing.T) {
	e := newEnv(t)
	aff := testutil.SeedAffiliate(t, e.db, "acct_1")
	e.processor.SetAccount(&domain.ConnectedAccount{ID: "acct_1"})
	ctx := context.Background()
	seeded := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	if _, err := e.onboarding.Status(ctx, aff.ID, seeded); err != nil {
		t.Fatalf("Status: %v", err)
	}
	reminderTitle := domain.ReminderTitle(domain.OnboardingInProgress)

	tests := []struct {
		name      string
		at        time.Time
		reminders int64
	}{
		{"six days after seed", seeded.Add(6 * 24 * time.Hour), 0},
		{"seven days after seed", seeded.Add(7 * 24 * time.Hour), 1},
		{"same day as reminder", seeded.Add(7*24*time.Hour + time.Hour), 1},
		{"seven days after reminder", seeded.Add(14 * 24 * time.Hour), 2},
	}
	for _, tt := range tests {
		if _, err := e.reminders.Run(ctx, tt.at); err != nil {
			t.Fatalf("%s: Run: %v", tt.name, err)
		}
		if n := testutil.CountNotifications(t, e.db, aff.ID, reminderTitle); n != tt.reminders {
			t.Fatalf("%s: reminders = %d, want %d", tt.name, n, tt.reminders)
		}
	}
}

func TestReminderCadenceNotStarted(t *testing.T) {
	e := newEnv(t)
	aff := testutil.SeedAffiliate(t, e.db, "")
	ctx := context.Background()
	first := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	reminderTitle := domain.ReminderTitle(domain.OnboardingNotStarted)

	tests := []struct {
		name      string
		at        time.Time
		reminders int64
	}{
		{"no notice yet", first, 1},
		{"last reminder six days old", first.Add(6 * 24 * time.Hour), 1},
		{"last reminder exactly seven days old", first.Add(7 * 24 * time.Hour), 2},
		{"later the same day", first.Add(7*24*time.Hour + 3*time.Hour), 2},
	}
	for _, tt := range tests {
		if _, err := e.reminders.Run(ctx, tt.at); err != nil {
			t.Fatalf("%s: Run: %v", tt.name, err)
		}
		if n := testutil.CountNotifications(t, e.db, aff.ID, reminderTitle); n != tt.reminders {
			t.Fatalf("%s: reminders = %d, want %d", tt.name, n, tt.reminders)
		}
	}
	if e.processor.AccountCalls != 0 {
		t.Fatalf("processor consulted %d times for an affiliate without an account", e.processor.AccountCalls)
	}
}

func TestReminderSkipsCompleteAndCountsFailures(t *testing.T) {
	e := newEnv(t)
	done := testutil.SeedAffiliate(t, e.db, "acct_done")
	fresh := testutil.SeedAffiliate(t, e.db, "")
	broken := testutil.SeedAffiliate(t, e.db, "acct_missing")
	e.processor.SetAccount(&domain.ConnectedAccount{ID: "acct_done", PayoutsEnabled: true})

	report, err := e.reminders.Run(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Scanned != 3 || report.Complete != 1 || report.Reminded != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if n := testutil.CountNotifications(t, e.db, fresh.ID, domain.ReminderTitle(domain.OnboardingNotStarted)); n != 1 {
		t.Fatalf("never-onboarded affiliate reminders = %d", n)
	}
	if n := testutil.CountNotifications(t, e.db, done.ID, domain.ReminderTitle(domain.OnboardingComplete)); n != 0 {
		t.Fatalf("complete affiliate was reminded")
	}
	if n := testutil.CountNotifications(t, e.db, broken.ID, domain.ReminderTitle(domain.OnboardingInProgress)); n != 0 {
		t.Fatalf("failed affiliate was reminded")
	}
}
