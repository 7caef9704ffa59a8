package onboarding

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
)

const (
	DefaultReminderCadence = 7 * 24 * time.Hour
	reminderPageSize       = 200
)

type ReminderReport struct {
	Scanned  int
	Complete int
	Reminded int
	Failed   int
}

// ReminderScheduler nudges affiliates who have not finished onboarding. It
// appends a reminder when the newest notice for the current state is at
// least one cadence old.
type ReminderScheduler struct {
	affiliateRepo domain.AffiliateRepository
	accounts      domain.AccountReader
	notifications notification.NotificationUsecase
	cadence       time.Duration
	metrics       *metrics.CommissionMetrics
	logger        *slog.Logger
}

func NewReminderScheduler(
	affiliateRepo domain.AffiliateRepository,
	accounts domain.AccountReader,
	notifications notification.NotificationUsecase,
	cadence time.Duration,
	m *metrics.CommissionMetrics,
	logger *slog.Logger,
) *ReminderScheduler {
	if cadence <= 0 {
		cadence = DefaultReminderCadence
	}
	return &ReminderScheduler{
		affiliateRepo: affiliateRepo,
		accounts:      accounts,
		notifications: notifications,
		cadence:       cadence,
		metrics:       m,
		logger:        logger,
	}
}

// Run scans every affiliate once. Per-affiliate failures are logged and
// counted; only a failure to page through affiliates aborts the scan.
func (s *ReminderScheduler) Run(ctx context.Context, now time.Time) (ReminderReport, error) {
	var report ReminderReport
	afterID := ""
	for {
		affiliates, err := s.affiliateRepo.ListAffiliatesAfter(ctx, afterID, reminderPageSize)
		if err != nil {
			return report, err
		}
		for _, affiliate := range affiliates {
			report.Scanned++
			reminded, complete, err := s.remind(ctx, affiliate, now)
			switch {
			case err != nil:
				report.Failed++
				s.logger.Error("onboarding reminder failed", "affiliate_id", affiliate.ID, "error", err)
			case complete:
				report.Complete++
			case reminded:
				report.Reminded++
			}
		}
		if len(affiliates) < reminderPageSize {
			break
		}
		afterID = affiliates[len(affiliates)-1].ID
	}

	s.logger.Info("onboarding reminder scan finished",
		"scanned", report.Scanned, "reminded", report.Reminded, "failed", report.Failed)
	return report, nil
}

func (s *ReminderScheduler) remind(ctx context.Context, affiliate *domain.Affiliate, now time.Time) (reminded, complete bool, err error) {
	state, _, err := deriveState(ctx, s.accounts, affiliate)
	if err != nil {
		return false, false, err
	}
	if state == domain.OnboardingComplete {
		return false, true, nil
	}

	latest, err := s.notifications.Latest(ctx, affiliate.ID, domain.StateTitle(state), domain.ReminderTitle(state))
	if err != nil {
		return false, false, err
	}
	if latest != nil && now.Sub(latest.Date) < s.cadence {
		return false, false, nil
	}

	if _, err := s.notifications.Notify(ctx, affiliate.ID,
		domain.ReminderTitle(state), domain.StateText(state), domain.DedupNone, now); err != nil {
		return false, false, err
	}
	s.metrics.RecordReminder()
	return true, false, nil
}

// Tick runs one scan.
func (s *ReminderScheduler) Tick(ctx context.Context, now time.Time) error {
	_, err := s.Run(ctx, now)
	return err
}
