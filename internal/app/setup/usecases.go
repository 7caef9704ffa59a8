package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/ledger"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/onboarding"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/payout"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/reconciliation"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/refund"
)

type UseCases struct {
	Ledger         *ledger.DefaultLedgerUsecase
	Notifications  *notification.DefaultNotificationUsecase
	Onboarding     *onboarding.DefaultOnboardingUsecase
	Reminders      *onboarding.ReminderScheduler
	Payouts        *payout.DefaultPayoutUsecase
	Reconciliation *reconciliation.DefaultReconciliationUsecase
	Refunds        *refund.DefaultRefundUsecase
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	cfg := deps.Config
	repos := deps.Repositories

	notificationUsecase, err := notification.NewDefaultNotificationUsecase(
		repos.NotificationRepo, deps.Publisher, deps.Metrics, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("notification usecase: %w", err)
	}

	ledgerUsecase := ledger.NewDefaultLedgerUsecase(repos.SaleRepo, deps.Logger)

	onboardingUsecase := onboarding.NewDefaultOnboardingUsecase(
		repos.AffiliateRepo,
		deps.Processor,
		deps.AccountCache,
		notificationUsecase,
		deps.Logger,
	)

	reminderScheduler := onboarding.NewReminderScheduler(
		repos.AffiliateRepo,
		deps.AccountCache,
		notificationUsecase,
		cfg.Reminder.Cadence,
		deps.Metrics,
		deps.Logger,
	)

	payoutUsecase := payout.NewDefaultPayoutUsecase(
		repos.SaleRepo,
		repos.PaymentRepo,
		repos.AffiliateRepo,
		deps.Processor,
		onboardingUsecase,
		ledgerUsecase,
		notificationUsecase,
		deps.Publisher,
		deps.Metrics,
		deps.Logger,
	)

	reconciliationUsecase, err := reconciliation.NewDefaultReconciliationUsecase(
		repos.PaymentRepo,
		deps.Processor,
		notificationUsecase,
		deps.Publisher,
		repos.RunLog,
		domain.PayoutMethod(cfg.Reconciliation.Method),
		cfg.Reconciliation.Lookback(),
		deps.Metrics,
		deps.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("reconciliation usecase: %w", err)
	}

	refundUsecase := refund.NewDefaultRefundUsecase(
		repos.SaleRepo,
		repos.AffiliateRepo,
		deps.Processor,
		notificationUsecase,
		deps.Metrics,
		deps.Logger,
	)

	return &UseCases{
		Ledger:         ledgerUsecase,
		Notifications:  notificationUsecase,
		Onboarding:     onboardingUsecase,
		Reminders:      reminderScheduler,
		Payouts:        payoutUsecase,
		Reconciliation: reconciliationUsecase,
		Refunds:        refundUsecase,
	}, nil
}
