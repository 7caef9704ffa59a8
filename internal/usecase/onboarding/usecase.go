package onboarding

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/notification"
)

type OnboardingUsecase interface {
	// LiveState reads the processor directly; it gates payouts.
	LiveState(ctx context.Context, affiliate *domain.Affiliate) (domain.OnboardingState, *domain.ConnectedAccount, error)
	Status(ctx context.Context, affiliateID string, now time.Time) (*domain.OnboardingStatus, error)
	ConnectAccount(ctx context.Context, affiliateID, accountID string, now time.Time) (*domain.OnboardingStatus, error)
	Disconnect(ctx context.Context, affiliateID string, now time.Time) error
}

// cacheInvalidator is implemented by cached account readers.
type cacheInvalidator interface {
	Invalidate(accountID string)
}

type DefaultOnboardingUsecase struct {
	affiliateRepo  domain.AffiliateRepository
	liveAccounts   domain.AccountReader
	cachedAccounts domain.AccountReader
	notifications  notification.NotificationUsecase
	logger         *slog.Logger
}

// NewDefaultOnboardingUsecase takes the processor for the payout gate and a
// possibly cached reader for status reads. cachedAccounts may be the same
// reader as liveAccounts.
func NewDefaultOnboardingUsecase(
	affiliateRepo domain.AffiliateRepository,
	liveAccounts domain.AccountReader,
	cachedAccounts domain.AccountReader,
	notifications notification.NotificationUsecase,
	logger *slog.Logger,
) *DefaultOnboardingUsecase {
	if cachedAccounts == nil {
		cachedAccounts = liveAccounts
	}
	return &DefaultOnboardingUsecase{
		affiliateRepo:  affiliateRepo,
		liveAccounts:   liveAccounts,
		cachedAccounts: cachedAccounts,
		notifications:  notifications,
		logger:         logger,
	}
}

func (uc *DefaultOnboardingUsecase) LiveState(ctx context.Context, affiliate *domain.Affiliate) (domain.OnboardingState, *domain.ConnectedAccount, error) {
	return deriveState(ctx, uc.liveAccounts, affiliate)
}

func deriveState(ctx context.Context, accounts domain.AccountReader, affiliate *domain.Affiliate) (domain.OnboardingState, *domain.ConnectedAccount, error) {
	if !affiliate.HasPayoutAccount() {
		return domain.OnboardingNotStarted, nil, nil
	}
	acct, err := accounts.RetrieveConnectedAccount(ctx, affiliate.StripeAccountID)
	if err != nil {
		return "", nil, err
	}
	return domain.DeriveOnboardingState(affiliate.StripeAccountID, acct), acct, nil
}

// Status derives the current state and seeds its canonical notice the first
// time the state is observed in this onboarding cycle.
func (uc *DefaultOnboardingUsecase) Status(ctx context.Context, affiliateID string, now time.Time) (*domain.OnboardingStatus, error) {
	if affiliateID == "" {
		return nil, domain.NewValidationError("affiliate_id", "required")
	}
	affiliate, err := uc.affiliateRepo.GetAffiliateByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	state, acct, err := deriveState(ctx, uc.cachedAccounts, affiliate)
	if err != nil {
		return nil, err
	}

	if _, err := uc.notifications.Notify(ctx, affiliate.ID,
		domain.StateTitle(state), domain.StateText(state), domain.DedupTitle, now); err != nil {
		uc.logger.Error("failed to seed onboarding notice", "affiliate_id", affiliate.ID, "state", state, "error", err)
	}

	status := &domain.OnboardingStatus{
		AffiliateID: affiliate.ID,
		State:       state,
		AccountID:   affiliate.StripeAccountID,
	}
	if acct != nil {
		status.ChargesEnabled = acct.ChargesEnabled
		status.PayoutsEnabled = acct.PayoutsEnabled
		status.DetailsSubmitted = acct.DetailsSubmitted
		status.CurrentlyDue = acct.CurrentlyDue
	}
	return status, nil
}

func (uc *DefaultOnboardingUsecase) ConnectAccount(ctx context.Context, affiliateID, accountID string, now time.Time) (*domain.OnboardingStatus, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.NewValidationError("account_id", "required")
	}
	if err := uc.affiliateRepo.SetPayoutAccount(ctx, affiliateID, accountID); err != nil {
		return nil, err
	}
	uc.invalidate(accountID)
	return uc.Status(ctx, affiliateID, now)
}

// Disconnect resets the onboarding cycle: the account link is cleared, every
// onboarding notice including reminders is purged, and the disconnected and
// not-started notices are written in the same transaction.
func (uc *DefaultOnboardingUsecase) Disconnect(ctx context.Context, affiliateID string, now time.Time) error {
	if affiliateID == "" {
		return domain.NewValidationError("affiliate_id", "required")
	}
	affiliate, err := uc.affiliateRepo.GetAffiliateByID(ctx, affiliateID)
	if err != nil {
		return err
	}

	seed := []*domain.Notification{
		uc.notifications.Build(affiliate.ID, domain.TitleDisconnected,
			"Your payout account was disconnected. Connect a new one to keep receiving commissions.",
			domain.DedupTitle, now),
		uc.notifications.Build(affiliate.ID, domain.StateTitle(domain.OnboardingNotStarted),
			domain.StateText(domain.OnboardingNotStarted), domain.DedupTitle, now.Add(time.Millisecond)),
	}
	purge := domain.NotificationPurge{
		Titles: domain.OnboardingTitles(),
		Prefix: domain.ReminderPrefix,
	}
	if err := uc.affiliateRepo.Disconnect(ctx, affiliate.ID, purge, seed); err != nil {
		return err
	}

	if affiliate.HasPayoutAccount() {
		uc.invalidate(affiliate.StripeAccountID)
	}
	for _, n := range seed {
		uc.notifications.Publish(ctx, n)
	}
	uc.logger.Info("payout account disconnected", "affiliate_id", affiliate.ID)
	return nil
}

func (uc *DefaultOnboardingUsecase) invalidate(accountID string) {
	if inv, ok := uc.cachedAccounts.(cacheInvalidator); ok {
		inv.Invalidate(accountID)
	}
}
