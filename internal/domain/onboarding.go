package domain

type OnboardingState string

const (
	OnboardingNotStarted OnboardingState = "not_started"
	OnboardingInProgress OnboardingState = "in_progress"
	OnboardingComplete   OnboardingState = "complete"
)

// DeriveOnboardingState is a pure function of the stored account id and the
// processor's live flags. A nil account with an id present reads as in progress.
func DeriveOnboardingState(accountID string, acct *ConnectedAccount) OnboardingState {
	if accountID == "" {
		return OnboardingNotStarted
	}
	if acct != nil && acct.PayoutsEnabled {
		return OnboardingComplete
	}
	return OnboardingInProgress
}

const (
	TitleNotStarted   = "Connect your payout account"
	TitleInProgress   = "Finish setting up your payout account"
	TitleComplete     = "Your payout account is ready"
	TitleDisconnected = "Payout account disconnected"

	// ReminderPrefix is prepended to a state title for cadence reminders.
	ReminderPrefix = "Reminder: "
)

// StateTitle is the canonical notice title for an onboarding state.
func StateTitle(state OnboardingState) string {
	switch state {
	case OnboardingInProgress:
		return TitleInProgress
	case OnboardingComplete:
		return TitleComplete
	}
	return TitleNotStarted
}

func StateText(state OnboardingState) string {
	switch state {
	case OnboardingInProgress:
		return "Your payout account still needs a few details before we can send your commissions."
	case OnboardingComplete:
		return "Commission payouts can now be sent to your connected account."
	}
	return "Connect a payout account so we can send you the commissions you earn."
}

func ReminderTitle(state OnboardingState) string {
	return ReminderPrefix + StateTitle(state)
}

// OnboardingTitles lists every canonical onboarding-category title.
func OnboardingTitles() []string {
	return []string{TitleNotStarted, TitleInProgress, TitleComplete, TitleDisconnected}
}

// OnboardingStatus is the read model returned to callers.
type OnboardingStatus struct {
	AffiliateID      string
	State            OnboardingState
	AccountID        string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	CurrentlyDue     []string
}
