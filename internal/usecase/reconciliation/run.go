package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
)

type outcome string

const (
	outcomePaid      outcome = "paid"
	outcomeReversed  outcome = "reversed"
	outcomeUnchanged outcome = "unchanged"
	outcomeFailed    outcome = "failed"
)

// Run processes candidates oldest first. A candidate that fails is logged and
// left for the next run; every write it would have made is guarded by the
// stored status, so retrying is safe.
func (uc *DefaultReconciliationUsecase) Run(ctx context.Context, now time.Time, lookback time.Duration) (*domain.ReconciliationRun, error) {
	if lookback <= 0 {
		return nil, domain.NewValidationError("lookback", "must be positive")
	}
	now = now.UTC()
	run := &domain.ReconciliationRun{
		ID:        uc.newRunID(),
		Since:     now.Add(-lookback),
		StartedAt: now,
	}

	candidates, err := uc.paymentRepo.FindReconciliationCandidates(ctx, uc.method, run.Since)
	if err != nil {
		return nil, err
	}
	run.Candidates = len(candidates)
	uc.logger.Info("reconciliation started", "run_id", run.ID, "since", run.Since, "candidates", len(candidates))

	started := time.Now()
	for _, payment := range candidates {
		result, err := uc.reconcile(ctx, payment, now)
		if err != nil {
			result = outcomeFailed
			uc.logger.Error("failed to reconcile payment",
				"run_id", run.ID, "payment_id", payment.ID, "transfer_id", payment.TransactionID,
				"affiliate_id", payment.AffiliateID, "error", err)
		}
		uc.metrics.RecordReconciled(string(result))
		switch result {
		case outcomePaid:
			run.Paid++
		case outcomeReversed:
			run.Reversed++
		case outcomeUnchanged:
			run.Unchanged++
		case outcomeFailed:
			run.Failed++
		}
	}
	run.FinishedAt = run.StartedAt.Add(time.Since(started))
	uc.metrics.RecordReconciliationDuration(time.Since(started).Seconds())

	if uc.runLog != nil {
		if err := uc.runLog.RecordRun(ctx, run); err != nil {
			uc.logger.Error("failed to record reconciliation run", "run_id", run.ID, "error", err)
		}
	}
	uc.logger.Info("reconciliation finished",
		"run_id", run.ID, "paid", run.Paid, "reversed", run.Reversed,
		"unchanged", run.Unchanged, "failed", run.Failed)
	return run, nil
}

func (uc *DefaultReconciliationUsecase) reconcile(ctx context.Context, payment *domain.Payment, now time.Time) (outcome, error) {
	if !payment.IsExternalTransfer() {
		return outcomeUnchanged, nil
	}

	transfer, err := uc.transfers.RetrieveTransfer(ctx, payment.TransactionID)
	if err != nil {
		return outcomeFailed, err
	}
	if payment.Currency != "" && !strings.EqualFold(transfer.Currency, payment.Currency) {
		return outcomeFailed, domain.NewMalformedPayloadError("retrieve transfer",
			fmt.Sprintf("currency %s does not match payment currency %s", transfer.Currency, payment.Currency))
	}

	if transfer.Reversed {
		return uc.applyReversal(ctx, payment, now)
	}
	return uc.applySettlement(ctx, payment, transfer)
}

func (uc *DefaultReconciliationUsecase) applySettlement(ctx context.Context, payment *domain.Payment, transfer *domain.Transfer) (outcome, error) {
	// the processor's timestamp, not ours
	paidAt := transfer.CreatedAt.UTC()
	result, err := uc.paymentRepo.SettlePayment(ctx, domain.SettleCommand{
		PaymentID:   payment.ID,
		AffiliateID: payment.AffiliateID,
		TransferID:  payment.TransactionID,
		SaleIDs:     payment.SaleIDs,
		Amount:      payment.PaidCommission,
		Currency:    payment.Currency,
		PaidAt:      paidAt,
	})
	if err != nil {
		return outcomeFailed, err
	}

	text := fmt.Sprintf("Your payout of %s %s has been completed (transfer %s).",
		payment.PaidCommission.StringFixed(domain.MoneyPlaces), strings.ToUpper(payment.Currency), payment.TransactionID)
	uc.notify(ctx, payment, domain.TitlePayoutPaid, text, paidAt)

	if !result.Changed() {
		return outcomeUnchanged, nil
	}
	if result.PaymentAdvanced {
		uc.publish(ctx, payment, domain.PayoutEventPaid, paidAt)
	}
	return outcomePaid, nil
}

func (uc *DefaultReconciliationUsecase) applyReversal(ctx context.Context, payment *domain.Payment, now time.Time) (outcome, error) {
	result, err := uc.paymentRepo.ReversePayment(ctx, domain.ReverseCommand{
		PaymentID:   payment.ID,
		AffiliateID: payment.AffiliateID,
		TransferID:  payment.TransactionID,
		SaleIDs:     payment.SaleIDs,
		Amount:      payment.PaidCommission,
		Currency:    payment.Currency,
		ReversedAt:  now,
	})
	if err != nil {
		return outcomeFailed, err
	}

	text := fmt.Sprintf("Your payout of %s %s was reversed (transfer %s).",
		payment.PaidCommission.StringFixed(domain.MoneyPlaces), strings.ToUpper(payment.Currency), payment.TransactionID)
	uc.notify(ctx, payment, domain.TitlePayoutReversed, text, now)

	if !result.Changed() {
		return outcomeUnchanged, nil
	}
	if result.PaymentAdvanced {
		uc.publish(ctx, payment, domain.PayoutEventReversed, now)
	}
	return outcomeReversed, nil
}

// notify is attempted on every pass; the (title, text) key turns repeats into
// no-ops and fills in a notice lost after a crash.
func (uc *DefaultReconciliationUsecase) notify(ctx context.Context, payment *domain.Payment, title, text string, at time.Time) {
	if _, err := uc.notifications.Notify(ctx, payment.AffiliateID, title, text, domain.DedupTitleText, at); err != nil {
		uc.logger.Error("failed to store payout notice",
			"payment_id", payment.ID, "transfer_id", payment.TransactionID, "error", err)
	}
}

func (uc *DefaultReconciliationUsecase) publish(ctx context.Context, payment *domain.Payment, eventType domain.PayoutEventType, at time.Time) {
	if uc.publisher == nil {
		return
	}
	err := uc.publisher.PublishPayoutEvent(ctx, domain.PayoutEvent{
		Type:          eventType,
		PaymentID:     payment.ID,
		AffiliateID:   payment.AffiliateID,
		TransactionID: payment.TransactionID,
		Amount:        payment.PaidCommission.StringFixed(domain.MoneyPlaces),
		Currency:      payment.Currency,
		OccurredAt:    at,
	})
	if err != nil {
		uc.logger.Error("failed to publish payout event", "payment_id", payment.ID, "error", err)
	}
}
