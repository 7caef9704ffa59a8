package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/app/background"
	"github.com/LavaJover/shvark-commission-service/internal/app/setup"
	"github.com/LavaJover/shvark-commission-service/internal/config"
	"github.com/LavaJover/shvark-commission-service/internal/usecase/reconciliation"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.CommissionConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("COMMISSION_CONFIG_PATH")
	}
	return config.Load(path)
}

// withUseCases wires the service the same way the server does and runs fn
// under the shared job guard, so a manual run never overlaps a scheduled one.
func withUseCases(cmd *cobra.Command, jobName string, fn func(ctx context.Context, uc *setup.UseCases, now time.Time) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setup.NewLogger(cfg.LogConfig, os.Stderr)

	deps, err := setup.InitializeDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		return err
	}

	tasks := background.NewBackgroundTasks(deps.RunGuard, logger)
	job := background.Job{
		Name: jobName,
		Task: background.TaskFunc(func(ctx context.Context, now time.Time) error {
			return fn(ctx, uc, now)
		}),
	}
	ran, err := tasks.RunOnce(cmd.Context(), job, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ran {
		return fmt.Errorf("%s is already running elsewhere", jobName)
	}
	return nil
}

func reconcileCmd() *cobra.Command {
	var lookbackHours int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile recent payouts against the processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lookbackHours <= 0 {
				return fmt.Errorf("--lookback-hours must be positive")
			}
			return withUseCases(cmd, reconciliation.JobName, func(ctx context.Context, uc *setup.UseCases, now time.Time) error {
				run, err := uc.Reconciliation.Run(ctx, now, time.Duration(lookbackHours)*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: candidates=%d paid=%d reversed=%d unchanged=%d failed=%d\n",
					run.ID, run.Candidates, run.Paid, run.Reversed, run.Unchanged, run.Failed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&lookbackHours, "lookback-hours", 48, "how far back to look for unsettled payouts")
	return cmd
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send onboarding reminders that are due",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCases(cmd, "onboarding-reminders", func(ctx context.Context, uc *setup.UseCases, now time.Time) error {
				report, err := uc.Reminders.Run(ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d complete=%d reminded=%d failed=%d\n",
					report.Scanned, report.Complete, report.Reminded, report.Failed)
				return nil
			})
		},
	}
}
