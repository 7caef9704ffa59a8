package main

import (
	"fmt"
	"time"

	runlogger "github.com/LavaJover/shvark-commission-service/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent reconciliation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(db *gorm.DB, _ string) error {
				run, err := runlogger.NewPGRunLogger(db).LastRun(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if run == nil {
					fmt.Fprintln(out, "no reconciliation runs recorded")
					return nil
				}
				fmt.Fprintf(out, "run %s started %s (%s)\n", run.ID,
					run.StartedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
				fmt.Fprintf(out, "since %s: candidates=%d paid=%d reversed=%d unchanged=%d failed=%d\n",
					run.Since.Format(time.RFC3339), run.Candidates, run.Paid, run.Reversed, run.Unchanged, run.Failed)
				return nil
			})
		},
	}
}
