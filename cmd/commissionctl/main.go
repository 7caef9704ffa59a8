package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "commissionctl",
		Short:   "Operator tool for the commission service",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("config", "", "config file path (defaults to COMMISSION_CONFIG_PATH)")

	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
