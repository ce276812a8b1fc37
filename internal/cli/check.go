package cli

import (
	"github.com/spf13/cobra"

	"ticket-price-alerts/internal/app"
)

var (
	checkDryRun bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single price check",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.CheckOptions{
			DryRun: checkDryRun,
		}

		return getApp().Check(cmd.Context(), opts)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "Evaluate prices without delivering the alert")
}
