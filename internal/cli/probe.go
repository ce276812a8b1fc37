package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticket-price-alerts/internal/app"
)

var (
	probeURL   string
	probeLabel string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Render a single portal page and print the prices found",
	RunE: func(cmd *cobra.Command, args []string) error {
		if probeURL == "" {
			return fmt.Errorf("--url must be provided")
		}

		opts := app.ProbeOptions{
			URL:   probeURL,
			Label: probeLabel,
		}

		return getApp().Probe(cmd.Context(), opts)
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "", "Portal page URL to render")
	probeCmd.Flags().StringVar(&probeLabel, "label", "", "Portal label used in logs and robots checks")
}
