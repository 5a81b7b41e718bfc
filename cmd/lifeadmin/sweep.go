package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"lifeadmin-backend/internal/notify"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-evaluate every reminder once and exit",
	Long: `Run one notification sweep over every open task, unpaid bill and
expiring document, then print the counts as JSON.

Useful from cron when serve runs with SWEEP_INTERVAL=0.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		d := notify.NewDispatcher(a.backend, logger, notify.WithPublisher(a.publisher))
		res, err := d.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}
