package cmd

import (
	"os"

	"buswatch-backend/lib/serviceutil"
	"buswatch-backend/lib/telemetry"
	"buswatch-backend/services/busmonitor"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the monitor daemon, scanning every route on the configured interval.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()

		tel, err := telemetry.SetupFromEnv(ctx, "buswatchd")
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("setup telemetry", err)
		}
		defer tel.Shutdown(ctx)

		telemetry.InstrumentPerfStats(ctx)

		_, database, service := setup(busmonitor.NewSMTPNotifier())
		defer database.Close()

		service.RunScheduler(ctx)
	},
}
