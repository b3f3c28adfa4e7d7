package cmd

import (
	"fmt"

	"buswatch-backend/lib/serviceutil"
	"buswatch-backend/services/busmonitor"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Runs a single scan over every tracked route and exits.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()

		_, database, service := setup(busmonitor.NewSMTPNotifier())
		defer database.Close()

		err := service.Scan(ctx)
		if err != nil {
			serviceutil.Fatal("scan", err)
		}

		entries := service.AuditLog().Entries(ctx)
		if len(entries) > 0 {
			fmt.Println(entries[0].Message)
		}
	},
}
