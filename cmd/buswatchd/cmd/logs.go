package cmd

import (
	"fmt"
	"os"
	"time"

	"buswatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	logsCmd.AddCommand(logsClearCmd)
	rootCmd.AddCommand(logsCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Prints the scan activity log, most recent first.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Type", "Message"})
		for _, entry := range service.AuditLog().Entries(ctx) {
			t.AppendRow(table.Row{entry.Timestamp.Format(time.ANSIC), entry.Type, entry.Message})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drops the whole activity log.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		err := service.AuditLog().Clear(ctx)
		if err != nil {
			serviceutil.Fatal("clear logs", err)
		}
		fmt.Println("activity log cleared")
	},
}
