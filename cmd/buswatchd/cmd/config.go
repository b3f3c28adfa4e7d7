package cmd

import (
	"encoding/json"
	"fmt"

	"buswatch-backend/lib/serviceutil"
	"buswatch-backend/services/busmonitor"

	"github.com/spf13/cobra"
)

var configUpdate busmonitor.Config

func init() {
	configSetCmd.Flags().StringVar(&configUpdate.SenderEmail, "sender", "", "sender email address")
	configSetCmd.Flags().StringVar(&configUpdate.SenderPassword, "password", "", "sender smtp password or app password")
	configSetCmd.Flags().StringVar(&configUpdate.NotificationEmail, "notify", "", "default alert recipient")
	configSetCmd.Flags().StringVar(&configUpdate.SMTPHost, "smtp-host", "", "smtp server host")
	configSetCmd.Flags().IntVar(&configUpdate.SMTPPort, "smtp-port", 0, "smtp server port")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manages the persisted notification settings.",
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Merges the given flags into the stored settings, omitted flags keep their values.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		err := busmonitor.SetConfig(ctx, service.Store(), configUpdate)
		if err != nil {
			serviceutil.Fatal("set config", err)
		}
		fmt.Println("configuration updated")
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the effective settings with the password redacted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		cfg := busmonitor.ResolveConfig(ctx, service.Store())
		out, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
		if err != nil {
			serviceutil.Fatal("render config", err)
		}
		fmt.Println(string(out))
	},
}
