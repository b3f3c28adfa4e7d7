package cmd

import (
	"fmt"
	"os"

	"buswatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	routesCmd.AddCommand(routesAddCmd)
	routesCmd.AddCommand(routesListCmd)
	routesCmd.AddCommand(routesRemoveCmd)
	rootCmd.AddCommand(routesCmd)
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Manages the set of tracked routes.",
}

var routesAddCmd = &cobra.Command{
	Use:   "add <name> <url> [email]",
	Short: "Starts tracking a route, optionally with a per-route alert recipient.",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		email := ""
		if len(args) == 3 {
			email = args[2]
		}
		route, err := service.RouteStore().Create(ctx, args[0], args[1], email)
		if err != nil {
			serviceutil.Fatal("add route", err)
		}
		fmt.Printf("tracking %s (id %s)\n", route.Name, route.ID)
	},
}

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every tracked route.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "URL", "Email"})
		for _, route := range service.RouteStore().List(ctx) {
			t.AppendRow(table.Row{route.ID, route.Name, route.URL, route.Email})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var routesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Stops tracking a route by id.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		_, database, service := setup(nil)
		defer database.Close()

		err := service.RouteStore().Delete(ctx, args[0])
		if err != nil {
			serviceutil.Fatal("remove route", err)
		}
		fmt.Println("removed", args[0])
	},
}
