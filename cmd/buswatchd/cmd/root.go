package cmd

import (
	"database/sql"
	"os"
	"time"

	"buswatch-backend/lib/configutil"
	"buswatch-backend/lib/dbutil"
	"buswatch-backend/lib/scrapers/redbus"
	"buswatch-backend/lib/serviceutil"
	"buswatch-backend/services/busmonitor"
	"buswatch-backend/services/busmonitor/db"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type SchedulerConfig struct {
	IntervalHours       float64 `json:"interval_hours"`
	StartupDelaySeconds int     `json:"startup_delay_seconds"`
	MaxRoutesPerScan    int     `json:"max_routes_per_scan"`
}

type Config struct {
	Database  dbutil.Struct   `json:"database"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

var rootCmd = &cobra.Command{
	Use:   "buswatchd",
	Short: "Watches redbus routes for price drops, freed-up seats and new buses.",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loads .env and buswatch.json5 and opens everything the subcommands
// share. a missing config file is fine, the defaults below apply.
func setup(notifier busmonitor.Notifier) (Config, *sql.DB, *busmonitor.Service) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("load .env", err)
	}

	cfg, err := configutil.ReadConfig[Config]("buswatch.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Database.File == "" && cfg.Database.Url == "" {
		cfg.Database.File = "buswatch.db"
	}
	if cfg.Scheduler.StartupDelaySeconds == 0 {
		cfg.Scheduler.StartupDelaySeconds = 30
	}

	database, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}

	service := busmonitor.NewService(database, redbus.DefaultChain(), notifier, busmonitor.Options{
		MaxRoutesPerScan: cfg.Scheduler.MaxRoutesPerScan,
		ScanInterval:     time.Duration(cfg.Scheduler.IntervalHours * float64(time.Hour)),
		StartupDelay:     time.Duration(cfg.Scheduler.StartupDelaySeconds) * time.Second,
	})
	return cfg, database, service
}
