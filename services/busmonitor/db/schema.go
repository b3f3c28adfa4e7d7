package db

import _ "embed"

//go:embed schema.sql
var Schema string

// document names, one row per persisted json document
const (
	DocRoutes  = "bus_routes"
	DocHistory = "bus_history"
	DocLogs    = "bus_logs"
	DocConfig  = "monitor_config"
)
