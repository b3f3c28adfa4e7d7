package busmonitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"buswatch-backend/lib/scrapers/redbus"
	"buswatch-backend/lib/timezone"
	"buswatch-backend/services/busmonitor/db"
)

// Store persists the monitor's three journal documents (routes,
// per-route listing history, activity log) plus the notification
// config as json blobs. a missing or corrupt document reads back as
// its empty default, history is not worth failing a scan over.
type Store struct {
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{qry: db.New(database)}
}

func loadDocument[T any](ctx context.Context, qry *db.Queries, name string) T {
	var out T
	body, err := qry.GetDocument(ctx, name)
	if err == sql.ErrNoRows {
		return out
	}
	if err != nil {
		slog.WarnContext(ctx, "read document", "name", name, "err", err)
		return out
	}
	err = json.Unmarshal([]byte(body), &out)
	if err != nil {
		// corrupt state heals to "no history" instead of wedging
		// every scan from here on out
		slog.WarnContext(ctx, "discarding corrupt document", "name", name, "err", err)
		var zero T
		return zero
	}
	return out
}

func saveDocument(ctx context.Context, qry *db.Queries, name string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return qry.PutDocument(ctx, name, string(body), timezone.Now().Unix())
}

// Snapshots returns the last successfully scraped listing set per
// route id. routes that never scraped successfully have no entry.
func (s Store) Snapshots(ctx context.Context) map[string][]redbus.Listing {
	snapshots := loadDocument[map[string][]redbus.Listing](ctx, s.qry, db.DocHistory)
	if snapshots == nil {
		return map[string][]redbus.Listing{}
	}
	return snapshots
}

// SaveSnapshots overwrites the whole history document. snapshots are
// replaced wholesale per scan, never merged.
func (s Store) SaveSnapshots(ctx context.Context, snapshots map[string][]redbus.Listing) error {
	return saveDocument(ctx, s.qry, db.DocHistory, snapshots)
}

func (s Store) Routes(ctx context.Context) []Route {
	return loadDocument[[]Route](ctx, s.qry, db.DocRoutes)
}

func (s Store) SaveRoutes(ctx context.Context, routes []Route) error {
	return saveDocument(ctx, s.qry, db.DocRoutes, routes)
}

func (s Store) Logs(ctx context.Context) []LogEntry {
	return loadDocument[[]LogEntry](ctx, s.qry, db.DocLogs)
}

func (s Store) SaveLogs(ctx context.Context, entries []LogEntry) error {
	return saveDocument(ctx, s.qry, db.DocLogs, entries)
}

func (s Store) ClearLogs(ctx context.Context) error {
	return s.qry.DeleteDocument(ctx, db.DocLogs)
}

func (s Store) PersistedConfig(ctx context.Context) Config {
	return loadDocument[Config](ctx, s.qry, db.DocConfig)
}

func (s Store) SaveConfig(ctx context.Context, cfg Config) error {
	return saveDocument(ctx, s.qry, db.DocConfig, cfg)
}
