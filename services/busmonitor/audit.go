package busmonitor

import (
	"context"
)

// AuditLog is the bounded, most-recent-first activity journal. it is
// the only durable record of what a scan did, notifications are
// fire-and-forget.
type AuditLog struct {
	store Store
}

func NewAuditLog(store Store) AuditLog {
	return AuditLog{store: store}
}

// Append prepends entries (newest first among themselves) and evicts
// from the tail so the journal never exceeds AuditLogCap.
func (a AuditLog) Append(ctx context.Context, entries ...LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	existing := a.store.Logs(ctx)
	merged := make([]LogEntry, 0, len(entries)+len(existing))
	for i := len(entries) - 1; i >= 0; i-- {
		merged = append(merged, entries[i])
	}
	merged = append(merged, existing...)

	if len(merged) > AuditLogCap {
		merged = merged[:AuditLogCap]
	}
	return a.store.SaveLogs(ctx, merged)
}

func (a AuditLog) Entries(ctx context.Context) []LogEntry {
	return a.store.Logs(ctx)
}

// Clear drops the whole journal. only ever invoked by an operator.
func (a AuditLog) Clear(ctx context.Context) error {
	return a.store.ClearLogs(ctx)
}
