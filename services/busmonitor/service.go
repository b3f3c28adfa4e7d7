package busmonitor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"buswatch-backend/lib/scrapers/redbus"
	"buswatch-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("services/busmonitor")

// Extractor turns a route url into a best-effort listing set. an empty
// result means the route could not be read this cycle, never that the
// route has no buses worth keeping history for. a non-nil error means
// extraction itself broke and the failure belongs in the audit log.
type Extractor interface {
	Extract(ctx context.Context, url string) ([]redbus.Listing, error)
}

type Options struct {
	// routes processed per scan invocation, the rest wait for the next
	// cycle. keeps worst-case memory flat on small hosts.
	MaxRoutesPerScan int
	ScanInterval     time.Duration
	// delay before the first scheduled scan, zero disables it
	StartupDelay time.Duration
}

type Service struct {
	store     Store
	routes    RouteStore
	audit     AuditLog
	extractor Extractor
	notifier  Notifier
	opts      Options
	running   atomic.Bool
}

func NewService(database *sql.DB, extractor Extractor, notifier Notifier, opts Options) *Service {
	if opts.MaxRoutesPerScan == 0 {
		opts.MaxRoutesPerScan = 25
	}
	if opts.ScanInterval == 0 {
		opts.ScanInterval = time.Hour * 6
	}
	store := NewStore(database)
	return &Service{
		store:     store,
		routes:    NewRouteStore(store),
		audit:     NewAuditLog(store),
		extractor: extractor,
		notifier:  notifier,
		opts:      opts,
	}
}

func (s *Service) Store() Store           { return s.store }
func (s *Service) RouteStore() RouteStore { return s.routes }
func (s *Service) AuditLog() AuditLog     { return s.audit }

// TriggerScan kicks off a scan without waiting for it. a trigger
// arriving while a scan is running is dropped, scans never queue up.
func (s *Service) TriggerScan(ctx context.Context) {
	if s.running.Load() {
		slog.InfoContext(ctx, "scan already running, dropping trigger")
		return
	}
	go func() {
		err := s.Scan(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "scan", "err", err)
		}
	}()
}

// Scan runs one full reconciliation pass over the tracked routes.
// at most one scan runs at a time, a concurrent call is a logged
// no-op. route failures are isolated: extraction or diff blowing up
// on one route is audited as an error and the loop moves on.
func (s *Service) Scan(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		slog.InfoContext(ctx, "scan already running, dropping trigger")
		return nil
	}
	defer s.running.Store(false)

	ctx, span := tracer.Start(ctx, "Scan")
	defer span.End()

	slog.InfoContext(ctx, "starting bus check job")

	cfg := ResolveConfig(ctx, s.store)
	routes := s.routes.List(ctx)
	if len(routes) > s.opts.MaxRoutesPerScan {
		slog.WarnContext(
			ctx, "route list exceeds per-scan cap, deferring the rest",
			"routes", len(routes),
			"cap", s.opts.MaxRoutesPerScan,
		)
		routes = routes[:s.opts.MaxRoutesPerScan]
	}
	span.SetAttributes(attribute.Int("routes", len(routes)))

	history := s.store.Snapshots(ctx)
	staged := map[string][]redbus.Listing{}
	var allEvents []Event
	var auditEntries []LogEntry

	for _, route := range routes {
		slog.InfoContext(ctx, "processing route", "route", route.Name)

		events, listings, err := s.processRoute(ctx, route, history[route.ID])
		if err != nil {
			slog.ErrorContext(ctx, "failed to process route", "route", route.Name, "err", err)
			span.RecordError(err)
			auditEntries = append(auditEntries, LogEntry{
				Timestamp: timezone.Now(),
				Message:   fmt.Sprintf("Scan failed for route %s: %v", route.Name, err),
				Type:      "error",
			})
			continue
		}
		if len(listings) == 0 {
			// an unreadable page must not erase history, otherwise the
			// next good scan floods "new bus" alerts for every listing
			slog.InfoContext(ctx, "no data for route, keeping previous snapshot", "route", route.Name)
			continue
		}

		staged[route.ID] = listings
		allEvents = append(allEvents, events...)

		if len(events) > 0 && route.Email != "" {
			err := s.notifier.Send(
				ctx, cfg, route.Email,
				fmt.Sprintf("Bus Alert: %s", route.Name),
				renderEvents(events),
			)
			if err != nil {
				slog.WarnContext(ctx, "per-route notification failed", "route", route.Name, "err", err)
			}
		}
	}

	// one batched commit for every snapshot staged this scan
	for id, listings := range staged {
		history[id] = listings
	}
	err := s.store.SaveSnapshots(ctx, history)
	if err != nil {
		// the scan result is lost for this cycle but nothing is
		// corrupted, the next scan re-reads whatever was durable
		slog.ErrorContext(ctx, "failed to persist snapshots", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist snapshots")
	}

	if len(allEvents) > 0 {
		err := s.notifier.Send(ctx, cfg, "", "Bus Fare/Seat Alert!", renderEvents(allEvents))
		if err != nil {
			slog.WarnContext(ctx, "aggregate notification failed", "err", err)
		}
		for _, ev := range allEvents {
			auditEntries = append(auditEntries, LogEntry{
				Timestamp: timezone.Now(),
				Message:   ev.Render(),
				Type:      ev.LogType(),
			})
		}
	} else {
		auditEntries = append(auditEntries, LogEntry{
			Timestamp: timezone.Now(),
			Message:   "Scan completed: no significant changes",
			Type:      "new",
		})
	}

	err = s.audit.Append(ctx, auditEntries...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to append audit entries", "err", err)
		span.RecordError(err)
	}

	slog.InfoContext(ctx, "bus check job finished", "events", len(allEvents))
	return nil
}

// runs extraction and diff for one route under a panic guard so a
// misbehaving page can only ever take down its own route
func (s *Service) processRoute(ctx context.Context, route Route, previous []redbus.Listing) (events []Event, listings []redbus.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route processing panicked: %v", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "processRoute")
	defer span.End()
	span.SetAttributes(
		attribute.String("route_id", route.ID),
		attribute.String("route_name", route.Name),
	)

	listings, err = s.extractor.Extract(ctx, route.URL)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	if len(listings) == 0 {
		return nil, nil, nil
	}

	events = DiffListings(route, previous, listings)
	span.SetAttributes(
		attribute.Int("listings", len(listings)),
		attribute.Int("events", len(events)),
	)
	return events, listings, nil
}

func renderEvents(events []Event) string {
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = ev.Render()
	}
	return strings.Join(lines, "\n")
}

// RunScheduler blocks until ctx is done, triggering a scan on the
// configured interval plus once shortly after startup when a delay is
// set. triggers landing mid-scan are dropped by the scan guard.
func (s *Service) RunScheduler(ctx context.Context) {
	slog.InfoContext(
		ctx, "start daemon",
		"task", fmt.Sprintf("scan routes every %s", s.opts.ScanInterval),
	)

	if s.opts.StartupDelay > 0 {
		select {
		case <-time.After(s.opts.StartupDelay):
			s.TriggerScan(ctx)
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(s.opts.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.TriggerScan(ctx)
		case <-ctx.Done():
			return
		}
	}
}
