package busmonitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"buswatch-backend/lib/scrapers/redbus"
	"buswatch-backend/lib/testutil"
	"buswatch-backend/services/busmonitor/db"

	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu      sync.Mutex
	results map[string][]redbus.Listing
	errs    map[string]error
	panics  map[string]bool
	calls   int
	// when set, Extract blocks until the channel closes
	gate chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) ([]redbus.Listing, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.panics[url] {
		panic("markup exploded")
	}
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.results[url], nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Send(ctx context.Context, cfg Config, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) all() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail{}, n.sent...)
}

func setupMonitor(t *testing.T, extractor Extractor) (*Service, *recordingNotifier, func()) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/busmonitor",
		DbSchema: db.Schema,
	})
	notifier := &recordingNotifier{}
	service := NewService(setup.DB, extractor, notifier, Options{})
	return service, notifier, cleanup
}

func TestScanNewRouteEmitsNewListings(t *testing.T) {
	extractor := &fakeExtractor{results: map[string][]redbus.Listing{
		"https://example.com/a-to-b": {
			{Name: "ABC Travels", Price: 1000, Seats: "5 seats"},
			{Name: "XYZ", Price: 500, Seats: "Unknown"},
		},
	}}
	service, notifier, cleanup := setupMonitor(t, extractor)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	route, err := service.RouteStore().Create(ctx, "A to B", "https://example.com/a-to-b", "")
	require.NoError(t, err)

	require.NoError(t, service.Scan(ctx))

	snapshots := service.Store().Snapshots(ctx)
	require.Len(t, snapshots[route.ID], 2)

	sent := notifier.all()
	require.Len(t, sent, 1)
	require.Equal(t, "", sent[0].To)
	require.Equal(t, "Bus Fare/Seat Alert!", sent[0].Subject)
	require.Contains(t, sent[0].Body, "NEW BUS: ABC Travels")
	require.Contains(t, sent[0].Body, "NEW BUS: XYZ")

	entries := service.AuditLog().Entries(ctx)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.Equal(t, "new", entry.Type)
	}
}

func TestScanPerRouteOverrideRecipient(t *testing.T) {
	extractor := &fakeExtractor{results: map[string][]redbus.Listing{
		"https://example.com/a-to-b": {{Name: "ABC", Price: 900, Seats: "2 seats"}},
	}}
	service, notifier, cleanup := setupMonitor(t, extractor)
	defer cleanup()

	ctx := context.Background()
	_, err := service.RouteStore().Create(ctx, "A to B", "https://example.com/a-to-b", "rider@example.com")
	require.NoError(t, err)

	require.NoError(t, service.Scan(ctx))

	sent := notifier.all()
	require.Len(t, sent, 2)
	// per-route alert goes out right after the route's diff, the
	// aggregate follows at end of scan
	require.Equal(t, "rider@example.com", sent[0].To)
	require.Equal(t, "Bus Alert: A to B", sent[0].Subject)
	require.Equal(t, "", sent[1].To)
}

func TestScanEmptyExtractionKeepsSnapshot(t *testing.T) {
	extractor := &fakeExtractor{}
	service, notifier, cleanup := setupMonitor(t, extractor)
	defer cleanup()

	ctx := context.Background()
	route, err := service.RouteStore().Create(ctx, "A to B", "https://example.com/a-to-b", "")
	require.NoError(t, err)

	previous := map[string][]redbus.Listing{
		route.ID: {{Name: "ABC", Price: 1000, Seats: "5 seats"}},
	}
	require.NoError(t, service.Store().SaveSnapshots(ctx, previous))

	require.NoError(t, service.Scan(ctx))

	require.Equal(t, previous, service.Store().Snapshots(ctx))
	require.Empty(t, notifier.all())

	entries := service.AuditLog().Entries(ctx)
	require.Len(t, entries, 1)
	require.Equal(t, "Scan completed: no significant changes", entries[0].Message)
}

func TestScanIsolatesFailingRoute(t *testing.T) {
	extractor := &fakeExtractor{
		results: map[string][]redbus.Listing{
			"https://example.com/a-to-b": {{Name: "ABC", Price: 500, Seats: "3 seats"}},
			"https://example.com/c-to-d": {{Name: "DEF", Price: 700, Seats: "1 seat"}},
		},
		panics: map[string]bool{"https://example.com/x-to-y": true},
	}
	service, _, cleanup := setupMonitor(t, extractor)
	defer cleanup()

	ctx := context.Background()
	first, err := service.RouteStore().Create(ctx, "A to B", "https://example.com/a-to-b", "")
	require.NoError(t, err)
	_, err = service.RouteStore().Create(ctx, "X to Y", "https://example.com/x-to-y", "")
	require.NoError(t, err)
	second, err := service.RouteStore().Create(ctx, "C to D", "https://example.com/c-to-d", "")
	require.NoError(t, err)

	require.NoError(t, service.Scan(ctx))

	snapshots := service.Store().Snapshots(ctx)
	require.Len(t, snapshots, 2)
	require.NotEmpty(t, snapshots[first.ID])
	require.NotEmpty(t, snapshots[second.ID])

	var errorEntries []LogEntry
	for _, entry := range service.AuditLog().Entries(ctx) {
		if entry.Type == "error" {
			errorEntries = append(errorEntries, entry)
		}
	}
	require.Len(t, errorEntries, 1)
	require.Contains(t, errorEntries[0].Message, "X to Y")
}

// a route whose every extraction strategy broke must leave a durable
// error entry, not just the "no significant changes" liveness line
func TestScanAuditsExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{
		errs: map[string]error{
			"https://example.com/a-to-b": fmt.Errorf("browser: no container"),
		},
	}
	service, notifier, cleanup := setupMonitor(t, extractor)
	defer cleanup()

	ctx := context.Background()
	route, err := service.RouteStore().Create(ctx, "A to B", "https://example.com/a-to-b", "")
	require.NoError(t, err)

	previous := map[string][]redbus.Listing{
		route.ID: {{Name: "ABC", Price: 1000, Seats: "5 seats"}},
	}
	require.NoError(t, service.Store().SaveSnapshots(ctx, previous))

	require.NoError(t, service.Scan(ctx))

	// failed extraction never erases history and never mails anyone
	require.Equal(t, previous, service.Store().Snapshots(ctx))
	require.Empty(t, notifier.all())

	entries := service.AuditLog().Entries(ctx)
	require.Len(t, entries, 2)
	require.Equal(t, "error", entries[1].Type)
	require.Contains(t, entries[1].Message, "A to B")
	require.Contains(t, entries[1].Message, "browser: no container")
	require.Equal(t, "Scan completed: no significant changes", entries[0].Message)
}

func TestScanSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	extractor := &fakeExtractor{
		results: map[string][]redbus.Listing{
			"https://example.com/a-to-b": {{Name: "ABC", Price: 500, Seats: "3 seats"}},
		},
		gate: gate,
	}
	service, _, cleanup := setupMonitor(t, extractor)
	defer cleanup()

	ctx := context.Background()
	_, err := service.RouteStore().Create(ctx, "A to B", "https://example.com/a-to-b", "")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- service.Scan(ctx) }()

	// wait for the first scan to reach extraction, then a second
	// invocation must be a no-op instead of queueing behind it
	require.Eventually(t, func() bool { return extractor.callCount() == 1 }, time.Second*2, time.Millisecond*10)
	require.NoError(t, service.Scan(ctx))
	require.Equal(t, 1, extractor.callCount())

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, 1, extractor.callCount())
}

func TestScanRespectsRouteCap(t *testing.T) {
	extractor := &fakeExtractor{results: map[string][]redbus.Listing{
		"https://example.com/1": {{Name: "A", Price: 100, Seats: "1 seat"}},
		"https://example.com/2": {{Name: "B", Price: 100, Seats: "1 seat"}},
		"https://example.com/3": {{Name: "C", Price: 100, Seats: "1 seat"}},
	}}
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/busmonitor",
		DbSchema: db.Schema,
	})
	defer cleanup()
	service := NewService(setup.DB, extractor, &recordingNotifier{}, Options{MaxRoutesPerScan: 2})

	ctx := context.Background()
	for i, url := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		_, err := service.RouteStore().Create(ctx, string(rune('A'+i)), url, "")
		require.NoError(t, err)
	}

	require.NoError(t, service.Scan(ctx))
	require.Equal(t, 2, extractor.callCount())
	require.Len(t, service.Store().Snapshots(ctx), 2)
}
