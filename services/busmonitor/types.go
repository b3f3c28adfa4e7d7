// Package busmonitor watches tracked bus routes for price drops, seat
// availability and new operators, and emails whoever cares.
package busmonitor

import (
	"fmt"
	"time"
)

// Route is one tracked monitoring target. ID is assigned at creation
// and never changes, Email optionally overrides the default
// notification recipient for this route's alerts.
type Route struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Email string `json:"email,omitempty"`
}

type EventKind int

const (
	PriceDrop EventKind = iota
	SeatsAvailable
	NewListing
)

// Event is a classified change between two snapshots of a route.
// events are rendered, dispatched and logged, never stored as-is.
type Event struct {
	Kind      EventKind
	RouteID   string
	RouteName string
	Operator  string

	// PriceDrop
	OldPrice int
	NewPrice int
	// NewListing
	Price int
	// SeatsAvailable
	Seats string
}

func (e Event) Render() string {
	switch e.Kind {
	case PriceDrop:
		return fmt.Sprintf("PRICE DROP: %s on %s is now ₹%d (was ₹%d)", e.Operator, e.RouteName, e.NewPrice, e.OldPrice)
	case SeatsAvailable:
		return fmt.Sprintf("SEATS AVAILABLE: %s on %s now has %s", e.Operator, e.RouteName, e.Seats)
	case NewListing:
		return fmt.Sprintf("NEW BUS: %s found on %s for ₹%d", e.Operator, e.RouteName, e.Price)
	}
	return ""
}

func (e Event) LogType() string {
	switch e.Kind {
	case PriceDrop:
		return "price"
	case SeatsAvailable:
		return "seats"
	case NewListing:
		return "new"
	}
	return "new"
}

// LogEntry is one line of the bounded activity journal, newest first.
// Type is one of "price", "seats", "new", "error".
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
}

// journal cap, oldest entries fall off once exceeded
const AuditLogCap = 100
