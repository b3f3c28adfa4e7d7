package busmonitor

import (
	"testing"

	"buswatch-backend/lib/scrapers/redbus"

	"github.com/stretchr/testify/require"
)

var testRoute = Route{ID: "1", Name: "Bangalore to Chennai", URL: "https://example.com/bangalore-to-chennai"}

func TestDiffEmptySnapshotEmitsNewListings(t *testing.T) {
	current := []redbus.Listing{
		{Name: "ABC Travels", Price: 1000, Seats: "5 seats"},
		{Name: "XYZ", Price: 500, Seats: "Unknown"},
	}

	events := DiffListings(testRoute, nil, current)
	require.Len(t, events, 2)
	for i, ev := range events {
		require.Equal(t, NewListing, ev.Kind)
		require.Equal(t, current[i].Name, ev.Operator)
		require.Equal(t, current[i].Price, ev.Price)
	}
}

func TestDiffPriceDropAndSeatsFireIndependently(t *testing.T) {
	old := []redbus.Listing{{Name: "ABC Travels", Price: 1000, Seats: "0 seats"}}
	current := []redbus.Listing{{Name: "ABC Travels", Price: 900, Seats: "5 seats"}}

	events := DiffListings(testRoute, old, current)
	require.Len(t, events, 2)

	require.Equal(t, PriceDrop, events[0].Kind)
	require.Equal(t, 1000, events[0].OldPrice)
	require.Equal(t, 900, events[0].NewPrice)

	require.Equal(t, SeatsAvailable, events[1].Kind)
	require.Equal(t, "5 seats", events[1].Seats)
}

func TestDiffNoChangeNoEvents(t *testing.T) {
	listings := []redbus.Listing{{Name: "ABC", Price: 1000, Seats: "sold out"}}
	require.Empty(t, DiffListings(testRoute, listings, listings))
}

func TestDiffPriceIncreaseIgnored(t *testing.T) {
	old := []redbus.Listing{{Name: "ABC", Price: 900, Seats: "5 seats"}}
	current := []redbus.Listing{{Name: "ABC", Price: 1200, Seats: "5 seats"}}
	require.Empty(t, DiffListings(testRoute, old, current))
}

func TestDiffDisappearedListingIgnored(t *testing.T) {
	old := []redbus.Listing{
		{Name: "ABC", Price: 900, Seats: "5 seats"},
		{Name: "Gone Travels", Price: 700, Seats: "2 seats"},
	}
	current := []redbus.Listing{{Name: "ABC", Price: 900, Seats: "5 seats"}}
	require.Empty(t, DiffListings(testRoute, old, current))
}

func TestDiffSeatsTransitions(t *testing.T) {
	for _, tc := range []struct {
		name     string
		old      string
		current  string
		expected bool
	}{
		{"sold out to available", "Sold Out", "3 seats", true},
		{"zero to available", "0 seats", "12 seats", true},
		{"empty to available", "", "4 seats", true},
		{"available to available", "5 seats", "3 seats", false},
		{"sold out to sold out", "sold out", "SOLD OUT", false},
		{"available to ten seats", "5 seats", "10 seats", false}, // "10" contains a zero
	} {
		t.Run(tc.name, func(t *testing.T) {
			old := []redbus.Listing{{Name: "ABC", Price: 100, Seats: tc.old}}
			current := []redbus.Listing{{Name: "ABC", Price: 100, Seats: tc.current}}
			events := DiffListings(testRoute, old, current)
			if tc.expected {
				require.Len(t, events, 1)
				require.Equal(t, SeatsAvailable, events[0].Kind)
			} else {
				require.Empty(t, events)
			}
		})
	}
}

func TestDiffFirstMatchWinsOnDuplicateNames(t *testing.T) {
	old := []redbus.Listing{
		{Name: "ABC", Price: 1000, Seats: "5 seats"},
		{Name: "ABC", Price: 400, Seats: "5 seats"},
	}
	current := []redbus.Listing{{Name: "ABC", Price: 900, Seats: "5 seats"}}

	events := DiffListings(testRoute, old, current)
	require.Len(t, events, 1)
	require.Equal(t, PriceDrop, events[0].Kind)
	require.Equal(t, 1000, events[0].OldPrice)
}

func TestEventRender(t *testing.T) {
	ev := Event{
		Kind:      PriceDrop,
		RouteName: "Bangalore to Chennai",
		Operator:  "ABC Travels",
		OldPrice:  1000,
		NewPrice:  900,
	}
	require.Equal(t, "PRICE DROP: ABC Travels on Bangalore to Chennai is now ₹900 (was ₹1000)", ev.Render())
	require.Equal(t, "price", ev.LogType())
}
