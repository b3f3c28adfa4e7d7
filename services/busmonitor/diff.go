package busmonitor

import (
	"strings"

	"buswatch-backend/lib/scrapers/redbus"
)

// the seats text is free-form marketing copy, not a structured field.
// "0 seats" / "sold out" / empty all read as unavailable, anything
// else as bookable. crude, but it is the only signal the page gives.
func seatsUnavailable(seats string) bool {
	return seats == "" ||
		strings.Contains(seats, "0") ||
		strings.Contains(strings.ToLower(seats), "sold")
}

// DiffListings compares a route's stored snapshot against a freshly
// scraped one and emits classified change events. pure function of its
// inputs: matching is by exact operator name (first match wins), the
// price and seats checks on a matched pair are independent and may
// both fire, an unmatched new listing emits NewListing instead.
// operators that disappeared since the last scan emit nothing.
func DiffListings(route Route, old, current []redbus.Listing) []Event {
	var events []Event

	for _, listing := range current {
		var oldListing *redbus.Listing
		for i := range old {
			if old[i].Name == listing.Name {
				oldListing = &old[i]
				break
			}
		}

		if oldListing == nil {
			events = append(events, Event{
				Kind:      NewListing,
				RouteID:   route.ID,
				RouteName: route.Name,
				Operator:  listing.Name,
				Price:     listing.Price,
			})
			continue
		}

		if listing.Price < oldListing.Price {
			events = append(events, Event{
				Kind:      PriceDrop,
				RouteID:   route.ID,
				RouteName: route.Name,
				Operator:  listing.Name,
				OldPrice:  oldListing.Price,
				NewPrice:  listing.Price,
			})
		}
		if seatsUnavailable(oldListing.Seats) && !seatsUnavailable(listing.Seats) {
			events = append(events, Event{
				Kind:      SeatsAvailable,
				RouteID:   route.ID,
				RouteName: route.Name,
				Operator:  listing.Name,
				Seats:     listing.Seats,
			})
		}
	}

	return events
}
