// Package redbus extracts bus listings from redbus route result pages.
//
// The upstream site changes markup frequently and serves different
// layouts to different device classes, so extraction is an ordered
// chain of strategies, cheapest first. Every strategy produces the
// same record shape and a failed strategy just hands over to the next
// one, an exhausted chain yields an empty result rather than an error.
package redbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"buswatch-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/redbus")

// Listing is one operator offering scraped off a route page.
// Name is the identity key within a route, Price is in rupees with no
// minor units, Seats is whatever free-form text the page showed.
type Listing struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
	Seats string `json:"seats"`
}

type Strategy interface {
	Name() string
	Extract(ctx context.Context, url string) ([]Listing, error)
}

type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) Chain {
	return Chain{strategies: strategies}
}

// DefaultChain is the production ordering: internal search api, then a
// plain http fetch, then a full headless browser as the last resort.
func DefaultChain() Chain {
	return NewChain(
		NewAPIStrategy(),
		NewStaticStrategy(),
		NewBrowserStrategy(),
	)
}

// runs strategies in order and returns the first non-empty result.
// strategy failures are logged and the chain moves on, but when the
// whole chain is exhausted the accumulated errors come back joined so
// the caller can record that the route was unreadable, not just empty.
// an empty page with no errors returns (nil, nil).
func (c Chain) Extract(ctx context.Context, url string) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "chain:Extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	var errs []error
	for _, strategy := range c.strategies {
		listings, err := strategy.Extract(ctx, url)
		if err != nil {
			slog.WarnContext(
				ctx, "extraction strategy failed",
				"strategy", strategy.Name(),
				"url", url,
				"err", err,
			)
			span.RecordError(err)
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}
		if len(listings) == 0 {
			slog.InfoContext(
				ctx, "extraction strategy found no listings",
				"strategy", strategy.Name(),
				"url", url,
			)
			continue
		}

		slog.InfoContext(
			ctx, "extracted listings",
			"strategy", strategy.Name(),
			"url", url,
			"count", len(listings),
		)
		span.SetAttributes(
			attribute.String("strategy", strategy.Name()),
			attribute.Int("count", len(listings)),
		)
		return listings, nil
	}

	span.SetStatus(codes.Error, "all extraction strategies exhausted")
	return nil, errors.Join(errs...)
}

// candidate selectors per field, the site has shipped all of these at
// one point or another depending on device class and page version
const (
	containerSelector = `li[class*="tupleWrapper"], li[class*="bus-item"], div[class*="bus-item"], .bus-items li`
	operatorSelector  = `div[class*="travelsName"], [class*="travels"], [class*="operator-name"], .travels`
	fareSelector      = `div[class*="fareWrapper"] span, div[class*="fareWrapper"], p[class*="price"], [class*="fare"], .fare, .price`
	seatsSelector     = `div[class*="seatsWrap"], .seat-left, .column-eight p, div[class*="seats"], [class*="seat"], .seats-available`
)

// pulls listings out of a parsed results page. shared by the static
// and browser strategies since both end up with a rendered document.
// items missing an operator name or a parseable fare are skipped, a
// missing seats block defaults to "Unknown".
func parseListings(doc *goquery.Document) []Listing {
	var results []Listing
	doc.Find(containerSelector).Each(func(_ int, item *goquery.Selection) {
		name := htmlutil.CleanText(item.Find(operatorSelector).First().Text())
		if name == "" {
			return
		}

		fareText := item.Find(fareSelector).First().Text()
		price, ok := htmlutil.ParsePrice(fareText)
		if !ok || price <= 0 {
			return
		}

		seats := htmlutil.CleanText(item.Find(seatsSelector).First().Text())
		if seats == "" {
			seats = "Unknown"
		}

		results = append(results, Listing{
			Name:  name,
			Price: price,
			Seats: seats,
		})
	})
	return results
}
