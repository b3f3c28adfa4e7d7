package redbus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"buswatch-backend/lib/htmlutil"
	"buswatch-backend/lib/telemetry"
	"buswatch-backend/lib/timezone"

	"github.com/go-resty/resty/v2"
)

const defaultSearchEndpoint = "https://www.redbus.in/search/getBusesFromSearchResults"

// the search api returns the full result set, only the head of it is
// interesting for change detection and decoding less keeps memory flat
const apiResultCap = 20

// APIStrategy hits the search endpoint the site's own frontend calls
// instead of scraping markup. cheapest of the three strategies but also
// the most brittle, the endpoint shape is undocumented and unversioned.
type APIStrategy struct {
	client   *resty.Client
	endpoint string
}

func NewAPIStrategy() APIStrategy {
	client := resty.New()
	client.SetTimeout(time.Second * 15)
	client.SetHeader("user-agent", browserUserAgent)

	telemetry.InstrumentResty(client, "scrapers/redbus/api")

	return APIStrategy{client: client, endpoint: defaultSearchEndpoint}
}

// NewAPIStrategyWithEndpoint exists for tests pointing at a local server.
func NewAPIStrategyWithEndpoint(endpoint string) APIStrategy {
	s := NewAPIStrategy()
	s.endpoint = endpoint
	return s
}

func (s APIStrategy) Name() string { return "api" }

type searchRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	OnwardDate  string `json:"onwardDate"`
}

type searchBus struct {
	Travels        string          `json:"travels"`
	OperatorName   string          `json:"operatorName"`
	Fare           json.RawMessage `json:"fare"`
	MinFare        json.RawMessage `json:"minFare"`
	AvailableSeats json.RawMessage `json:"availableSeats"`
	SeatsAvailable json.RawMessage `json:"seatsAvailable"`
}

type searchResponse struct {
	Buses []searchBus `json:"buses"`
}

func (s APIStrategy) Extract(ctx context.Context, pageURL string) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "api:Extract")
	defer span.End()

	source, destination, onward, err := routeFromURL(pageURL)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetHeader("accept", "application/json").
		SetBody(searchRequest{
			Source:      source,
			Destination: destination,
			OnwardDate:  onward,
		}).
		SetResult(&parsed).
		Post(s.endpoint)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("search api returned status %d", res.StatusCode())
	}

	buses := parsed.Buses
	if len(buses) > apiResultCap {
		buses = buses[:apiResultCap]
	}

	var results []Listing
	for _, bus := range buses {
		name := bus.Travels
		if name == "" {
			name = bus.OperatorName
		}
		if name == "" {
			continue
		}

		price, ok := rawPrice(bus.Fare)
		if !ok {
			price, ok = rawPrice(bus.MinFare)
		}
		if !ok || price <= 0 {
			continue
		}

		seats := rawText(bus.AvailableSeats)
		if seats == "" {
			seats = rawText(bus.SeatsAvailable)
		}
		if seats == "" {
			seats = "Unknown"
		}

		results = append(results, Listing{
			Name:  name,
			Price: price,
			Seats: seats,
		})
	}
	return results, nil
}

// route pages look like /bus-tickets/bangalore-to-naidupeta?onward=2024-08-01,
// the slug carries the city pair the search api wants back
func routeFromURL(pageURL string) (source, destination, onward string, err error) {
	link, err := url.Parse(pageURL)
	if err != nil {
		return "", "", "", err
	}

	segments := strings.Split(strings.Trim(link.Path, "/"), "/")
	slug := segments[len(segments)-1]
	parts := strings.SplitN(slug, "-to-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("url path %q does not end in a <source>-to-<destination> slug", link.Path)
	}

	onward = link.Query().Get("onward")
	if onward == "" {
		onward = timezone.Now().Format("2006-01-02")
	}
	return parts[0], parts[1], onward, nil
}

// fare and seat fields come back as numbers or strings depending on
// which backend served the request, decode both
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func rawPrice(raw json.RawMessage) (int, bool) {
	return htmlutil.ParsePrice(rawText(raw))
}
