package redbus

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"buswatch-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// StaticStrategy fetches the page over plain http and parses whatever
// was server-side rendered. uses a couple dozen MB where the browser
// strategy needs hundreds, so it always runs first.
type StaticStrategy struct {
	client *resty.Client
}

func NewStaticStrategy() StaticStrategy {
	client := resty.New()
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", browserUserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("accept-language", "en-US,en;q=0.5")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/redbus/static")

	return StaticStrategy{client: client}
}

func (s StaticStrategy) Name() string { return "static" }

func (s StaticStrategy) Extract(ctx context.Context, url string) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "static:Extract")
	defer span.End()

	res, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", res.StatusCode(), url)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, err
	}

	return parseListings(doc), nil
}
