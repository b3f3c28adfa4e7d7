package redbus

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
	"go.opentelemetry.io/otel/attribute"
)

// BrowserStrategy drives a headless chromium tab for pages that only
// render listings client-side. a full browser process is the single
// biggest memory consumer in the system, so the tab emulates a phone
// (the mobile page is far lighter) and heavy resources never load.
// it only ever runs after the cheaper strategies came up empty.
type BrowserStrategy struct {
	navigateTimeout time.Duration
	waitTimeout     time.Duration
}

func NewBrowserStrategy() BrowserStrategy {
	return BrowserStrategy{
		navigateTimeout: time.Second * 90,
		waitTimeout:     time.Second * 40,
	}
}

func (s BrowserStrategy) Name() string { return "browser" }

var trackerHosts = []string{"google-analytics", "facebook", "doubleclick"}

func shouldBlock(resourceType network.ResourceType, url string) bool {
	switch resourceType {
	case network.ResourceTypeImage, network.ResourceTypeFont, network.ResourceTypeMedia:
		return true
	}
	for _, host := range trackerHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}

// fails image/font/media and tracker requests at the network layer
// before any bytes transfer
func interceptRequests(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(ctx)
			ectx := cdp.WithExecutor(ctx, c.Target)
			if shouldBlock(paused.ResourceType, paused.Request.URL) {
				fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
				return
			}
			fetch.ContinueRequest(paused.RequestID).Do(ectx)
		}()
	})
}

func (s BrowserStrategy) Extract(ctx context.Context, url string) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "browser:Extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-http2", true),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)

	// deferred cancels tear the whole browser process down on every
	// exit path, a leaked chromium outlives its usefulness fast
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tab, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	interceptRequests(tab)

	navCtx, cancelNav := context.WithTimeout(tab, s.navigateTimeout)
	defer cancelNav()
	err := chromedp.Run(navCtx,
		fetch.Enable(),
		chromedp.Emulate(device.IPhone13ProMax),
		chromedp.Navigate(url),
	)
	if err != nil {
		return nil, err
	}

	found, err := s.waitForListings(tab)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	// one more nudge for lazily loaded rows below the fold
	var html string
	err = chromedp.Run(tab,
		chromedp.Evaluate(`window.scrollBy(0, 800)`, nil),
		chromedp.Sleep(time.Second*2),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return parseListings(doc), nil
}

// waits for the listing container within the wait budget, then makes a
// single scroll-and-wait attempt before giving up, some page variants
// only mount the list once the viewport moves
func (s BrowserStrategy) waitForListings(tab context.Context) (bool, error) {
	waitCtx, cancelWait := context.WithTimeout(tab, s.waitTimeout)
	defer cancelWait()

	err := chromedp.Run(waitCtx, chromedp.WaitReady(`li[class*="tupleWrapper"]`, chromedp.ByQuery))
	if err == nil {
		return true, nil
	}
	if tab.Err() != nil {
		return false, tab.Err()
	}

	err = chromedp.Run(tab,
		chromedp.Evaluate(`window.scrollBy(0, 1000)`, nil),
		chromedp.Sleep(time.Second*5),
	)
	if err != nil {
		return false, err
	}

	var nodes []*cdp.Node
	err = chromedp.Run(tab, chromedp.Nodes(`li[class*="tupleWrapper"]`, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}
