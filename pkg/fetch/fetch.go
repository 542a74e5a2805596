// Package fetch retrieves marketplace pages. Nothing is cached: every call
// goes to the network.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/watchbuyer/watchbuyer/pkg/whttp"
)

const accept = "text/html,application/xhtml+xml"

// Fetcher returns the HTML body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher performs a single GET per call. Non-2xx responses are errors.
type HTTPFetcher struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher returns a fetcher using client (the whttp default client when
// nil). limiter may be nil.
func NewHTTPFetcher(client *retryablehttp.Client, limiter *rate.Limiter) *HTTPFetcher {
	return &HTTPFetcher{client: client, limiter: limiter}
}

// NewLimiter spaces consecutive fetches at least minInterval apart. A
// non-positive interval disables spacing.
func NewLimiter(minInterval time.Duration) *rate.Limiter {
	if minInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting to fetch %s: %w", url, err)
		}
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    url,
		Headers: []whttp.WHTTPHeader{
			{Name: "Accept", Value: accept},
			{Name: "Cache-Control", Value: "no-store"},
		},
	}, f.client)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	if err := res.CheckStatus(); err != nil {
		return "", err
	}
	return res.BodyString, nil
}
