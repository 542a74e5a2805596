// Package chrono24 prices a watch from Chrono24 search result pages, either
// fetched live or pasted in by the caller.
package chrono24

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/watchbuyer/watchbuyer/pkg/extract"
	"github.com/watchbuyer/watchbuyer/pkg/fetch"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
)

const (
	Name = "CHRONO24"
	// BaseURL resolves relative links in pasted HTML.
	BaseURL = "https://www.chrono24.com"
)

var (
	ErrUnsupportedHost = errors.New("not a chrono24 url")
	ErrNoPage          = errors.New("provide a chrono24 url, html, or brand and reference")
)

// Source implements marketplace.Source on top of the extraction engine.
type Source struct {
	Fetcher fetch.Fetcher
	Engine  *extract.Engine
	Log     marketplace.Logger
	// OnReport, when set, receives every extraction report.
	OnReport func(extract.Report)
}

// New returns a Source using fetcher, or a plain HTTP fetcher when nil.
func New(fetcher fetch.Fetcher) *Source {
	if fetcher == nil {
		fetcher = fetch.NewHTTPFetcher(nil, nil)
	}
	return &Source{Fetcher: fetcher, Engine: extract.Default(), Log: marketplace.NopLogger{}}
}

func (s *Source) Name() string { return Name }

// Authenticate is a no-op; search pages are public.
func (s *Source) Authenticate(context.Context, marketplace.AuthConfig) error { return nil }

// SearchURL builds the Chrono24 search page URL for a watch.
func SearchURL(brand, reference string) string {
	q := strings.TrimSpace(strings.TrimSpace(brand) + " " + strings.TrimSpace(reference))
	v := url.Values{}
	v.Set("query", q)
	v.Set("dosearch", "true")
	return BaseURL + "/search/index.htm?" + v.Encode()
}

// CheckURL parses raw and verifies it belongs to a Chrono24 registrable
// domain such as chrono24.com or chrono24.co.uk.
func CheckURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHost, raw)
	}
	domain, err := publicsuffix.Domain(strings.ToLower(u.Hostname()))
	if err != nil || !strings.HasPrefix(domain, "chrono24.") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHost, raw)
	}
	return u, nil
}

// FetchAndParse fetches rawURL and extracts listings with the default engine,
// resolving links against the page origin. Fetch failures are returned as is.
func FetchAndParse(ctx context.Context, fetcher fetch.Fetcher, rawURL string) ([]extract.Listing, error) {
	return New(fetcher).FetchAndParse(ctx, rawURL)
}

func (s *Source) FetchAndParse(ctx context.Context, rawURL string) ([]extract.Listing, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	page, err := s.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.extract(page, u.Scheme+"://"+u.Host), nil
}

// Listings returns all qualifying listings for q along with the page URL
// they came from, if any.
func (s *Source) Listings(ctx context.Context, q marketplace.Query) ([]extract.Listing, string, error) {
	pageURL := strings.TrimSpace(q.PageURL)
	if q.PageHTML != "" {
		return s.extract(q.PageHTML, BaseURL), pageURL, nil
	}
	if pageURL == "" {
		if q.Keywords() == "" {
			return nil, "", ErrNoPage
		}
		pageURL = SearchURL(q.Brand, q.Reference)
	}
	if _, err := CheckURL(pageURL); err != nil {
		return nil, pageURL, err
	}
	s.logger().Debugf("Fetching %s", pageURL)
	listings, err := s.FetchAndParse(ctx, pageURL)
	return listings, pageURL, err
}

// Lowest returns the cheapest qualifying listing, or nil when none qualifies.
func (s *Source) Lowest(ctx context.Context, q marketplace.Query) (*marketplace.Result, error) {
	listings, pageURL, err := s.Listings(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}

	l := listings[0]
	res := &marketplace.Result{
		Source:      Name,
		LowestCents: l.PriceCents,
		Currency:    l.Currency,
		URL:         l.URL,
		Location:    l.Location,
		HasBox:      l.HasBox,
		HasPapers:   l.HasPapers,
		SampleCount: len(listings),
	}
	if res.URL == "" {
		res.URL = pageURL
	}
	if res.Location == "" {
		res.Location = marketplace.DefaultCountry
	}
	return res, nil
}

func (s *Source) extract(page, base string) []extract.Listing {
	engine := s.Engine
	if engine == nil {
		engine = extract.Default()
	}
	rep := engine.Extract(page, base)
	s.logger().Debugf("Extracted %d listings from %d candidates (rejected: %v)", len(rep.Listings), rep.Candidates, rep.Rejected)
	if s.OnReport != nil {
		s.OnReport(rep)
	}
	return rep.Listings
}

func (s *Source) logger() marketplace.Logger {
	if s.Log == nil {
		return marketplace.NopLogger{}
	}
	return s.Log
}
