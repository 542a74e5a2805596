// Package ebay looks up the cheapest matching item through the eBay Browse
// API using an application (client credentials) token.
package ebay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/money"
	"github.com/watchbuyer/watchbuyer/pkg/whttp"
)

const (
	Name            = "EBAY"
	DefaultAPIURL   = "https://api.ebay.com/buy/browse/v1/item_summary/search"
	DefaultTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	browseScope     = "https://api.ebay.com/oauth/api_scope/buy.browse"
	searchLimit     = 50
)

// DefaultRequiredPhrases must all appear in an item's title or short
// description when a query names none.
var DefaultRequiredPhrases = []string{"box", "papers"}

var (
	ErrMissingCredentials = errors.New("ebay client id and secret are required")
	ErrNotAuthenticated   = errors.New("ebay client is not authenticated")
)

// Client talks to the Browse API. It is safe for concurrent use once
// authenticated.
type Client struct {
	APIURL   string
	TokenURL string
	HTTP     *retryablehttp.Client

	mu    sync.RWMutex
	token string
}

// NewClient returns a client for the production endpoints. httpClient may be
// nil to use the whttp default client.
func NewClient(httpClient *retryablehttp.Client) *Client {
	return &Client{APIURL: DefaultAPIURL, TokenURL: DefaultTokenURL, HTTP: httpClient}
}

func (c *Client) Name() string { return Name }

// Authenticate exchanges the client credentials for an application token.
func (c *Client) Authenticate(ctx context.Context, cfg marketplace.AuthConfig) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return ErrMissingCredentials
	}
	basic := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", browseScope)

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "POST",
		URL:    c.TokenURL,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Basic " + basic},
			{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
			{Name: "Accept", Value: "application/json"},
		},
		Body: form.Encode(),
	}, c.HTTP)
	if err != nil {
		return fmt.Errorf("ebay oauth: %w", err)
	}
	if err := res.CheckStatus(); err != nil {
		return fmt.Errorf("ebay oauth: %w", err)
	}

	token := gjson.Get(res.BodyString, "access_token").String()
	if token == "" {
		return fmt.Errorf("ebay oauth: no access_token in response")
	}
	c.SetToken(token)
	return nil
}

// SetToken installs a token obtained elsewhere.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SearchURL builds the item summary search request for q.
func (c *Client) SearchURL(q marketplace.Query) string {
	v := url.Values{}
	v.Set("q", q.Keywords())
	v.Set("sort", "price")
	v.Set("limit", strconv.Itoa(searchLimit))
	v.Set("fieldgroups", "ASPECT_REFINEMENTS")
	v.Set("filter", "itemLocationCountry:"+q.CountryOrDefault())
	return c.APIURL + "?" + v.Encode()
}

type item struct {
	price    float64
	currency string
	url      string
	country  string
	text     string
}

// Lowest returns the cheapest item whose title and short description contain
// every required phrase, or nil when none does.
func (c *Client) Lowest(ctx context.Context, q marketplace.Query) (*marketplace.Result, error) {
	token := c.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    c.SearchURL(q),
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + token},
			{Name: "Accept", Value: "application/json"},
		},
	}, c.HTTP)
	if err != nil {
		return nil, fmt.Errorf("ebay search: %w", err)
	}
	if err := res.CheckStatus(); err != nil {
		return nil, fmt.Errorf("ebay search: %w", err)
	}

	phrases := q.RequiredPhrases
	if len(phrases) == 0 {
		phrases = DefaultRequiredPhrases
	}
	items := matchingItems(res.BodyString, phrases)
	if len(items) == 0 {
		return nil, nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].price < items[j].price })

	lowest := items[0]
	result := &marketplace.Result{
		Source:      Name,
		LowestCents: money.DollarsToCentsFloat(lowest.price),
		Currency:    lowest.currency,
		URL:         lowest.url,
		Location:    lowest.country,
		HasBox:      containsAny(lowest.text, "box", "full set"),
		HasPapers:   containsAny(lowest.text, "papers", "full set"),
		SampleCount: len(items),
	}
	if result.Currency == "" {
		result.Currency = "USD"
	}
	if result.Location == "" {
		result.Location = q.CountryOrDefault()
	}
	return result, nil
}

func matchingItems(body string, phrases []string) []item {
	var out []item
	gjson.Get(body, "itemSummaries").ForEach(func(_, it gjson.Result) bool {
		text := strings.ToLower(it.Get("title").String() + " " + it.Get("shortDescription").String())
		for _, p := range phrases {
			if !strings.Contains(text, strings.ToLower(p)) {
				return true
			}
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(it.Get("price.value").String()), 64)
		if err != nil {
			return true
		}
		out = append(out, item{
			price:    price,
			currency: it.Get("price.currency").String(),
			url:      it.Get("itemWebUrl").String(),
			country:  it.Get("itemLocation.country").String(),
			text:     text,
		})
		return true
	})
	return out
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
