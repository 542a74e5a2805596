package ebay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/whttp"
)

const searchBody = `{
  "total": 4,
  "itemSummaries": [
    {"title": "Tudor Black Bay 58 box papers", "price": {"value": "3900.00", "currency": "USD"}, "itemWebUrl": "https://www.ebay.com/itm/1", "itemLocation": {"country": "US"}},
    {"title": "Tudor Black Bay 58", "shortDescription": "Comes with Box and Papers", "price": {"value": "3650.50", "currency": "USD"}, "itemWebUrl": "https://www.ebay.com/itm/2"},
    {"title": "Tudor Black Bay 58 watch only", "price": {"value": "2900.00", "currency": "USD"}, "itemWebUrl": "https://www.ebay.com/itm/3"},
    {"title": "Tudor Black Bay 58 box papers", "price": {"value": "3650.50"}, "itemWebUrl": "https://www.ebay.com/itm/4"}
  ]
}`

func newTestServer(t *testing.T, search string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" || r.Form.Get("scope") != browseScope {
			t.Errorf("unexpected form %v", r.Form)
		}
		w.Write([]byte(`{"access_token":"tok-123","expires_in":7200,"token_type":"Application Access Token"}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		if q.Get("q") != "Tudor 79030N" || q.Get("sort") != "price" || q.Get("limit") != "50" || q.Get("filter") != "itemLocationCountry:US" {
			t.Errorf("unexpected query %v", q)
		}
		if status != 0 {
			w.WriteHeader(status)
		}
		w.Write([]byte(search))
	})
	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(nil)
	c.APIURL = srv.URL + "/search"
	c.TokenURL = srv.URL + "/token"
	return c
}

func TestAuthenticateAndLowest(t *testing.T) {
	srv := newTestServer(t, searchBody, 0)
	defer srv.Close()
	c := newTestClient(srv)

	if err := c.Authenticate(context.Background(), marketplace.AuthConfig{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if c.Token() != "tok-123" {
		t.Fatalf("unexpected token %q", c.Token())
	}

	res, err := c.Lowest(context.Background(), marketplace.Query{Brand: "Tudor", Reference: "79030N"})
	if err != nil {
		t.Fatalf("Lowest: %v", err)
	}
	want := &marketplace.Result{
		Source:      Name,
		LowestCents: 365050,
		Currency:    "USD",
		URL:         "https://www.ebay.com/itm/2",
		Location:    "US",
		HasBox:      true,
		HasPapers:   true,
		SampleCount: 3,
	}
	if *res != *want {
		t.Fatalf("got %+v, want %+v", res, want)
	}
}

func TestLowestCustomPhrases(t *testing.T) {
	srv := newTestServer(t, searchBody, 0)
	defer srv.Close()
	c := newTestClient(srv)
	c.SetToken("tok-123")

	res, err := c.Lowest(context.Background(), marketplace.Query{Brand: "Tudor", Reference: "79030N", RequiredPhrases: []string{"Watch Only"}})
	if err != nil {
		t.Fatalf("Lowest: %v", err)
	}
	if res.LowestCents != 290000 || res.HasBox || res.HasPapers {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLowestNoItems(t *testing.T) {
	srv := newTestServer(t, `{"total":0}`, 0)
	defer srv.Close()
	c := newTestClient(srv)
	c.SetToken("tok-123")

	res, err := c.Lowest(context.Background(), marketplace.Query{Brand: "Tudor", Reference: "79030N"})
	if err != nil || res != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", res, err)
	}
}

func TestLowestStatusError(t *testing.T) {
	srv := newTestServer(t, `{"errors":[{"message":"rate limited"}]}`, http.StatusTooManyRequests)
	defer srv.Close()
	c := newTestClient(srv)
	c.SetToken("tok-123")

	_, err := c.Lowest(context.Background(), marketplace.Query{Brand: "Tudor", Reference: "79030N"})
	var se *whttp.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 StatusError, got %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	srv := newTestServer(t, searchBody, 0)
	defer srv.Close()
	c := newTestClient(srv)

	if err := c.Authenticate(context.Background(), marketplace.AuthConfig{}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	err := c.Authenticate(context.Background(), marketplace.AuthConfig{ClientID: "id", ClientSecret: "wrong"})
	var se *whttp.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if _, err := c.Lowest(context.Background(), marketplace.Query{Brand: "Tudor"}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSearchURLCountry(t *testing.T) {
	c := NewClient(nil)
	got := c.SearchURL(marketplace.Query{Brand: "Rolex", Reference: "126610LN", Country: "GB"})
	want := DefaultAPIURL + "?fieldgroups=ASPECT_REFINEMENTS&filter=itemLocationCountry%3AGB&limit=50&q=Rolex+126610LN&sort=price"
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}
