package whttp

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// UserAgent is sent on every request that does not set its own.
const UserAgent = "Mozilla/5.0 (compatible; WatchBuyer/1.0)"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    string
}

type WHTTPRes struct {
	URL        string
	StatusCode int
	BodyString string
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.StatusCode, strings.TrimSpace(body))
}

// CheckStatus returns a *StatusError for non-2xx responses.
func (r *WHTTPRes) CheckStatus() error {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return &StatusError{URL: r.URL, StatusCode: r.StatusCode, Body: r.BodyString}
	}
	return nil
}

// Options configures a client. Retries defaults to zero so transport
// failures surface on the first attempt.
type Options struct {
	Retries int
	Timeout time.Duration
	Proxy   string
}

// NewClient builds a retryablehttp client with logging silenced and error
// responses passed through to the caller.
func NewClient(opts Options) (*retryablehttp.Client, error) {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = opts.Retries
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	} else {
		c.HTTPClient.Timeout = 30 * time.Second
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = http.ProxyURL(proxyURL)
		c.HTTPClient.Transport = t
	}
	return c, nil
}

var (
	defaultMu     sync.Mutex
	defaultClient *retryablehttp.Client
)

// GetDefaultClient returns the process-wide client, creating it on first use.
func GetDefaultClient() *retryablehttp.Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient, _ = NewClient(Options{})
	}
	return defaultClient
}

// SetupDefaultClient replaces the process-wide client.
func SetupDefaultClient(opts Options) error {
	c, err := NewClient(opts)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
	return nil
}

// SendHTTPRequest performs the request with client, or the default client when
// client is nil. Any status code is returned as a response; callers use
// CheckStatus to turn non-2xx into an error.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		client = GetDefaultClient()
	}
	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}

	var body interface{}
	if wReq.Body != "" {
		body = strings.NewReader(wReq.Body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		URL:        wReq.URL,
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	return wRes, nil
}
