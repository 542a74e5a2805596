package marketplace

import (
	"context"
	"strings"
)

// DefaultCountry is used when a query names no country.
const DefaultCountry = "US"

// AuthConfig carries optional credentials for sources that need them.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
}

// Query describes the watch being priced. PageURL and PageHTML only apply to
// sources that work on result pages; PageHTML wins when both are set.
type Query struct {
	Brand           string
	Reference       string
	Country         string
	RequiredPhrases []string
	PageURL         string
	PageHTML        string
}

// Keywords is the free-text search string for the watch.
func (q Query) Keywords() string {
	return strings.TrimSpace(strings.TrimSpace(q.Brand) + " " + strings.TrimSpace(q.Reference))
}

// CountryOrDefault returns the query country, or DefaultCountry when unset.
func (q Query) CountryOrDefault() string {
	if c := strings.TrimSpace(q.Country); c != "" {
		return c
	}
	return DefaultCountry
}

// Result is the cheapest qualifying offer a source found.
type Result struct {
	Source      string `json:"source"`
	LowestCents int64  `json:"lowestCents"`
	Currency    string `json:"currency"`
	URL         string `json:"url,omitempty"`
	Location    string `json:"location,omitempty"`
	HasBox      bool   `json:"hasBox"`
	HasPapers   bool   `json:"hasPapers"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

// Source looks up the lowest qualifying price on one marketplace. Lowest
// returns a nil Result and a nil error when nothing qualifies; errors are
// reserved for transport and authentication failures.
type Source interface {
	Name() string
	// Authenticate configures the source with credentials, if needed.
	// Sources that don't require auth return nil.
	Authenticate(ctx context.Context, cfg AuthConfig) error
	Lowest(ctx context.Context, q Query) (*Result, error)
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// NopLogger silently discards all messages.
type NopLogger struct{}

func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
func (NopLogger) Debugf(string, ...interface{}) {}
