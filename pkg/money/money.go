// Package money parses free-text price fragments into minor-unit amounts and
// formats cent amounts for display.
package money

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a parsed price in minor units (cents).
type Money struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

// DefaultCurrencyTokens are the USD indicators looked for in price text.
var DefaultCurrencyTokens = []string{"usd", "us$", "$"}

var (
	numericRunRe = regexp.MustCompile(`(?i)([$US\s]*)(\d[\d.,\s]*)`)
	nonNumericRe = regexp.MustCompile(`[^0-9.]`)
)

// Parser turns price text into Money.
//
// Currency detection only distinguishes "a USD token was seen" from "nothing
// was seen". Both Currency and DefaultCurrency are "USD" unless overridden, so
// every parse resolves to a single currency. Multi-currency detection is out
// of scope.
type Parser struct {
	CurrencyTokens  []string
	Currency        string
	DefaultCurrency string
}

// DefaultParser is the parser used by Parse.
var DefaultParser = Parser{
	CurrencyTokens:  DefaultCurrencyTokens,
	Currency:        "USD",
	DefaultCurrency: "USD",
}

// Parse parses text with DefaultParser.
func Parse(text string) (Money, bool) {
	return DefaultParser.Parse(text)
}

// Parse extracts the first numeric run from text. It returns false when no
// digits are present or the cleaned run is not a decimal number; callers skip
// the candidate in that case rather than treating it as zero.
//
// Cents are math.Round(amount*100), i.e. halves round away from zero.
func (p Parser) Parse(text string) (Money, bool) {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))

	m := numericRunRe.FindStringSubmatch(clean)
	if m == nil {
		return Money{}, false
	}
	amount, err := strconv.ParseFloat(nonNumericRe.ReplaceAllString(m[2], ""), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, false
	}

	return Money{
		Cents:    int64(math.Round(amount * 100)),
		Currency: p.detectCurrency(clean),
	}, true
}

func (p Parser) detectCurrency(clean string) string {
	lower := strings.ToLower(clean)
	for _, token := range p.CurrencyTokens {
		if token != "" && strings.Contains(lower, strings.ToLower(token)) {
			return p.Currency
		}
	}
	return p.DefaultCurrency
}

// DollarsToCents converts a decimal dollar string such as "4550.00" to cents.
func DollarsToCents(dollars string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(dollars), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid dollar amount %q: %w", dollars, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid dollar amount %q", dollars)
	}
	return DollarsToCentsFloat(v), nil
}

// DollarsToCentsFloat rounds a dollar amount to whole cents, half away from
// zero.
func DollarsToCentsFloat(v float64) int64 {
	return int64(math.Round(v * 100))
}

// CentsToDollars converts cents to a dollar float.
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}

// PercentToBasisPoints converts a percentage string such as "15" or "12.5"
// to basis points.
func PercentToBasisPoints(pct string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", pct, err)
	}
	return int64(math.Round(v * 100)), nil
}

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders cents as "$1,234.56" (negative amounts as "-$1,234.56").
func FormatUSD(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "$" + usPrinter.Sprintf("%.2f", CentsToDollars(cents))
}
