package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Container is a candidate listing node and its whitespace-collapsed text.
type Container struct {
	Selection *goquery.Selection
	Text      string
}

// Strategy pulls one field value out of a container. A strategy reports ok
// only for a non-empty value.
type Strategy struct {
	Name    string
	Extract func(c *Container) (string, bool)
}

// Strategies is an ordered fallback list; the first strategy that succeeds
// wins.
type Strategies []Strategy

// First runs the strategies in order and returns the first value found along
// with the name of the strategy that produced it.
func (s Strategies) First(c *Container) (value, name string, ok bool) {
	for _, st := range s {
		if v, ok := st.Extract(c); ok {
			return v, st.Name, true
		}
	}
	return "", "", false
}

// Names lists the strategy names in order.
func (s Strategies) Names() []string {
	out := make([]string, len(s))
	for i, st := range s {
		out[i] = st.Name
	}
	return out
}

// FirstText takes the text of the first descendant matching selector.
func FirstText(name, selector string) Strategy {
	return Strategy{Name: name, Extract: func(c *Container) (string, bool) {
		return nonEmpty(c.Selection.Find(selector).First().Text())
	}}
}

// FirstAttr takes an attribute of the first descendant matching selector.
func FirstAttr(name, selector, attr string) Strategy {
	return Strategy{Name: name, Extract: func(c *Container) (string, bool) {
		v, ok := c.Selection.Find(selector).First().Attr(attr)
		if !ok {
			return "", false
		}
		return nonEmpty(v)
	}}
}

// FirstTextContaining takes the text of the first descendant matching selector
// whose text contains any of needles.
func FirstTextContaining(name, selector string, needles []string) Strategy {
	return Strategy{Name: name, Extract: func(c *Container) (string, bool) {
		hit := c.Selection.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return containsAny(s.Text(), needles)
		}).First()
		if hit.Length() == 0 {
			return "", false
		}
		return nonEmpty(hit.Text())
	}}
}

// TextPrefix takes the first n runes of the container text.
func TextPrefix(name string, n int) Strategy {
	return Strategy{Name: name, Extract: func(c *Container) (string, bool) {
		r := []rune(c.Text)
		if len(r) > n {
			r = r[:n]
		}
		return nonEmpty(string(r))
	}}
}

// TextPattern takes the first capture group of re applied to the container
// text. A nil pattern never matches.
func TextPattern(name string, re *regexp.Regexp) Strategy {
	return Strategy{Name: name, Extract: func(c *Container) (string, bool) {
		if re == nil {
			return "", false
		}
		m := re.FindStringSubmatch(c.Text)
		if len(m) < 2 {
			return "", false
		}
		return nonEmpty(m[1])
	}}
}

// DefaultTitleStrategies: structured title element, then a text prefix.
func DefaultTitleStrategies(v Vocabulary) Strategies {
	return Strategies{
		FirstText("title-element", `[data-testid="listing-title"], h2, h3, .title`),
		TextPrefix("text-prefix", v.TitleLength),
	}
}

// DefaultPriceStrategies returns the price fallback chain. Only the winning
// value is parsed; a parse failure does not fall through to the next one.
func DefaultPriceStrategies(v Vocabulary) Strategies {
	return Strategies{
		FirstAttr("data-price-value-attr", "[data-price-value]", "data-price-value"),
		FirstText("data-price-value-text", "[data-price-value]"),
		FirstText("price-class", `.price, [class*="price"]`),
		FirstTextContaining("currency-symbol", "span, div", v.CurrencySymbols),
	}
}

func DefaultURLStrategies(Vocabulary) Strategies {
	return Strategies{
		FirstAttr("anchor-href", "a[href]", "href"),
	}
}

func DefaultLocationStrategies(v Vocabulary) Strategies {
	return Strategies{
		FirstText("location-element", `[data-testid="listing-location"], .location, [class*="location"]`),
		TextPattern("location-pattern", locationPattern(v.LocationPrefixes, v.Country)),
	}
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
