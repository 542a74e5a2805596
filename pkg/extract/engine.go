// Package extract finds watch listings in loosely structured marketplace HTML
// and keeps the ones that ship from the US with box and papers.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/watchbuyer/watchbuyer/pkg/money"
)

// Listing is one qualifying marketplace offer.
type Listing struct {
	Title      string `json:"title"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
	URL        string `json:"url,omitempty"`
	Location   string `json:"location,omitempty"`
	HasBox     bool   `json:"hasBox"`
	HasPapers  bool   `json:"hasPapers"`
}

// Rejection reasons counted in Report.Rejected.
const (
	RejectEmptyText = "empty_text"
	RejectNoPrice   = "no_price"
	RejectBadPrice  = "unparseable_price"
	RejectNotUS     = "not_us"
	RejectNoBox     = "no_box"
	RejectNoPapers  = "no_papers"
)

const (
	structuralTargets = `[data-testid="search-result"], [data-testid="listing-item"], article[data-listingid], li[data-listingid]`
	priceTriggers     = `[data-price-value], .price, [class*="price"]`
	cardAncestors     = "article, li, div"
)

// Report is the full outcome of one extraction pass.
type Report struct {
	Listings   []Listing
	Candidates int
	// Rejected counts discarded candidates by the first reason they failed.
	Rejected map[string]int
	// PriceStrategies counts which price strategy produced each emitted
	// listing's price.
	PriceStrategies map[string]int
}

// Engine runs the extraction pipeline with a fixed vocabulary. The strategy
// lists may be replaced before the engine is shared between goroutines.
type Engine struct {
	Title    Strategies
	Price    Strategies
	URL      Strategies
	Location Strategies

	vocab   Vocabulary
	parser  money.Parser
	country *regexp.Regexp
	box     *regexp.Regexp
	papers  *regexp.Regexp
	fullSet *regexp.Regexp
}

var defaultEngine = New(DefaultVocabulary())

// New builds an engine for the vocabulary.
func New(v Vocabulary) *Engine {
	return &Engine{
		Title:    DefaultTitleStrategies(v),
		Price:    DefaultPriceStrategies(v),
		URL:      DefaultURLStrategies(v),
		Location: DefaultLocationStrategies(v),
		vocab:    v,
		parser: money.Parser{
			CurrencyTokens:  v.CurrencyTokens,
			Currency:        v.Currency,
			DefaultCurrency: v.DefaultCurrency,
		},
		country: v.Country.compile(),
		box:     v.Box.compile(),
		papers:  v.Papers.compile(),
		fullSet: v.FullSet.compile(),
	}
}

// Default returns the engine built from DefaultVocabulary.
func Default() *Engine { return defaultEngine }

// Vocabulary returns the engine's vocabulary.
func (e *Engine) Vocabulary() Vocabulary { return e.vocab }

// ParseListings extracts qualifying listings with the default engine.
func ParseListings(doc, baseURL string) []Listing {
	return defaultEngine.Extract(doc, baseURL).Listings
}

// ParseListings extracts qualifying listings, lowest price first.
func (e *Engine) ParseListings(doc, baseURL string) []Listing {
	return e.Extract(doc, baseURL).Listings
}

// Extract parses doc and returns the qualifying listings sorted ascending by
// price, ties kept in candidate order. It never fails: unparseable input
// yields an empty result.
func (e *Engine) Extract(doc, baseURL string) Report {
	rep := Report{
		Listings:        []Listing{},
		Rejected:        make(map[string]int),
		PriceStrategies: make(map[string]int),
	}
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return rep
	}

	cands := e.candidates(d)
	rep.Candidates = len(cands)
	for _, sel := range cands {
		l, strategy, reason := e.listing(sel, baseURL)
		if reason != "" {
			rep.Rejected[reason]++
			continue
		}
		rep.PriceStrategies[strategy]++
		rep.Listings = append(rep.Listings, l)
	}
	sort.SliceStable(rep.Listings, func(i, j int) bool {
		return rep.Listings[i].PriceCents < rep.Listings[j].PriceCents
	})
	return rep
}

// candidates collects listing containers: structural matches first, then the
// cards around price-looking elements, each node at most once.
func (e *Engine) candidates(d *goquery.Document) []*goquery.Selection {
	seen := make(map[*html.Node]struct{})
	var out []*goquery.Selection
	add := func(s *goquery.Selection) {
		if s.Length() == 0 {
			return
		}
		n := s.Get(0)
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, s.First())
	}

	d.Find(structuralTargets).Each(func(_ int, s *goquery.Selection) { add(s) })

	symbols := e.vocab.CurrencySymbols
	d.Find(priceTriggers + ", span, div").Each(func(_ int, s *goquery.Selection) {
		if !s.Is(priceTriggers) && !containsAny(s.Text(), symbols) {
			return
		}
		add(s.Closest(cardAncestors))
	})
	return out
}

func (e *Engine) listing(sel *goquery.Selection, baseURL string) (Listing, string, string) {
	c := &Container{Selection: sel, Text: collapse(sel.Text())}
	if c.Text == "" {
		return Listing{}, "", RejectEmptyText
	}

	priceText, strategy, ok := e.Price.First(c)
	if !ok {
		return Listing{}, "", RejectNoPrice
	}
	m, ok := e.parser.Parse(priceText)
	if !ok {
		return Listing{}, "", RejectBadPrice
	}

	title, _, _ := e.Title.First(c)
	href, _, _ := e.URL.First(c)
	location, _, _ := e.Location.First(c)

	if !e.isUS(location) {
		return Listing{}, "", RejectNotUS
	}
	fullSet := matches(e.fullSet, c.Text)
	l := Listing{
		Title:      title,
		PriceCents: m.Cents,
		Currency:   m.Currency,
		URL:        resolveURL(href, baseURL),
		Location:   location,
		HasBox:     fullSet || matches(e.box, c.Text),
		HasPapers:  fullSet || matches(e.papers, c.Text),
	}
	if !l.HasBox {
		return Listing{}, "", RejectNoBox
	}
	if !l.HasPapers {
		return Listing{}, "", RejectNoPapers
	}
	return l, strategy, ""
}

func (e *Engine) isUS(location string) bool {
	return location != "" && matches(e.country, location)
}

func resolveURL(href, base string) string {
	if href == "" || base == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return href
	}
	return b.ResolveReference(ref).String()
}
