package extract

import (
	"reflect"
	"strings"
	"testing"
)

const tudorPage = `<html><body>
<article data-listingid="1">
  <h2>Tudor Black Bay 58</h2>
  <span class="price">$3,200.00</span>
  <div class="location">New York, United States</div>
  <p>Includes box and papers</p>
</article>
</body></html>`

func TestParseListingsQualifyingListing(t *testing.T) {
	got := ParseListings(tudorPage, "")
	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %d: %+v", len(got), got)
	}
	want := Listing{
		Title:      "Tudor Black Bay 58",
		PriceCents: 320000,
		Currency:   "USD",
		Location:   "New York, United States",
		HasBox:     true,
		HasPapers:  true,
	}
	if got[0] != want {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestExtractRejectsUnparseablePrice(t *testing.T) {
	page := `<article data-listingid="2">
  <h2>Rolex Submariner</h2>
  <span class="price">Price available on request</span>
  <span class="location">Chicago, United States</span>
  <p>box and papers</p>
</article>`

	rep := Default().Extract(page, "")
	if len(rep.Listings) != 0 {
		t.Fatalf("expected no listings, got %+v", rep.Listings)
	}
	if rep.Rejected[RejectBadPrice] != 1 {
		t.Fatalf("expected one unparseable price rejection, got %v", rep.Rejected)
	}
}

func TestExtractFullSetImpliesBoxAndPapers(t *testing.T) {
	page := `<article data-listingid="3">
  <h3>Omega Speedmaster</h3>
  <div data-price-value="5100">$5,100</div>
  <div class="location">Denver, US</div>
  <p>Full set of accessories</p>
</article>`

	rep := Default().Extract(page, "")
	if len(rep.Listings) != 1 {
		t.Fatalf("expected 1 listing, got %+v (rejected %v)", rep.Listings, rep.Rejected)
	}
	l := rep.Listings[0]
	if !l.HasBox || !l.HasPapers {
		t.Fatalf("full set should set box and papers, got %+v", l)
	}
	if l.PriceCents != 510000 {
		t.Fatalf("expected attribute price 510000, got %d", l.PriceCents)
	}
	if rep.PriceStrategies["data-price-value-attr"] != 1 {
		t.Fatalf("expected attribute strategy to win, got %v", rep.PriceStrategies)
	}
	// The price div itself is a candidate too, but has no price beneath it.
	if rep.Candidates != 2 || rep.Rejected[RejectNoPrice] != 1 {
		t.Fatalf("unexpected candidates=%d rejected=%v", rep.Candidates, rep.Rejected)
	}
}

func TestExtractFilters(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		reason string
	}{
		{
			name:   "foreign location",
			page:   `<li data-listingid="1"><span class="price">$1,000</span><span class="location">Berlin, Germany</span> box papers</li>`,
			reason: RejectNotUS,
		},
		{
			name:   "country letters inside a word",
			page:   `<li data-listingid="1"><span class="price">$1,000</span><span class="location">Sydney, Australia</span> box papers</li>`,
			reason: RejectNotUS,
		},
		{
			name:   "no location at all",
			page:   `<li data-listingid="1"><span class="price">$1,000</span> box papers</li>`,
			reason: RejectNotUS,
		},
		{
			name:   "missing box",
			page:   `<li data-listingid="1"><span class="price">$1,000</span><span class="location">USA</span> papers only</li>`,
			reason: RejectNoBox,
		},
		{
			name:   "missing papers",
			page:   `<li data-listingid="1"><span class="price">$1,000</span><span class="location">USA</span> original box</li>`,
			reason: RejectNoPapers,
		},
		{
			name:   "empty price container",
			page:   `<div class="price"></div>`,
			reason: RejectEmptyText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Default().Extract(tt.page, "")
			if len(rep.Listings) != 0 {
				t.Fatalf("expected no listings, got %+v", rep.Listings)
			}
			if rep.Rejected[tt.reason] == 0 {
				t.Fatalf("expected rejection %q, got %v", tt.reason, rep.Rejected)
			}
		})
	}
}

func TestParseListingsSortedAndStable(t *testing.T) {
	page := `<ul>
<li data-listingid="a"><h3>A</h3><span class="price">$5,000</span><span class="location">USA</span> box papers</li>
<li data-listingid="b"><h3>B</h3><span class="price">$3,000</span><span class="location">USA</span> box papers</li>
<li data-listingid="c"><h3>C</h3><span class="price">$4,000</span><span class="location">USA</span> box papers</li>
<li data-listingid="d"><h3>D</h3><span class="price">$3,000</span><span class="location">USA</span> box papers</li>
</ul>`

	got := ParseListings(page, "")
	var titles []string
	for _, l := range got {
		titles = append(titles, l.Title)
	}
	want := []string{"B", "D", "C", "A"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("got order %v, want %v", titles, want)
	}
}

func TestParseListingsIdempotent(t *testing.T) {
	first := ParseListings(tudorPage, "https://www.chrono24.com")
	second := ParseListings(tudorPage, "https://www.chrono24.com")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between runs:\n%+v\n%+v", first, second)
	}
}

func TestParseListingsEmptyInput(t *testing.T) {
	for _, page := range []string{"", "<html><body></body></html>", "<<<not html"} {
		got := ParseListings(page, "")
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice for %q, got %#v", page, got)
		}
	}
}

func TestExtractDeduplicatesByNode(t *testing.T) {
	page := `<li data-listingid="1"><span class="price">$100</span><span class="location">USA</span> box papers</li>`
	rep := Default().Extract(page, "")
	if rep.Candidates != 1 {
		t.Fatalf("expected a single candidate, got %d", rep.Candidates)
	}
	if len(rep.Listings) != 1 || rep.Listings[0].PriceCents != 10000 {
		t.Fatalf("unexpected listings %+v", rep.Listings)
	}
}

func TestExtractKeepsNestedContainers(t *testing.T) {
	page := `<article data-listingid="9"><div class="body"><span>$3,000</span><span class="location">Dallas, USA</span> box and papers</div></article>`
	rep := Default().Extract(page, "")
	if rep.Candidates != 2 {
		t.Fatalf("expected article and inner div as candidates, got %d", rep.Candidates)
	}
	if len(rep.Listings) != 2 {
		t.Fatalf("expected both nested containers to qualify, got %+v", rep.Listings)
	}
	for _, l := range rep.Listings {
		if l.PriceCents != 300000 {
			t.Fatalf("unexpected price %d", l.PriceCents)
		}
	}
}

func TestExtractLocationPattern(t *testing.T) {
	page := `<div class="card"><h2>Cartier Santos</h2><span>$6,250</span>
<p>Ships from: Miami, Florida, United States</p><p>Box and papers included</p></div>`

	got := ParseListings(page, "")
	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %+v", got)
	}
	if got[0].Location != "Miami, Florida, United States" {
		t.Fatalf("unexpected location %q", got[0].Location)
	}

	foreign := `<li data-listingid="1"><span class="price">$1,000</span> Location: Berlin, Germany. Ships worldwide, also to US. box papers</li>`
	rep := Default().Extract(foreign, "")
	if len(rep.Listings) != 0 {
		t.Fatalf("a US mention in a later sentence must not qualify, got %+v", rep.Listings)
	}
	if rep.Rejected[RejectNotUS] != 1 {
		t.Fatalf("expected a not_us rejection, got %v", rep.Rejected)
	}

	dashed := `<li data-listingid="2"><span class="price">$1,000</span> Location: Zurich - ships to USA - box papers</li>`
	if got := ParseListings(dashed, ""); len(got) != 0 {
		t.Fatalf("a US mention after a dash must not qualify, got %+v", got)
	}
}

func TestExtractPriceInsideInlineMarkup(t *testing.T) {
	page := `<ul><li><div><span><strong>$4,000</strong></span><span class="location">Dallas, USA</span> box and papers</div></li></ul>`

	rep := Default().Extract(page, "")
	if rep.Candidates != 1 {
		t.Fatalf("expected the div as the only candidate, got %d", rep.Candidates)
	}
	if len(rep.Listings) != 1 {
		t.Fatalf("expected 1 listing, got %+v (rejected %v)", rep.Listings, rep.Rejected)
	}
	l := rep.Listings[0]
	if l.PriceCents != 400000 || l.Location != "Dallas, USA" || !l.HasBox || !l.HasPapers {
		t.Fatalf("unexpected listing %+v", l)
	}
}

// "Full set" is a plain phrase match: a negated mention still sets both flags.
func TestExtractFullSetIgnoresNegation(t *testing.T) {
	page := `<li data-listingid="1"><span class="price">$2,000</span><span class="location">USA</span> not full set</li>`

	got := ParseListings(page, "")
	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %+v", got)
	}
	if !got[0].HasBox || !got[0].HasPapers {
		t.Fatalf("expected box and papers from the full set phrase, got %+v", got[0])
	}
}

func TestExtractResolvesURLs(t *testing.T) {
	tests := []struct {
		href, base, want string
	}{
		{"/watches/tudor-1.htm", "https://www.chrono24.com", "https://www.chrono24.com/watches/tudor-1.htm"},
		{"tudor-1.htm", "https://www.chrono24.com/search/", "https://www.chrono24.com/search/tudor-1.htm"},
		{"https://example.com/x", "https://www.chrono24.com", "https://example.com/x"},
		{"/watches/tudor-1.htm", "", "/watches/tudor-1.htm"},
		{"/watches/tudor-1.htm", "not a base", "/watches/tudor-1.htm"},
	}

	for _, tt := range tests {
		page := `<li data-listingid="1"><a href="` + tt.href + `">Tudor</a><span class="price">$100</span><span class="location">USA</span> box papers</li>`
		got := ParseListings(page, tt.base)
		if len(got) != 1 {
			t.Fatalf("expected 1 listing for %q, got %+v", tt.href, got)
		}
		if got[0].URL != tt.want {
			t.Fatalf("resolve(%q, %q) = %q, want %q", tt.href, tt.base, got[0].URL, tt.want)
		}
	}
}

func TestEngineCustomVocabulary(t *testing.T) {
	v, err := ParseVocabulary([]byte("country:\n  words: [de]\n  phrases: [germany]\n"))
	if err != nil {
		t.Fatalf("ParseVocabulary: %v", err)
	}
	page := `<li data-listingid="1"><span class="price">$1,000</span><span class="location">Berlin, Germany</span> box papers</li>`

	if got := ParseListings(page, ""); len(got) != 0 {
		t.Fatalf("default engine should reject Germany, got %+v", got)
	}
	if got := New(v).ParseListings(page, ""); len(got) != 1 {
		t.Fatalf("custom engine should accept Germany, got %+v", got)
	}
}

func TestEngineReplacedStrategies(t *testing.T) {
	e := New(DefaultVocabulary())
	e.Price = Strategies{FirstAttr("sku-price", "[data-sku-price]", "data-sku-price")}

	page := `<li data-listingid="1"><b data-sku-price="777">x</b><span class="price">$1</span><span class="location">USA</span> box papers</li>`
	rep := e.Extract(page, "")
	if len(rep.Listings) != 1 || rep.Listings[0].PriceCents != 77700 {
		t.Fatalf("unexpected listings %+v", rep.Listings)
	}
	if rep.PriceStrategies["sku-price"] != 1 {
		t.Fatalf("unexpected strategy counts %v", rep.PriceStrategies)
	}
}

func TestParseListingsInlineTextContainer(t *testing.T) {
	page := `<div data-testid="search-result">Tudor Black Bay — <span data-price-value="3200.00">$3,200.00</span> — Location: New York, United States — full set with box and papers</div>`

	got := ParseListings(page, "https://www.chrono24.com")
	if len(got) != 1 {
		t.Fatalf("expected exactly one listing, got %+v", got)
	}
	l := got[0]
	if l.PriceCents != 320000 || l.Currency != "USD" || !l.HasBox || !l.HasPapers {
		t.Fatalf("unexpected listing %+v", l)
	}
	if l.Location != "New York, United States" {
		t.Fatalf("unexpected location %q", l.Location)
	}
	if !strings.HasPrefix(l.Title, "Tudor Black Bay") {
		t.Fatalf("title should fall back to the text blob, got %q", l.Title)
	}
}
