package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func container(t *testing.T, fragment string) *Container {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel := d.Find("body")
	return &Container{Selection: sel, Text: collapse(sel.Text())}
}

func TestStrategiesFirstOrder(t *testing.T) {
	c := container(t, `<div data-price-value="">$10</div><span class="price">$20</span>`)

	v, name, ok := DefaultPriceStrategies(DefaultVocabulary()).First(c)
	if !ok {
		t.Fatalf("expected a price")
	}
	// The attribute is blank, so the element text wins.
	if name != "data-price-value-text" || v != "$10" {
		t.Fatalf("got %q from %q", v, name)
	}
}

func TestStrategiesNoMatch(t *testing.T) {
	c := container(t, `<p>nothing here</p>`)
	if _, _, ok := DefaultPriceStrategies(DefaultVocabulary()).First(c); ok {
		t.Fatalf("expected no price")
	}
	if _, _, ok := (Strategies{}).First(c); ok {
		t.Fatalf("empty strategy list must not succeed")
	}
}

func TestTextPrefixRunes(t *testing.T) {
	c := &Container{Text: "Müller Uhren Zürich"}
	v, ok := TextPrefix("p", 6).Extract(c)
	if !ok || v != "Müller" {
		t.Fatalf("got %q", v)
	}
}

func TestTextPattern(t *testing.T) {
	c := &Container{Text: "Seller location: Austin, TX, US box papers"}
	v, ok := TextPattern("loc", locationPattern(DefaultVocabulary().LocationPrefixes, DefaultVocabulary().Country)).Extract(c)
	if !ok || v != "Austin, TX, US" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
	if _, ok := TextPattern("nil", nil).Extract(c); ok {
		t.Fatalf("nil pattern must not match")
	}
	if _, ok := TextPattern("nogroup", regexp.MustCompile(`box`)).Extract(c); ok {
		t.Fatalf("pattern without a group must not match")
	}
}

func TestStrategyNames(t *testing.T) {
	got := DefaultTitleStrategies(DefaultVocabulary()).Names()
	if len(got) != 2 || got[0] != "title-element" || got[1] != "text-prefix" {
		t.Fatalf("unexpected names %v", got)
	}
}
