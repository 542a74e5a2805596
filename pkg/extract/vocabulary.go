package extract

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keywords is a case-insensitive term set. Words must appear as whole words,
// phrases match anywhere in the text.
type Keywords struct {
	Words   []string `yaml:"words"`
	Phrases []string `yaml:"phrases"`
}

// Vocabulary holds the word lists the heuristics run on. It is read-only once
// an Engine has been built from it.
type Vocabulary struct {
	Country          Keywords `yaml:"country"`
	Box              Keywords `yaml:"box"`
	Papers           Keywords `yaml:"papers"`
	FullSet          Keywords `yaml:"full_set"`
	LocationPrefixes []string `yaml:"location_prefixes"`
	CurrencySymbols  []string `yaml:"currency_symbols"`
	CurrencyTokens   []string `yaml:"currency_tokens"`
	Currency         string   `yaml:"currency"`
	DefaultCurrency  string   `yaml:"default_currency"`
	TitleLength      int      `yaml:"title_length"`
}

// DefaultVocabulary returns the US / box / papers vocabulary.
//
// Country words match as whole words only, unlike a plain substring test:
// "us" does not qualify "Australia", "Columbus" or "Austin".
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Country: Keywords{
			Words:   []string{"us", "usa"},
			Phrases: []string{"united states", "united states of america"},
		},
		Box: Keywords{
			Words:   []string{"box"},
			Phrases: []string{"box included", "original box"},
		},
		Papers: Keywords{
			Words:   []string{"papers"},
			Phrases: []string{"warranty card", "papers included", "full set"},
		},
		FullSet: Keywords{
			Phrases: []string{"full set"},
		},
		LocationPrefixes: []string{"ships from", "seller location", "location"},
		CurrencySymbols:  []string{"$"},
		CurrencyTokens:   []string{"usd", "us$", "$"},
		Currency:         "USD",
		DefaultCurrency:  "USD",
		TitleLength:      120,
	}
}

// LoadVocabulary reads a YAML vocabulary file. Keys missing from the file keep
// their DefaultVocabulary values.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("reading vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes YAML on top of DefaultVocabulary.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	v := DefaultVocabulary()
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("decoding vocabulary: %w", err)
	}
	if v.TitleLength <= 0 {
		return Vocabulary{}, fmt.Errorf("title_length must be positive, got %d", v.TitleLength)
	}
	if len(v.CurrencySymbols) == 0 {
		return Vocabulary{}, fmt.Errorf("at least one currency symbol is required")
	}
	return v, nil
}

// compile builds a single matcher for the keyword set. A nil result never
// matches.
func (k Keywords) compile() *regexp.Regexp {
	var parts []string
	if words := quoteAll(k.Words); len(words) > 0 {
		parts = append(parts, `\b(?:`+strings.Join(words, "|")+`)\b`)
	}
	parts = append(parts, quoteAll(k.Phrases)...)
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

// terms returns words and phrases longest first, for use in alternations
// where the longer spelling should win.
func (k Keywords) terms() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range append(append([]string{}, k.Phrases...), k.Words...) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(t)]; ok {
			continue
		}
		seen[strings.ToLower(t)] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func quoteAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, regexp.QuoteMeta(s))
		}
	}
	return out
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}

// locationPattern matches "<prefix>: [place] <country term>" in a text blob,
// capturing the place including the trailing country term. The place is
// optional so "Ships from: United States" still matches, and it never crosses
// a period or dash, so a country term in a later sentence is not taken as the
// end of the place.
func locationPattern(prefixes []string, country Keywords) *regexp.Regexp {
	pre := quoteAll(prefixes)
	terms := quoteAll(country.terms())
	if len(pre) == 0 || len(terms) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(pre, "|") + `)[:\s]+((?:[A-Za-z][A-Za-z\s,]*?)??\b(?:` + strings.Join(terms, "|") + `))\b`)
}
