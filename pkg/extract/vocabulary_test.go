package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeywordsMatch(t *testing.T) {
	country := DefaultVocabulary().Country.compile()
	tests := map[string]bool{
		"New York, United States": true,
		"Dallas, USA":             true,
		"US":                      true,
		"Sydney, Australia":       false,
		"Moscow, Russia":          false,
		"Jerusalem":               false,
		"":                        false,
	}
	for in, want := range tests {
		if got := matches(country, in); got != want {
			t.Fatalf("country match %q = %v, want %v", in, got, want)
		}
	}

	if matches(Keywords{}.compile(), "anything") {
		t.Fatalf("empty keyword set must not match")
	}
}

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	data := "box:\n  words: [box, case]\ntitle_length: 40\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if v.TitleLength != 40 {
		t.Fatalf("title length not overridden: %d", v.TitleLength)
	}
	if len(v.Box.Words) != 2 || v.Box.Words[1] != "case" {
		t.Fatalf("box words not overridden: %v", v.Box.Words)
	}
	if len(v.Papers.Words) == 0 {
		t.Fatalf("papers vocabulary should keep its defaults")
	}
}

func TestParseVocabularyInvalid(t *testing.T) {
	for _, data := range []string{"title_length: 0\n", "currency_symbols: []\n", "box: [unclosed\n"} {
		if _, err := ParseVocabulary([]byte(data)); err == nil {
			t.Fatalf("expected error for %q", data)
		}
	}
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
