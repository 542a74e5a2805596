package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/watchbuyer/watchbuyer/pkg/extract"
)

var sample = []extract.Listing{
	{Title: "Tudor Black Bay", PriceCents: 320000, Currency: "USD", Location: "New York, United States", HasBox: true, HasPapers: true, URL: "https://www.chrono24.com/tudor/1.htm"},
	{Title: "Tudor, \"Pelagos\"", PriceCents: 405050, Currency: "USD", Location: "USA", HasBox: true, HasPapers: true},
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Export(path, sample); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][1] != "price" || records[1][1] != "3200.00" || records[2][0] != `Tudor, "Pelagos"` || records[2][1] != "4050.50" {
		t.Fatalf("unexpected records %v", records)
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.JSON")
	if err := Export(path, sample); err != nil {
		t.Fatalf("Export: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []extract.Listing
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].PriceCents != 405050 {
		t.Fatalf("unexpected listings %+v", got)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := ExportJSON(empty, nil); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(empty); string(b) != "[]\n" {
		t.Fatalf("empty export should be an empty array, got %q", b)
	}
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := Export(path, sample); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "title" || rows[1][0] != "Tudor Black Bay" || rows[1][1] != "3200" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestExportUnsupported(t *testing.T) {
	if err := Export(filepath.Join(t.TempDir(), "out.txt"), sample); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestBuildExportPathSanitizesQuery(t *testing.T) {
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	got := BuildExportPath("/tmp", " Tudor / M7941A1A0NU-0001 ", "xlsx", now)
	want := filepath.Join("/tmp", "watchbuyer-tudor-m7941a1a0nu-0001-20250203-040506.xlsx")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if got := BuildExportPath("/tmp", "  ", "", now); got != filepath.Join("/tmp", "watchbuyer-listings-20250203-040506.csv") {
		t.Fatalf("unexpected default path %s", got)
	}
}
