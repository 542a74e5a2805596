// Package export writes a snapshot of extracted listings to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/watchbuyer/watchbuyer/pkg/extract"
	"github.com/watchbuyer/watchbuyer/pkg/money"
)

const sheetName = "Listings"

var header = []string{"title", "price", "currency", "location", "box", "papers", "url"}

// Formats lists the supported file extensions.
var Formats = []string{"csv", "json", "xlsx"}

func row(l extract.Listing) []string {
	return []string{
		l.Title,
		fmt.Sprintf("%.2f", money.CentsToDollars(l.PriceCents)),
		l.Currency,
		l.Location,
		strconv.FormatBool(l.HasBox),
		strconv.FormatBool(l.HasPapers),
		l.URL,
	}
}

func ExportCSV(path string, listings []extract.Listing) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range listings {
		if err := w.Write(row(l)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv export: %w", err)
	}
	return nil
}

func ExportJSON(path string, listings []extract.Listing) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json export: %w", err)
	}
	defer f.Close()

	if listings == nil {
		listings = []extract.Listing{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(listings); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

// ExportXLSX writes one sheet with a bold, frozen header row. Prices are
// stored as numbers so they sort in a spreadsheet.
func ExportXLSX(path string, listings []extract.Listing) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name xlsx sheet: %w", err)
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write xlsx header: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create xlsx style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style xlsx header: %w", err)
	}

	for r, l := range listings {
		values := []interface{}{l.Title, money.CentsToDollars(l.PriceCents), l.Currency, l.Location, l.HasBox, l.HasPapers, l.URL}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row: %w", err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze xlsx header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 60); err != nil {
		return fmt.Errorf("size xlsx columns: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx export: %w", err)
	}
	return nil
}

// Export picks the writer from the file extension.
func Export(path string, listings []extract.Listing) error {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv":
		return ExportCSV(path, listings)
	case "json":
		return ExportJSON(path, listings)
	case "xlsx":
		return ExportXLSX(path, listings)
	default:
		return fmt.Errorf("unsupported export format %q (want one of %s)", ext, strings.Join(Formats, ", "))
	}
}

// BuildExportPath names an export file after the search and the time.
func BuildExportPath(dir, query, ext string, now time.Time) string {
	sanitized := sanitizeFilename(query)
	if sanitized == "" {
		sanitized = "listings"
	}
	if ext == "" {
		ext = "csv"
	}
	name := fmt.Sprintf("watchbuyer-%s-%s.%s", sanitized, now.Format("20060102-150405"), ext)
	return filepath.Join(dir, name)
}

func sanitizeFilename(query string) string {
	trimmed := strings.TrimSpace(strings.ToLower(query))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	prevDash := false
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash {
			b.WriteByte('-')
			prevDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 40 {
		out = strings.Trim(out[:40], "-")
	}
	return out
}
