package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Default seed watch.
const (
	SeedBrand       = "Tudor"
	SeedReference   = "M7941A1A0NU-0001"
	SeedMSRPCents   = 455000
	SeedDiscountBps = 1500
)

func validateWatch(w *Watch) error {
	w.Brand = strings.TrimSpace(w.Brand)
	w.Reference = strings.TrimSpace(w.Reference)
	switch {
	case w.Brand == "":
		return fmt.Errorf("%w: brand is required", ErrInvalidWatch)
	case w.Reference == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidWatch)
	case w.MSRPCents < 0:
		return fmt.Errorf("%w: msrp must not be negative", ErrInvalidWatch)
	case w.BrandDiscountBps < 0 || w.BrandDiscountBps > 10000:
		return fmt.Errorf("%w: brand discount must be between 0 and 10000 bps", ErrInvalidWatch)
	}
	return nil
}

// UpsertWatch inserts w, or updates the MSRP and discount of the existing
// watch with the same brand and reference. The stored row is returned.
func (d *DB) UpsertWatch(ctx context.Context, w Watch) (*Watch, error) {
	if err := validateWatch(&w); err != nil {
		return nil, err
	}
	now := d.timestamp()
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO watches(brand, reference, msrp_cents, brand_discount_bps, created_at, updated_at)
VALUES(?,?,?,?,?,?)
ON CONFLICT(brand, reference) DO UPDATE SET
  msrp_cents = excluded.msrp_cents,
  brand_discount_bps = excluded.brand_discount_bps,
  updated_at = excluded.updated_at`,
		w.Brand, w.Reference, w.MSRPCents, w.BrandDiscountBps, now, now)
	if err != nil {
		return nil, err
	}
	return d.GetWatch(ctx, w.Brand, w.Reference)
}

const watchColumns = "id, brand, reference, msrp_cents, brand_discount_bps, created_at, updated_at"

func scanWatch(row interface{ Scan(...interface{}) error }) (*Watch, error) {
	var (
		w                    Watch
		createdAt, updatedAt string
	)
	if err := row.Scan(&w.ID, &w.Brand, &w.Reference, &w.MSRPCents, &w.BrandDiscountBps, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	w.CreatedAt = parseTimestamp(createdAt)
	w.UpdatedAt = parseTimestamp(updatedAt)
	return &w, nil
}

// GetWatch looks a watch up by brand and reference.
func (d *DB) GetWatch(ctx context.Context, brand, reference string) (*Watch, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+watchColumns+" FROM watches WHERE brand = ? AND reference = ?", strings.TrimSpace(brand), strings.TrimSpace(reference))
	return scanWatch(row)
}

func (d *DB) GetWatchByID(ctx context.Context, id int64) (*Watch, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+watchColumns+" FROM watches WHERE id = ?", id)
	return scanWatch(row)
}

// ListWatches returns all watches ordered by brand and reference. A non-empty
// brand filter matches brands case-insensitively.
func (d *DB) ListWatches(ctx context.Context, brand string) ([]Watch, error) {
	q := "SELECT " + watchColumns + " FROM watches"
	args := []interface{}{}
	if brand != "" {
		q += " WHERE brand = ? COLLATE NOCASE"
		args = append(args, brand)
	}
	q += " ORDER BY brand, reference"

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Watch{}
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// DeleteWatch removes a watch by id. Its evaluation history is kept.
func (d *DB) DeleteWatch(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM watches WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaults stores the default Tudor reference. Running it twice is
// harmless.
func (d *DB) SeedDefaults(ctx context.Context) (*Watch, error) {
	return d.UpsertWatch(ctx, Watch{
		Brand:            SeedBrand,
		Reference:        SeedReference,
		MSRPCents:        SeedMSRPCents,
		BrandDiscountBps: SeedDiscountBps,
	})
}
