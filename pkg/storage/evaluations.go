package storage

import (
	"context"
	"strings"
)

// RecordEvaluation appends e to the history. A zero OccurredAt is set to now.
func (d *DB) RecordEvaluation(ctx context.Context, e Evaluation) (*Evaluation, error) {
	e.Brand = strings.TrimSpace(e.Brand)
	e.Reference = strings.TrimSpace(e.Reference)
	occurred := d.timestamp()
	if !e.OccurredAt.IsZero() {
		occurred = e.OccurredAt.UTC().Format(timeLayout)
	}

	res, err := d.sql.ExecContext(ctx, `
INSERT INTO evaluations(occurred_at, brand, reference, lowest_source, lowest_cents, brand_target_cents, range_low_cents, range_high_cents, source_errors)
VALUES(?,?,?,?,?,?,?,?,?)`,
		occurred, e.Brand, e.Reference, nullIfEmpty(e.LowestSource), e.LowestCents, e.BrandTargetCents, e.RangeLowCents, e.RangeHighCents, e.SourceErrors)
	if err != nil {
		return nil, err
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	e.OccurredAt = parseTimestamp(occurred)
	return &e, nil
}

// ListRecentEvaluations returns the newest evaluations first.
func (d *DB) ListRecentEvaluations(ctx context.Context, opts HistoryOptions) ([]Evaluation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Brand != "" {
		where += " AND brand = ? COLLATE NOCASE"
		args = append(args, opts.Brand)
	}
	if opts.Reference != "" {
		where += " AND reference = ?"
		args = append(args, opts.Reference)
	}
	args = append(args, limit)

	q := "SELECT id, occurred_at, brand, reference, COALESCE(lowest_source, ''), lowest_cents, brand_target_cents, range_low_cents, range_high_cents, source_errors FROM evaluations " + where + " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Evaluation{}
	for rows.Next() {
		var (
			e          Evaluation
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &occurredAt, &e.Brand, &e.Reference, &e.LowestSource, &e.LowestCents, &e.BrandTargetCents, &e.RangeLowCents, &e.RangeHighCents, &e.SourceErrors); err != nil {
			return nil, err
		}
		e.OccurredAt = parseTimestamp(occurredAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
