package storage

import "time"

// Watch is a reference the buyer is tracking.
type Watch struct {
	ID               int64     `json:"id"`
	Brand            string    `json:"brand"`
	Reference        string    `json:"reference"`
	MSRPCents        int64     `json:"msrpCents"`
	BrandDiscountBps int64     `json:"brandDiscountBps"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Evaluation is one recorded buy decision. Listings are never stored.
type Evaluation struct {
	ID               int64     `json:"id"`
	OccurredAt       time.Time `json:"occurredAt"`
	Brand            string    `json:"brand"`
	Reference        string    `json:"reference"`
	LowestSource     string    `json:"lowestSource,omitempty"`
	LowestCents      int64     `json:"lowestCents"`
	BrandTargetCents int64     `json:"brandTargetCents"`
	RangeLowCents    int64     `json:"rangeLowCents"`
	RangeHighCents   int64     `json:"rangeHighCents"`
	SourceErrors     int       `json:"sourceErrors"`
}

// HistoryOptions filters ListRecentEvaluations.
type HistoryOptions struct {
	Brand     string
	Reference string
	Limit     int // defaults to 50 if <= 0
}
