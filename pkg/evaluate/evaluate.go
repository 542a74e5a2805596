// Package evaluate queries marketplaces for a watch and turns the cheapest
// qualifying offer into a suggested buy range.
package evaluate

import (
	"context"
	"sort"
	"sync"

	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/pricing"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

// SourceError is a failure scoped to one marketplace. Other sources in the
// same evaluation are unaffected.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *SourceError) Error() string { return e.Source + ": " + e.Message }

func (e *SourceError) Unwrap() error { return e.Err }

// Decision is the outcome of one evaluation.
type Decision struct {
	Market []marketplace.Result `json:"market"`
	Lowest *marketplace.Result  `json:"lowest,omitempty"`
	pricing.BuyTargets
	Errors []SourceError `json:"errors,omitempty"`
}

// Config holds everything Run needs for a single watch.
type Config struct {
	Sources          []marketplace.Source
	Auth             marketplace.AuthConfig
	Query            marketplace.Query
	MSRPCents        int64
	BrandDiscountBps int64
	Log              marketplace.Logger // optional; nil = no logging

	// OnSourceDone is called after each source finishes, in query order.
	// Exactly one of res and err may be non-nil; both nil means the source
	// had no qualifying listing.
	OnSourceDone func(source string, res *marketplace.Result, err error)
}

// Run queries each source in turn, collecting failures per source, then
// decides on the combined results.
func Run(ctx context.Context, cfg Config) *Decision {
	log := cfg.Log
	if log == nil {
		log = marketplace.NopLogger{}
	}

	var (
		results []*marketplace.Result
		errs    []SourceError
	)
	for _, src := range cfg.Sources {
		res, err := query(ctx, src, cfg)
		switch {
		case err != nil:
			log.Warnf("%s failed for %s: %v", src.Name(), cfg.Query.Keywords(), err)
			errs = append(errs, SourceError{Source: src.Name(), Message: err.Error(), Err: err})
		case res == nil:
			log.Infof("%s: no qualifying listings for %s", src.Name(), cfg.Query.Keywords())
		default:
			log.Debugf("%s: lowest %d cents (%d samples)", src.Name(), res.LowestCents, res.SampleCount)
			results = append(results, res)
		}
		if cfg.OnSourceDone != nil {
			cfg.OnSourceDone(src.Name(), res, err)
		}
	}

	d := Decide(cfg.MSRPCents, cfg.BrandDiscountBps, results...)
	d.Errors = errs
	return d
}

func query(ctx context.Context, src marketplace.Source, cfg Config) (*marketplace.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := src.Authenticate(ctx, cfg.Auth); err != nil {
		return nil, err
	}
	return src.Lowest(ctx, cfg.Query)
}

// Decide keeps results with a positive price ordered cheapest first (ties
// keep their input order) and computes buy targets from the cheapest. Without any market price
// the targets are computed from zero.
func Decide(msrpCents, brandDiscountBps int64, results ...*marketplace.Result) *Decision {
	market := make([]marketplace.Result, 0, len(results))
	for _, r := range results {
		if r != nil && r.LowestCents > 0 {
			market = append(market, *r)
		}
	}

	sort.SliceStable(market, func(i, j int) bool { return market[i].LowestCents < market[j].LowestCents })

	d := &Decision{Market: market}
	var lowestCents int64
	if len(market) > 0 {
		lowest := market[0]
		d.Lowest = &lowest
		lowestCents = lowest.LowestCents
	}
	d.BuyTargets = pricing.ComputeBuyTargets(lowestCents, msrpCents, brandDiscountBps)
	return d
}

// Evaluation converts the decision into a history entry for q.
func (d *Decision) Evaluation(q marketplace.Query) storage.Evaluation {
	e := storage.Evaluation{
		Brand:            q.Brand,
		Reference:        q.Reference,
		BrandTargetCents: d.BrandTargetCents,
		RangeLowCents:    d.BuyRange[0],
		RangeHighCents:   d.BuyRange[1],
		SourceErrors:     len(d.Errors),
	}
	if d.Lowest != nil {
		e.LowestSource = d.Lowest.Source
		e.LowestCents = d.Lowest.LowestCents
	}
	return e
}

// Job is one watch in a batch evaluation.
type Job struct {
	Query            marketplace.Query
	MSRPCents        int64
	BrandDiscountBps int64
}

// BatchConfig evaluates several watches against the same sources.
type BatchConfig struct {
	Sources     []marketplace.Source
	Auth        marketplace.AuthConfig
	Jobs        []Job
	Concurrency int // defaults to 2 if <= 0
	Log         marketplace.Logger

	// OnJobDone is called from worker goroutines as each job finishes.
	OnJobDone func(index int, d *Decision)
}

// RunBatch evaluates every job using a worker pool. Each job still queries
// its sources sequentially. Decisions are returned in job order.
func RunBatch(ctx context.Context, cfg BatchConfig) []*Decision {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	out := make([]*Decision, len(cfg.Jobs))
	if len(cfg.Jobs) == 0 {
		return out
	}

	jobChan := make(chan int, len(cfg.Jobs))
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				j := cfg.Jobs[idx]
				d := Run(ctx, Config{
					Sources:          cfg.Sources,
					Auth:             cfg.Auth,
					Query:            j.Query,
					MSRPCents:        j.MSRPCents,
					BrandDiscountBps: j.BrandDiscountBps,
					Log:              cfg.Log,
				})
				out[idx] = d
				if cfg.OnJobDone != nil {
					cfg.OnJobDone(idx, d)
				}
			}
		}()
	}

	for i := range cfg.Jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()
	return out
}
