package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher reads the source rows.
type Fetcher interface {
	Fetch(ctx context.Context, query string, limit int) ([]Row, error)
}

// Loader writes the destination table.
type Loader interface {
	Truncate(ctx context.Context, table string) error
	Insert(ctx context.Context, rows []AugmentedRow, table string) (int64, error)
	LoadAtomic(ctx context.Context, rows []AugmentedRow, table string) (int64, error)
}

// Options controls a single run.
type Options struct {
	Query  string
	Limit  int
	Table  string
	Atomic bool
}

// Summary reports what a run did.
type Summary struct {
	RunID    string
	Fetched  int
	Loaded   int64
	Atomic   bool
	Duration time.Duration
}

// Runner sequences fetch, geocode and load once.
type Runner struct {
	source      Fetcher
	transformer *Transformer
	sink        Loader
	opts        Options
}

// NewRunner creates a Runner.
func NewRunner(source Fetcher, transformer *Transformer, sink Loader, opts Options) *Runner {
	return &Runner{source: source, transformer: transformer, sink: sink, opts: opts}
}

// Run performs the whole job and stops at the first error.
//
// Without Atomic the destination is truncated before geocoding starts, so a
// geocoding or insert failure leaves it empty. With Atomic every row is
// geocoded first and the truncate and insert share one transaction.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("component", "pipeline.runner"),
		zap.String("table", r.opts.Table),
		zap.Bool("atomic", r.opts.Atomic),
	)

	rows, err := r.source.Fetch(ctx, r.opts.Query, r.opts.Limit)
	if err != nil {
		return nil, err
	}

	var loaded int64
	if r.opts.Atomic {
		augmented, err := r.transformer.Transform(ctx, rows)
		if err != nil {
			return nil, err
		}
		loaded, err = r.sink.LoadAtomic(ctx, augmented, r.opts.Table)
		if err != nil {
			return nil, err
		}
	} else {
		if err := r.sink.Truncate(ctx, r.opts.Table); err != nil {
			return nil, err
		}
		augmented, err := r.transformer.Transform(ctx, rows)
		if err != nil {
			log.Warn("destination left empty after truncate", zap.Error(err))
			return nil, err
		}
		loaded, err = r.sink.Insert(ctx, augmented, r.opts.Table)
		if err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		RunID:    runID,
		Fetched:  len(rows),
		Loaded:   loaded,
		Atomic:   r.opts.Atomic,
		Duration: time.Since(start),
	}
	log.Info("run complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int64("loaded", summary.Loaded),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
