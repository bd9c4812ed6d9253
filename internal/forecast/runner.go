package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunResult is the outcome of one full forecast run.
type RunResult struct {
	Records   []ForecastRecord `json:"records"`
	Attempted int              `json:"attempted"`
	Produced  int              `json:"produced"`
	Duration  time.Duration    `json:"duration"`
}

// Runner fans the forecaster out across all distinct group keys. Groups are
// independent: each task reads only its own rows and the shared read-only
// configuration, so a failing group never corrupts or delays the others.
type Runner struct {
	forecaster *Forecaster
	cfg        Config
	logger     *slog.Logger
}

// NewRunner creates a runner around the given forecaster.
func NewRunner(forecaster *Forecaster, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		forecaster: forecaster,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "runner")),
	}
}

// Run partitions the rows by group key and forecasts each group on a bounded
// worker pool. Group-level failures are logged with the offending key and
// skipped; already-completed records survive an interrupted run. Records are
// sorted by group key for reproducible reports.
func (r *Runner) Run(ctx context.Context, rows []SalesRecord) (*RunResult, error) {
	start := time.Now()

	groups := groupByKey(rows)
	r.logger.InfoContext(ctx, "starting forecast run",
		slog.Int("rows", len(rows)),
		slog.Int("groups", len(groups)),
		slog.Int("workers", r.workers()),
	)

	var (
		mu      sync.Mutex
		records []ForecastRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for key, groupRows := range groups {
		key, groupRows := key, groupRows
		g.Go(func() error {
			record := r.forecastGroup(gctx, key, groupRows)
			if record == nil {
				return nil
			}
			mu.Lock()
			records = append(records, *record)
			mu.Unlock()
			return nil
		})
	}

	// Tasks absorb their own failures; the only error surfaced here is
	// context cancellation.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forecast run: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Key.String() < records[j].Key.String()
	})

	result := &RunResult{
		Records:   records,
		Attempted: len(groups),
		Produced:  len(records),
		Duration:  time.Since(start),
	}

	r.logger.InfoContext(ctx, "forecast run completed",
		slog.Int("attempted", result.Attempted),
		slog.Int("produced", result.Produced),
		slog.Int("skipped", result.Attempted-result.Produced),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// forecastGroup runs a single group, converting every failure, including
// panics from the numerical routines, into a skip.
func (r *Runner) forecastGroup(ctx context.Context, key string, rows []SalesRecord) (record *ForecastRecord) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "group forecast panicked, skipping group",
				slog.String("group", key),
				slog.Any("panic", rec),
			)
			record = nil
		}
	}()

	groupKey := rows[0].Key
	rec, err := r.forecaster.Forecast(ctx, groupKey, rows)
	if err != nil {
		r.logger.WarnContext(ctx, "skipping group",
			slog.String("group", key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return rec
}

func (r *Runner) workers() int {
	if r.cfg.MaxConcurrency > 0 {
		return r.cfg.MaxConcurrency
	}
	return 4
}

// groupByKey partitions rows by their group key string.
func groupByKey(rows []SalesRecord) map[string][]SalesRecord {
	groups := make(map[string][]SalesRecord)
	for _, row := range rows {
		groups[row.Key.String()] = append(groups[row.Key.String()], row)
	}
	return groups
}
