package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// ErrInsufficientHistory is returned when a group has fewer usable points
// than the configured minimum.
var ErrInsufficientHistory = errors.New("insufficient history points")

// Config is the read-only engine configuration shared by all groups.
type Config struct {
	// GroupColumns are the ordered grouping dimensions reports are keyed by.
	GroupColumns []string
	// MinHistoryPoints is the minimum number of monthly points a group needs
	// to be forecast at all.
	MinHistoryPoints int
	// Order is the fixed model order used for per-group fitting.
	Order Order
	// Seasonal toggles the seasonal component of the per-group model.
	Seasonal bool
	// SeasonalOrder is the seasonal component applied when Seasonal is set.
	SeasonalOrder SeasonalOrder
	// EnforceStationarity and EnforceInvertibility constrain coefficient
	// estimation; both default off.
	EnforceStationarity  bool
	EnforceInvertibility bool
	// MaxConcurrency bounds the runner's worker pool.
	MaxConcurrency int
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		GroupColumns:     []string{"branch", "manager"},
		MinHistoryPoints: 1,
		Order:            DefaultOrder(),
		Seasonal:         true,
		SeasonalOrder:    DefaultSeasonalOrder(),
		MaxConcurrency:   4,
	}
}

// Spec returns the ModelSpec the per-group pipeline fits with.
func (c Config) Spec() ModelSpec {
	spec := ModelSpec{Order: c.Order}
	if c.Seasonal {
		spec.Seasonal = c.SeasonalOrder
	}
	return spec
}

func (c Config) fitOptions() FitOptions {
	return FitOptions{
		EnforceStationarity:  c.EnforceStationarity,
		EnforceInvertibility: c.EnforceInvertibility,
	}
}

// Forecaster produces one ForecastRecord per group, or none. Per-group
// fitting always uses the single configured order; grid search over every
// group would be prohibitively slow (callers that want full selection use
// Selector directly).
type Forecaster struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewForecaster creates a forecaster for the given configuration. now may be
// nil, in which case time.Now is used; tests inject a fixed clock.
func NewForecaster(cfg Config, logger *slog.Logger, now func() time.Time) *Forecaster {
	if cfg.MinHistoryPoints < 1 {
		cfg.MinHistoryPoints = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Forecaster{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "forecaster")),
		now:    now,
	}
}

// Forecast aggregates one group's rows and fits a one-step-ahead forecast.
// Any failure is returned as an error for the caller to absorb; a non-nil
// record is always complete and final.
func (f *Forecaster) Forecast(ctx context.Context, key GroupKey, rows []SalesRecord) (*ForecastRecord, error) {
	series, err := AggregateMonthly(rows)
	if err != nil {
		return nil, fmt.Errorf("aggregate group %q: %w", key.String(), err)
	}
	if len(series) < f.cfg.MinHistoryPoints {
		return nil, fmt.Errorf("group %q has %d points, need %d: %w",
			key.String(), len(series), f.cfg.MinHistoryPoints, ErrInsufficientHistory)
	}

	// The in-progress calendar month is excluded from fitting but still
	// reported as fact.
	currentMonth := MonthStart(f.now())
	factCurrent := 0.0
	fitSeries := series
	if SameMonth(series.Last().Month, currentMonth) {
		factCurrent = series.Last().Value
		fitSeries = series[:len(series)-1]
	}
	if len(fitSeries) < 1 {
		return nil, fmt.Errorf("group %q has no complete months to fit: %w",
			key.String(), ErrInsufficientHistory)
	}

	record := &ForecastRecord{
		Key:              key,
		Series:           series,
		FactToDate:       fitSeries.Sum(),
		FactCurrentMonth: factCurrent,
		ForecastMonth:    currentMonth,
	}

	spec := f.cfg.Spec()
	forecast, err := f.fitAndForecast(spec, fitSeries.Values(), record)
	if err != nil {
		// Fallback: arithmetic mean of the full original series.
		f.logger.DebugContext(ctx, "fit failed, using mean fallback",
			slog.String("group", key.String()),
			slog.String("spec", spec.String()),
			slog.String("error", err.Error()),
		)
		forecast = mean(series.Values())
		record.Model = FallbackModel
		record.AIC = math.Inf(1)
	}

	// Sales cannot be negative.
	if forecast < 0 || math.IsNaN(forecast) {
		forecast = 0
	}
	record.Forecast = forecast

	return record, nil
}

// fitAndForecast fits the fixed-order model and produces the one-step-ahead
// forecast. The fitted model is confined to this call.
func (f *Forecaster) fitAndForecast(spec ModelSpec, values []float64, record *ForecastRecord) (float64, error) {
	model := NewModel(spec, f.cfg.fitOptions())
	if err := model.Fit(values); err != nil {
		return 0, fmt.Errorf("fit %s: %w", spec.String(), err)
	}
	forecast, err := model.ForecastOne()
	if err != nil {
		return 0, fmt.Errorf("forecast %s: %w", spec.String(), err)
	}
	record.Model = spec.String()
	record.AIC = model.AIC
	return forecast, nil
}
