package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins the forecaster to mid-June 2025 so the current-month rule
// is deterministic.
func fixedClock() time.Time {
	return time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)
}

// monthlyRows builds one record per month for the given values, ending at the
// month containing end.
func monthlyRows(key GroupKey, end time.Time, values []float64) []SalesRecord {
	rows := make([]SalesRecord, len(values))
	start := MonthStart(end).AddDate(0, -(len(values) - 1), 0)
	for i, v := range values {
		rows[i] = SalesRecord{
			Key:    key,
			Month:  start.AddDate(0, i, 0).AddDate(0, 0, 4),
			Amount: v,
		}
	}
	return rows
}

func TestForecasterForecast(t *testing.T) {
	ctx := context.Background()
	key := GroupKey{"North", "Ivanov"}

	t.Run("short closed history falls back to the mean", func(t *testing.T) {
		f := NewForecaster(DefaultConfig(), nil, fixedClock)
		// Five complete months ending in May 2025; June is absent.
		values := []float64{100, 200, 300, 400, 500}
		rows := monthlyRows(key, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), values)

		record, err := f.Forecast(ctx, key, rows)
		require.NoError(t, err)

		assert.Equal(t, FallbackModel, record.Model)
		assert.True(t, record.UsedFallback())
		assert.True(t, math.IsInf(record.AIC, 1))
		assert.InDelta(t, 300.0, record.Forecast, 1e-9) // mean of the full series
		assert.InDelta(t, 1500.0, record.FactToDate, 1e-9)
		assert.Zero(t, record.FactCurrentMonth)
		assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), record.ForecastMonth)
	})

	t.Run("current month is excluded from fitting but reported as fact", func(t *testing.T) {
		f := NewForecaster(DefaultConfig(), nil, fixedClock)
		// January through June 2025; June is the in-progress month.
		values := []float64{100, 200, 300, 400, 500, 42}
		rows := monthlyRows(key, fixedClock(), values)

		record, err := f.Forecast(ctx, key, rows)
		require.NoError(t, err)

		assert.InDelta(t, 42.0, record.FactCurrentMonth, 1e-9)
		assert.InDelta(t, 1500.0, record.FactToDate, 1e-9)
		// The fallback mean still covers the full series, current month included.
		assert.Equal(t, FallbackModel, record.Model)
		assert.InDelta(t, 1542.0/6, record.Forecast, 1e-9)
		// Fact fields partition the aggregated total.
		assert.InDelta(t, record.Series.Sum(), record.FactToDate+record.FactCurrentMonth, 1e-9)
	})

	t.Run("only the current month is not enough", func(t *testing.T) {
		f := NewForecaster(DefaultConfig(), nil, fixedClock)
		rows := monthlyRows(key, fixedClock(), []float64{900})

		_, err := f.Forecast(ctx, key, rows)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})

	t.Run("long history fits the configured order", func(t *testing.T) {
		cfg := DefaultConfig()
		f := NewForecaster(cfg, nil, fixedClock)
		// Forty complete months ending May 2025.
		rows := monthlyRows(key, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), monthlySales(40))

		record, err := f.Forecast(ctx, key, rows)
		require.NoError(t, err)

		assert.Equal(t, cfg.Spec().String(), record.Model)
		assert.False(t, record.UsedFallback())
		assert.False(t, math.IsInf(record.AIC, 0))
		assert.False(t, math.IsNaN(record.AIC))
		assert.GreaterOrEqual(t, record.Forecast, 0.0)
	})

	t.Run("no usable rows", func(t *testing.T) {
		f := NewForecaster(DefaultConfig(), nil, fixedClock)

		_, err := f.Forecast(ctx, key, nil)
		assert.ErrorIs(t, err, ErrEmptySeries)

		_, err = f.Forecast(ctx, key, []SalesRecord{record(key, day(2025, time.March, 3), 0)})
		assert.ErrorIs(t, err, ErrEmptySeries)
	})

	t.Run("minimum history gate", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinHistoryPoints = 6
		f := NewForecaster(cfg, nil, fixedClock)
		rows := monthlyRows(key, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), []float64{100, 200, 300})

		_, err := f.Forecast(ctx, key, rows)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})

	t.Run("negative forecasts are clipped to zero", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Seasonal = false
		f := NewForecaster(cfg, nil, fixedClock)
		// A steep decline ending near zero pushes the one-step forecast
		// below zero before clipping.
		values := make([]float64, 24)
		for i := range values {
			values[i] = 2300 - 100*float64(i)
		}
		rows := monthlyRows(key, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), values)

		record, err := f.Forecast(ctx, key, rows)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, record.Forecast, 0.0)
	})
}

func TestConfigSpec(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ModelSpec{Order: DefaultOrder(), Seasonal: DefaultSeasonalOrder()}, cfg.Spec())

	cfg.Seasonal = false
	assert.Equal(t, ModelSpec{Order: DefaultOrder()}, cfg.Spec())
}
