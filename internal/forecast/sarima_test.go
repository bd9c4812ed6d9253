package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthlySales builds a synthetic sales level series with trend, a yearly
// cycle and deterministic noise.
func monthlySales(n int) []float64 {
	e := noise(n)
	out := make([]float64, n)
	for i := range out {
		seasonal := 50 * math.Sin(2*math.Pi*float64(i%12)/12)
		out[i] = 1000 + 8*float64(i) + seasonal + 20*e[i]
	}
	return out
}

func TestModelFit(t *testing.T) {
	t.Run("non-seasonal fit succeeds on moderate history", func(t *testing.T) {
		spec := ModelSpec{Order: Order{P: 1, D: 1, Q: 1}}
		model := NewModel(spec, FitOptions{})

		require.NoError(t, model.Fit(monthlySales(30)))

		assert.False(t, math.IsNaN(model.AIC))
		assert.False(t, math.IsInf(model.AIC, 0))
		assert.Greater(t, model.Variance, 0.0)
		assert.Len(t, model.Residuals(), 29) // one point lost to differencing
	})

	t.Run("seasonal fit succeeds on three years of history", func(t *testing.T) {
		spec := ModelSpec{Order: Order{P: 1, D: 1, Q: 1}, Seasonal: SeasonalOrder{P: 0, D: 1, Q: 1, Period: 12}}
		model := NewModel(spec, FitOptions{})

		require.NoError(t, model.Fit(monthlySales(40)))

		forecast, err := model.ForecastOne()
		require.NoError(t, err)
		assert.False(t, math.IsNaN(forecast))
		assert.False(t, math.IsInf(forecast, 0))
	})

	t.Run("seasonal fit fails on short history", func(t *testing.T) {
		spec := ModelSpec{Order: DefaultOrder(), Seasonal: DefaultSeasonalOrder()}
		model := NewModel(spec, FitOptions{})

		err := model.Fit([]float64{100, 120, 110, 130, 125, 140})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("single point fails", func(t *testing.T) {
		spec := ModelSpec{Order: DefaultOrder(), Seasonal: DefaultSeasonalOrder()}
		model := NewModel(spec, FitOptions{})

		assert.ErrorIs(t, model.Fit([]float64{500}), ErrInsufficientData)
	})

	t.Run("forecast before fit is an error", func(t *testing.T) {
		model := NewModel(ModelSpec{Order: DefaultOrder()}, FitOptions{})
		_, err := model.ForecastOne()
		assert.Error(t, err)
	})

	t.Run("enforcement flags bound coefficients", func(t *testing.T) {
		spec := ModelSpec{Order: Order{P: 1, D: 0, Q: 1}}
		model := NewModel(spec, FitOptions{EnforceStationarity: true, EnforceInvertibility: true})

		require.NoError(t, model.Fit(monthlySales(36)))
		for _, c := range model.arCoeffs {
			assert.LessOrEqual(t, math.Abs(c), 0.99)
		}
		for _, c := range model.maCoeffs {
			assert.LessOrEqual(t, math.Abs(c), 0.99)
		}
	})
}

func TestModelForecastTracksLevel(t *testing.T) {
	// A one-step forecast of a smooth trending series should stay in the
	// neighborhood of the recent level rather than collapse to zero.
	values := monthlySales(48)
	spec := ModelSpec{Order: Order{P: 1, D: 1, Q: 1}}
	model := NewModel(spec, FitOptions{})
	require.NoError(t, model.Fit(values))

	forecast, err := model.ForecastOne()
	require.NoError(t, err)

	last := values[len(values)-1]
	assert.InDelta(t, last, forecast, 0.5*last)
}

func TestSampleACF(t *testing.T) {
	acf := sampleACF([]float64{1, 2, 3, 4, 5, 6}, 2)
	require.Len(t, acf, 3)
	assert.Equal(t, 1.0, acf[0])
	// A monotone series is strongly autocorrelated at lag 1.
	assert.Greater(t, acf[1], 0.0)

	assert.Equal(t, []float64{1, 0, 0}, sampleACF([]float64{4, 4, 4, 4}, 2))
}
