package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noise returns a deterministic pseudo-random sequence in [-1, 1).
func noise(n int) []float64 {
	out := make([]float64, n)
	seed := uint64(42)
	for i := range out {
		seed = seed*6364136223846793005 + 1442695040888963407
		out[i] = float64(seed>>11)/float64(1<<53)*2 - 1
	}
	return out
}

// ar1Series generates a mean-reverting AR(1) process, which is stationary.
func ar1Series(n int, phi float64) []float64 {
	e := noise(n)
	out := make([]float64, n)
	out[0] = e[0]
	for i := 1; i < n; i++ {
		out[i] = phi*out[i-1] + e[i]
	}
	return out
}

// trendSeries generates a deterministic linear trend, which is not stationary
// in levels but is after one difference.
func trendSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*float64(i)
	}
	return out
}

func TestIsStationary(t *testing.T) {
	t.Run("mean-reverting series is stationary", func(t *testing.T) {
		assert.True(t, IsStationary(ar1Series(60, 0.2)))
	})

	t.Run("linear trend is not stationary", func(t *testing.T) {
		assert.False(t, IsStationary(trendSeries(60)))
	})

	t.Run("constant series is stationary", func(t *testing.T) {
		assert.True(t, IsStationary([]float64{5, 5, 5, 5, 5}))
	})

	t.Run("too short to test", func(t *testing.T) {
		assert.False(t, IsStationary([]float64{1, 7, 3}))
	})

	t.Run("NaN values are dropped", func(t *testing.T) {
		values := ar1Series(60, 0.2)
		values = append(values, math.NaN())
		assert.True(t, IsStationary(values))
	})
}

func TestDetermineDifferencing(t *testing.T) {
	t.Run("stationary series needs no differencing", func(t *testing.T) {
		assert.Equal(t, 0, DetermineDifferencing(ar1Series(60, 0.2), 2))
	})

	t.Run("linear trend needs one difference", func(t *testing.T) {
		assert.Equal(t, 1, DetermineDifferencing(trendSeries(60), 2))
	})

	t.Run("short degenerate series falls back to one", func(t *testing.T) {
		assert.Equal(t, 1, DetermineDifferencing([]float64{3, 9, 1, 7}, 2))
	})

	t.Run("result is always in range", func(t *testing.T) {
		inputs := [][]float64{
			ar1Series(60, 0.2),
			trendSeries(60),
			{1, 2},
			{0, 0, 0},
			noise(25),
		}
		for _, values := range inputs {
			d := DetermineDifferencing(values, 2)
			assert.GreaterOrEqual(t, d, 0)
			assert.LessOrEqual(t, d, 2)
		}
	})

	t.Run("zero maxD defaults to two", func(t *testing.T) {
		d := DetermineDifferencing(trendSeries(60), 0)
		assert.Equal(t, 1, d)
	})
}

func TestADF(t *testing.T) {
	t.Run("nil for very short series", func(t *testing.T) {
		assert.Nil(t, ADF([]float64{1, 5, 2, 8, 3}))
	})

	t.Run("stationary verdict matches p-value threshold", func(t *testing.T) {
		res := ADF(ar1Series(80, 0.3))
		require.NotNil(t, res)
		assert.Equal(t, res.PValue < 0.05, res.Stationary)
	})
}

func TestDiffHelpers(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, diff([]float64{0, 1, 3, 6}))
	assert.Nil(t, diff([]float64{5}))

	assert.Equal(t, []float64{3, 3}, seasonalDiff([]float64{1, 2, 4, 5}, 2))
	assert.Nil(t, seasonalDiff([]float64{1, 2}, 12))
}

func TestMeanVariance(t *testing.T) {
	assert.Equal(t, 2.0, mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, mean(nil))
	assert.InDelta(t, 1.0, variance([]float64{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, variance([]float64{7}))
}
