package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func record(key GroupKey, t time.Time, amount float64) SalesRecord {
	return SalesRecord{Key: key, Month: t, Amount: amount}
}

func TestAggregateMonthly(t *testing.T) {
	key := GroupKey{"North", "Ivanov"}

	t.Run("sums per month and sorts ascending", func(t *testing.T) {
		rows := []SalesRecord{
			record(key, day(2025, time.March, 12), 50),
			record(key, day(2025, time.January, 3), 100),
			record(key, day(2025, time.January, 28), 150),
			record(key, day(2025, time.March, 1), 25),
		}

		series, err := AggregateMonthly(rows)
		require.NoError(t, err)
		require.Len(t, series, 2)

		assert.Equal(t, day(2025, time.January, 1), series[0].Month)
		assert.Equal(t, 250.0, series[0].Value)
		assert.Equal(t, day(2025, time.March, 1), series[1].Month)
		assert.Equal(t, 75.0, series[1].Value)
	})

	t.Run("sparse series keeps gaps", func(t *testing.T) {
		rows := []SalesRecord{
			record(key, day(2024, time.December, 1), 10),
			record(key, day(2025, time.June, 1), 20),
		}

		series, err := AggregateMonthly(rows)
		require.NoError(t, err)
		// No zero-filled months between December and June.
		require.Len(t, series, 2)
	})

	t.Run("no records", func(t *testing.T) {
		_, err := AggregateMonthly(nil)
		assert.ErrorIs(t, err, ErrEmptySeries)
	})

	t.Run("zero-sum series", func(t *testing.T) {
		rows := []SalesRecord{
			record(key, day(2025, time.January, 1), 0),
			record(key, day(2025, time.February, 1), 0),
		}
		_, err := AggregateMonthly(rows)
		assert.ErrorIs(t, err, ErrEmptySeries)
	})

	t.Run("invalid rows are dropped", func(t *testing.T) {
		rows := []SalesRecord{
			record(key, time.Time{}, 100),
			record(key, day(2025, time.May, 5), 40),
		}

		series, err := AggregateMonthly(rows)
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, 40.0, series[0].Value)
	})
}

func TestMonthHelpers(t *testing.T) {
	assert.Equal(t, day(2025, time.July, 1), MonthStart(day(2025, time.July, 23)))
	assert.True(t, SameMonth(day(2025, time.July, 1), day(2025, time.July, 31)))
	assert.False(t, SameMonth(day(2025, time.July, 1), day(2024, time.July, 1)))
	assert.False(t, SameMonth(day(2025, time.July, 1), day(2025, time.August, 1)))
}

func TestMonthlySeries(t *testing.T) {
	series := MonthlySeries{
		{Month: day(2025, time.January, 1), Value: 10},
		{Month: day(2025, time.February, 1), Value: 30},
	}

	assert.Equal(t, []float64{10, 30}, series.Values())
	assert.Equal(t, 40.0, series.Sum())
	assert.Equal(t, day(2025, time.February, 1), series.Last().Month)
}

func TestGroupKey(t *testing.T) {
	key := GroupKey{"North", "Ivanov"}

	assert.Equal(t, "North / Ivanov", key.String())
	assert.Equal(t, "North", key.Dimension(0))
	assert.Equal(t, "Ivanov", key.Dimension(1))
	assert.Equal(t, UnknownDimension, key.Dimension(2))
	assert.Equal(t, UnknownDimension, GroupKey{""}.Dimension(0))
}
