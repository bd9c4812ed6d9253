package forecast

import (
	"errors"
	"sort"
	"time"
)

// ErrEmptySeries is returned when a group has no usable monthly data: either
// no records at all or a series whose amounts sum to zero.
var ErrEmptySeries = errors.New("empty or zero-sum series")

// AggregateMonthly collapses raw sales rows for one group into a monthly
// series: amounts summed per calendar month, sorted ascending. Months with no
// activity are not synthesized, so the series may have gaps.
func AggregateMonthly(rows []SalesRecord) (MonthlySeries, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySeries
	}

	sums := make(map[time.Time]float64)
	for _, r := range rows {
		if !r.IsValid() {
			continue
		}
		sums[MonthStart(r.Month)] += r.Amount
	}

	series := make(MonthlySeries, 0, len(sums))
	total := 0.0
	for month, value := range sums {
		series = append(series, SeriesPoint{Month: month, Value: value})
		total += value
	}
	if len(series) == 0 || total == 0 {
		return nil, ErrEmptySeries
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Month.Before(series[j].Month)
	})

	return series, nil
}

// MonthStart snaps a date to the first day of its calendar month, UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
