package forecast

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// UnknownDimension fills group key positions that the source data did not
// provide a value for.
const UnknownDimension = "unknown"

// FallbackModel is the model descriptor reported when fitting failed and the
// forecast fell back to the historical mean.
const FallbackModel = "fallback"

// DefaultSeasonalPeriod is the seasonal cycle length for monthly data.
const DefaultSeasonalPeriod = 12

// SalesRecord is a single raw transaction row, already coerced by the loader.
// Month is normalized to the first day of its calendar month.
type SalesRecord struct {
	Key    GroupKey  `json:"key"`
	Month  time.Time `json:"month"`
	Amount float64   `json:"amount"`
}

// IsValid checks if the record carries usable data.
func (r SalesRecord) IsValid() bool {
	return !r.Month.IsZero() && r.Amount >= 0 && !math.IsNaN(r.Amount) && !math.IsInf(r.Amount, 0)
}

// GroupKey is an ordered tuple of dimension values (e.g. branch, manager).
type GroupKey []string

// String joins the key components for logging and map indexing.
func (k GroupKey) String() string {
	return strings.Join(k, " / ")
}

// Dimension returns the i-th component, or UnknownDimension when the key has
// fewer components than the configured grouping dimensions.
func (k GroupKey) Dimension(i int) string {
	if i < 0 || i >= len(k) {
		return UnknownDimension
	}
	if k[i] == "" {
		return UnknownDimension
	}
	return k[i]
}

// SeriesPoint is one month of summed sales for a group.
type SeriesPoint struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// MonthlySeries is an ordered, sparse monthly series: strictly ascending by
// month, months without activity absent.
type MonthlySeries []SeriesPoint

// Values returns the amounts in month order.
func (s MonthlySeries) Values() []float64 {
	vals := make([]float64, len(s))
	for i, p := range s {
		vals[i] = p.Value
	}
	return vals
}

// Sum returns the total over all points.
func (s MonthlySeries) Sum() float64 {
	total := 0.0
	for _, p := range s {
		total += p.Value
	}
	return total
}

// Last returns the final point of the series. Only valid for non-empty series.
func (s MonthlySeries) Last() SeriesPoint {
	return s[len(s)-1]
}

// Order is the non-seasonal (p, d, q) part of a model specification.
type Order struct {
	P int `yaml:"p" json:"p"`
	D int `yaml:"d" json:"d"`
	Q int `yaml:"q" json:"q"`
}

// SeasonalOrder is the seasonal (P, D, Q, period) part of a model specification.
type SeasonalOrder struct {
	P      int `yaml:"p" json:"p"`
	D      int `yaml:"d" json:"d"`
	Q      int `yaml:"q" json:"q"`
	Period int `yaml:"period" json:"period"`
}

// ModelSpec pairs an order with a seasonal order. The zero seasonal order
// (period 0) means a non-seasonal model.
type ModelSpec struct {
	Order    Order         `json:"order"`
	Seasonal SeasonalOrder `json:"seasonal"`
}

// DefaultOrder is the fixed order used for per-group fitting.
func DefaultOrder() Order {
	return Order{P: 1, D: 1, Q: 1}
}

// DefaultSeasonalOrder is the fixed seasonal order used across the engine.
func DefaultSeasonalOrder() SeasonalOrder {
	return SeasonalOrder{P: 0, D: 1, Q: 1, Period: DefaultSeasonalPeriod}
}

// String renders the spec in the conventional (p,d,q)(P,D,Q,s) notation.
func (m ModelSpec) String() string {
	if m.Seasonal.Period <= 1 {
		return formatOrder(m.Order.P, m.Order.D, m.Order.Q)
	}
	return formatOrder(m.Order.P, m.Order.D, m.Order.Q) + "x" +
		formatSeasonal(m.Seasonal.P, m.Seasonal.D, m.Seasonal.Q, m.Seasonal.Period)
}

func formatOrder(p, d, q int) string {
	return fmt.Sprintf("(%d,%d,%d)", p, d, q)
}

func formatSeasonal(p, d, q, period int) string {
	return fmt.Sprintf("(%d,%d,%d,%d)", p, d, q, period)
}

// ForecastRecord is the per-group output of the engine. Produced at most once
// per group key and never mutated afterwards.
type ForecastRecord struct {
	Key              GroupKey      `json:"key"`
	Series           MonthlySeries `json:"series"`
	FactToDate       float64       `json:"fact_to_date"`
	FactCurrentMonth float64       `json:"fact_current_month"`
	Forecast         float64       `json:"forecast"`
	Model            string        `json:"model"`
	AIC              float64       `json:"aic"`
	ForecastMonth    time.Time     `json:"forecast_month"`
}

// UsedFallback reports whether the forecast came from the mean fallback
// rather than a fitted model.
func (r ForecastRecord) UsedFallback() bool {
	return r.Model == FallbackModel
}

// Dimensions maps the group key positionally onto n configured dimensions,
// padding shortfalls with UnknownDimension.
func (r ForecastRecord) Dimensions(n int) []string {
	dims := make([]string, n)
	for i := range dims {
		dims[i] = r.Key.Dimension(i)
	}
	return dims
}
