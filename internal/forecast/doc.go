// Package forecast implements the per-group monthly sales forecasting engine.
//
// Raw transaction rows are collapsed into one monthly series per group
// (branch, manager, ...), a seasonal autoregressive model is fitted to the
// completed months, and a one-step-ahead forecast for the in-progress
// calendar month is produced per group. Groups are independent and are
// processed on a bounded worker pool; a failing group is logged and skipped,
// never aborting the batch.
//
// # Core Components
//
//   - types.go: SalesRecord, MonthlySeries, ModelSpec, ForecastRecord
//   - aggregate.go: monthly aggregation of raw rows per group
//   - stationarity.go: augmented Dickey-Fuller test and differencing order
//   - sarima.go: seasonal autoregressive model (CSS estimation, AIC)
//   - selector.go: bounded (p, q) grid search by information criterion
//   - forecaster.go: fixed-order per-group fit, mean fallback, clipping
//   - runner.go: fan-out across groups, result collection and counts
//
// # Usage Example
//
//	cfg := forecast.DefaultConfig()
//	f := forecast.NewForecaster(cfg, logger, nil)
//	runner := forecast.NewRunner(f, cfg, logger)
//	result, err := runner.Run(ctx, rows)
//
// The per-group pipeline always fits the single configured order. Callers
// that want full model selection over the (p, q) grid use Selector, which is
// deliberately kept separate for performance.
package forecast
