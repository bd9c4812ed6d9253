package forecast

import (
	"context"
	"errors"
	"log/slog"
	"math"
)

// ErrNoSelection is returned when the input series is too short for any model
// selection; the caller must fall back.
var ErrNoSelection = errors.New("series too short for model selection")

// SelectionConfig bounds the model selection grid.
type SelectionConfig struct {
	MaxP       int
	MaxQ       int
	MaxD       int
	Seasonal   SeasonalOrder
	FitOptions FitOptions
}

// DefaultSelectionConfig returns the standard bounded grid: p, q up to 2,
// differencing up to 2, seasonal order fixed at (0,1,1,12).
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		MaxP:     2,
		MaxQ:     2,
		MaxD:     2,
		Seasonal: DefaultSeasonalOrder(),
	}
}

// Selection is the outcome of a grid search: the best spec found, its fitted
// model (nil when every candidate failed) and its information criterion
// (+Inf when every candidate failed).
type Selection struct {
	Spec  ModelSpec
	Model *Model
	AIC   float64
}

// Selector searches a bounded (p, q) grid for the seasonal autoregressive
// model with the lowest AIC. It is a general-purpose capability; the default
// per-group pipeline fits a single fixed order instead (see Forecaster).
type Selector struct {
	cfg    SelectionConfig
	logger *slog.Logger
}

// NewSelector creates a selector with the given grid bounds.
func NewSelector(cfg SelectionConfig, logger *slog.Logger) *Selector {
	if cfg.MaxP <= 0 {
		cfg.MaxP = 2
	}
	if cfg.MaxQ <= 0 {
		cfg.MaxQ = 2
	}
	if cfg.MaxD <= 0 {
		cfg.MaxD = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "selector")),
	}
}

// Select fits one candidate per (p, q) pair with d fixed by the stationarity
// analysis and keeps the candidate with the lowest AIC; ties keep the first
// encountered. Candidates that fail to fit are logged, scored +Inf and
// skipped. When every candidate fails the designated default order (1,1,1)
// is returned with no fitted model. Series shorter than 2 points return
// ErrNoSelection.
func (s *Selector) Select(ctx context.Context, values []float64) (Selection, error) {
	clean := dropNaN(values)
	if len(clean) < 2 {
		return Selection{}, ErrNoSelection
	}

	d := DetermineDifferencing(clean, s.cfg.MaxD)
	s.logger.DebugContext(ctx, "starting model grid search",
		slog.Int("points", len(clean)),
		slog.Int("d", d),
		slog.Int("max_p", s.cfg.MaxP),
		slog.Int("max_q", s.cfg.MaxQ),
	)

	best := Selection{AIC: math.Inf(1)}
	for p := 0; p <= s.cfg.MaxP; p++ {
		for q := 0; q <= s.cfg.MaxQ; q++ {
			spec := ModelSpec{
				Order:    Order{P: p, D: d, Q: q},
				Seasonal: s.cfg.Seasonal,
			}

			model := NewModel(spec, s.cfg.FitOptions)
			if err := model.Fit(clean); err != nil {
				s.logger.WarnContext(ctx, "candidate failed to fit",
					slog.String("spec", spec.String()),
					slog.String("error", err.Error()),
				)
				continue
			}

			if math.IsNaN(model.AIC) {
				s.logger.WarnContext(ctx, "candidate produced invalid criterion",
					slog.String("spec", spec.String()),
				)
				continue
			}

			if model.AIC < best.AIC {
				best = Selection{Spec: spec, Model: model, AIC: model.AIC}
			}
		}
	}

	if best.Model == nil {
		// Every candidate failed: return the designated default with no model.
		best.Spec = ModelSpec{Order: DefaultOrder(), Seasonal: s.cfg.Seasonal}
		best.AIC = math.Inf(1)
		s.logger.WarnContext(ctx, "all grid candidates failed, returning default order",
			slog.String("spec", best.Spec.String()),
		)
		return best, nil
	}

	s.logger.DebugContext(ctx, "model grid search finished",
		slog.String("spec", best.Spec.String()),
		slog.Float64("aic", best.AIC),
	)
	return best, nil
}
