package forecast

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned by Model.Fit when the series is too short
// for the requested order after differencing.
var ErrInsufficientData = errors.New("insufficient data points for model order")

// FitOptions control coefficient constraints during estimation.
type FitOptions struct {
	EnforceStationarity  bool
	EnforceInvertibility bool
}

// Model is a seasonal autoregressive model fitted by conditional sum of
// squares. A Model is confined to the single fit-and-forecast call that
// created it; it is not safe to share across groups or goroutines.
type Model struct {
	Spec      ModelSpec
	Intercept float64
	Variance  float64
	AIC       float64
	LogLik    float64

	arCoeffs  []float64
	maCoeffs  []float64
	sarCoeffs []float64
	smaCoeffs []float64

	opts      FitOptions
	fitted    bool
	data      []float64
	diffData  []float64
	residuals []float64
}

// NewModel creates an unfitted model for the given specification.
func NewModel(spec ModelSpec, opts FitOptions) *Model {
	return &Model{
		Spec:      spec,
		opts:      opts,
		arCoeffs:  make([]float64, spec.Order.P),
		maCoeffs:  make([]float64, spec.Order.Q),
		sarCoeffs: make([]float64, spec.Seasonal.P),
		smaCoeffs: make([]float64, spec.Seasonal.Q),
	}
}

// Fit estimates the model coefficients on the given series.
func (m *Model) Fit(values []float64) error {
	m.data = dropNaN(values)

	work := m.data
	for i := 0; i < m.Spec.Order.D; i++ {
		work = diff(work)
		if len(work) == 0 {
			return ErrInsufficientData
		}
	}
	for i := 0; i < m.Spec.Seasonal.D; i++ {
		work = seasonalDiff(work, m.Spec.Seasonal.Period)
		if len(work) == 0 {
			return ErrInsufficientData
		}
	}

	numParams := m.Spec.Order.P + m.Spec.Order.Q + m.Spec.Seasonal.P + m.Spec.Seasonal.Q + 1
	if len(work) < numParams+2 {
		return ErrInsufficientData
	}

	m.diffData = work
	m.initCoeffs()
	m.optimizeCSS()
	m.calculateAIC()
	m.fitted = true
	return nil
}

// initCoeffs seeds coefficients from the sample autocorrelation.
func (m *Model) initCoeffs() {
	y := m.diffData

	total := 0.0
	for _, v := range y {
		total += v
	}
	m.Intercept = total / float64(len(y))

	maxLag := m.Spec.Order.P
	if sl := m.Spec.Seasonal.P * m.Spec.Seasonal.Period; sl > maxLag {
		maxLag = sl
	}
	acf := sampleACF(y, maxLag)

	for i := 0; i < m.Spec.Order.P && i+1 < len(acf); i++ {
		m.arCoeffs[i] = acf[i+1] * 0.5
	}
	for i := 0; i < m.Spec.Seasonal.P; i++ {
		idx := (i + 1) * m.Spec.Seasonal.Period
		if idx < len(acf) {
			m.sarCoeffs[i] = acf[idx] * 0.5
		}
	}
	for i := range m.maCoeffs {
		m.maCoeffs[i] = 0.1
	}
	for i := range m.smaCoeffs {
		m.smaCoeffs[i] = 0.1
	}
}

// optimizeCSS minimizes the conditional sum of squares with momentum gradient
// descent, bounded by a fixed iteration cap.
func (m *Model) optimizeCSS() {
	y := m.diffData
	n := len(y)
	p := m.Spec.Order.P
	q := m.Spec.Order.Q
	sp := m.Spec.Seasonal.P
	sq := m.Spec.Seasonal.Q
	period := m.Spec.Seasonal.Period

	const (
		maxIter   = 200
		tolerance = 1e-8
		momentum  = 0.9
		decay     = 0.99
	)
	learningRate := 0.005

	arMom := make([]float64, p)
	maMom := make([]float64, q)
	sarMom := make([]float64, sp)
	smaMom := make([]float64, sq)

	startIdx := p
	if q > startIdx {
		startIdx = q
	}
	if sl := sp * period; sl > startIdx {
		startIdx = sl
	}
	if sl := sq * period; sl > startIdx {
		startIdx = sl
	}
	if startIdx >= n-2 {
		startIdx = 0
	}

	bestSSE := math.Inf(1)
	bestAR := make([]float64, p)
	bestMA := make([]float64, q)
	bestSAR := make([]float64, sp)
	bestSMA := make([]float64, sq)
	noImprove := 0

	for iter := 0; iter < maxIter; iter++ {
		residuals := make([]float64, n)
		sse := 0.0
		for t := startIdx; t < n; t++ {
			residuals[t] = y[t] - m.predictAt(y, residuals, t)
			sse += residuals[t] * residuals[t]
		}

		if sse < bestSSE {
			if bestSSE-sse < tolerance && iter > 0 {
				bestSSE = sse
				copy(bestAR, m.arCoeffs)
				copy(bestMA, m.maCoeffs)
				copy(bestSAR, m.sarCoeffs)
				copy(bestSMA, m.smaCoeffs)
				break
			}
			bestSSE = sse
			copy(bestAR, m.arCoeffs)
			copy(bestMA, m.maCoeffs)
			copy(bestSAR, m.sarCoeffs)
			copy(bestSMA, m.smaCoeffs)
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove > 20 {
			break
		}

		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		sarGrad := make([]float64, sp)
		smaGrad := make([]float64, sq)

		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < sp; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < sq; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		nf := float64(n)
		for i := 0; i < p; i++ {
			arMom[i] = momentum*arMom[i] + learningRate*arGrad[i]/nf
			m.arCoeffs[i] = m.constrainAR(m.arCoeffs[i] - arMom[i])
		}
		for i := 0; i < sp; i++ {
			sarMom[i] = momentum*sarMom[i] + learningRate*sarGrad[i]/nf
			m.sarCoeffs[i] = m.constrainAR(m.sarCoeffs[i] - sarMom[i])
		}
		for i := 0; i < q; i++ {
			maMom[i] = momentum*maMom[i] + learningRate*maGrad[i]/nf
			m.maCoeffs[i] = m.constrainMA(m.maCoeffs[i] - maMom[i])
		}
		for i := 0; i < sq; i++ {
			smaMom[i] = momentum*smaMom[i] + learningRate*smaGrad[i]/nf
			m.smaCoeffs[i] = m.constrainMA(m.smaCoeffs[i] - smaMom[i])
		}

		learningRate *= decay
	}

	copy(m.arCoeffs, bestAR)
	copy(m.maCoeffs, bestMA)
	copy(m.sarCoeffs, bestSAR)
	copy(m.smaCoeffs, bestSMA)

	// Final residual pass over the whole series.
	m.residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		m.residuals[t] = y[t] - m.predictAt(y, m.residuals, t)
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	numParams := p + q + sp + sq + 1
	if count > numParams {
		m.Variance = sse / float64(count-numParams)
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}
}

// predictAt computes the one-point model prediction at index t of the
// differenced series given residuals so far.
func (m *Model) predictAt(y, residuals []float64, t int) float64 {
	period := m.Spec.Seasonal.Period
	pred := m.Intercept

	for i := 0; i < m.Spec.Order.P && t-i-1 >= 0; i++ {
		pred += m.arCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Spec.Seasonal.P; i++ {
		if lag := (i + 1) * period; t-lag >= 0 {
			pred += m.sarCoeffs[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Spec.Order.Q && t-i-1 >= 0; i++ {
		pred += m.maCoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Spec.Seasonal.Q; i++ {
		if lag := (i + 1) * period; t-lag >= 0 {
			pred += m.smaCoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

func (m *Model) constrainAR(v float64) float64 {
	if m.opts.EnforceStationarity {
		return clamp(v, -0.99, 0.99)
	}
	return clamp(v, -2, 2)
}

func (m *Model) constrainMA(v float64) float64 {
	if m.opts.EnforceInvertibility {
		return clamp(v, -0.99, 0.99)
	}
	return clamp(v, -2, 2)
}

// calculateAIC computes the Akaike information criterion from the Gaussian
// log-likelihood of the residuals.
func (m *Model) calculateAIC() {
	n := len(m.residuals)
	k := m.Spec.Order.P + m.Spec.Order.Q + m.Spec.Seasonal.P + m.Spec.Seasonal.Q + 1

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(-1)
	}
	m.AIC = -2*m.LogLik + 2*float64(k)
}

// ForecastOne returns the one-step-ahead forecast on the original scale.
func (m *Model) ForecastOne() (float64, error) {
	if !m.fitted {
		return 0, errors.New("model must be fitted before forecasting")
	}

	y := m.diffData
	n := len(y)
	t := n

	extY := make([]float64, n+1)
	copy(extY, y)
	extResiduals := make([]float64, n+1)
	copy(extResiduals, m.residuals)

	pred := m.predictAt(extY, extResiduals, t)
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return 0, errors.New("forecast diverged")
	}

	return m.integrateOne(pred), nil
}

// integrateOne undoes seasonal then non-seasonal differencing for a single
// forecast step.
func (m *Model) integrateOne(value float64) float64 {
	d := m.Spec.Order.D
	sd := m.Spec.Seasonal.D
	period := m.Spec.Seasonal.Period

	// Rebuild each non-seasonal differencing level; level 0 is the original
	// series and level d anchors the seasonal integration.
	levels := make([][]float64, d+1)
	levels[0] = m.data
	for i := 1; i <= d; i++ {
		levels[i] = diff(levels[i-1])
	}

	result := value
	nonSeasonal := levels[d]
	for i := 0; i < sd && period > 0; i++ {
		if idx := len(nonSeasonal) - period; idx >= 0 {
			result += nonSeasonal[idx]
		}
	}
	for k := d; k >= 1; k-- {
		prev := levels[k-1]
		if len(prev) > 0 {
			result += prev[len(prev)-1]
		}
	}
	return result
}

// Residuals returns a copy of the fit residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// sampleACF computes the sample autocorrelation up to maxLag; index 0 is 1.
func sampleACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if n == 0 || maxLag < 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	mu := mean(values)
	denom := 0.0
	for _, v := range values {
		denom += (v - mu) * (v - mu)
	}
	acf := make([]float64, maxLag+1)
	acf[0] = 1
	if denom == 0 {
		return acf
	}
	for lag := 1; lag <= maxLag; lag++ {
		num := 0.0
		for t := lag; t < n; t++ {
			num += (values[t] - mu) * (values[t-lag] - mu)
		}
		acf[lag] = num / denom
	}
	return acf
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
