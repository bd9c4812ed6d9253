package forecast

import (
	"math"
)

// adfPThreshold is the significance level below which the unit-root null is
// rejected and the series treated as stationary.
const adfPThreshold = 0.05

// ADFResult holds the outcome of an augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic  float64
	PValue     float64
	Lags       int
	Stationary bool
}

// IsStationary applies the augmented Dickey-Fuller unit-root test and reports
// whether the series is stationary at the 5% level. NaN values are dropped
// before testing. Series too short or too degenerate for the regression are
// treated conservatively: constant series count as stationary, everything
// else as non-stationary.
func IsStationary(values []float64) bool {
	res := ADF(dropNaN(values))
	return res != nil && res.Stationary
}

// DetermineDifferencing returns the differencing order at which the series
// first passes the stationarity test: 0 for an already-stationary series,
// else the series is differenced once and retested, and, when maxD >= 2 and
// more than two points remain, differenced a second time. When no order up to
// maxD achieves stationarity the conservative default 1 is returned. The
// search is greedy: 2 is only reached after both the 0 and 1 tests fail.
func DetermineDifferencing(values []float64, maxD int) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := dropNaN(values)
	if IsStationary(current) {
		return 0
	}

	current = diff(current)
	if IsStationary(current) {
		return 1
	}

	if maxD >= 2 && len(current) > 2 {
		current = diff(current)
		if IsStationary(current) {
			return 2
		}
	}

	return 1
}

// ADF runs an augmented Dickey-Fuller regression (constant, no trend) with
// automatic lag selection and a MacKinnon p-value approximation. Returns nil
// when the series is too short for the regression.
func ADF(values []float64) *ADFResult {
	n := len(values)
	if n < 2 {
		return nil
	}

	// A (near-)constant series has no unit root to test for.
	if variance(values) < 1e-12 {
		return &ADFResult{Statistic: math.Inf(-1), PValue: 0.001, Stationary: true}
	}

	if n < 8 {
		return nil
	}

	maxLag := int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	d := diff(values)

	nObs := n - maxLag - 1
	if nObs < 5 {
		maxLag = 0
		nObs = n - 1
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i}) + e
	// Unit root iff beta = 0; stationary iff beta significantly < 0.
	y := make([]float64, nObs)
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y[i] = d[t]
		x[i] = make([]float64, 2+maxLag)
		x[i][0] = 1
		x[i][1] = values[t]
		for j := 1; j <= maxLag; j++ {
			x[i][1+j] = d[t-j]
		}
	}

	coeffs, se := olsRegression(x, y)
	if coeffs == nil || se == nil || len(coeffs) < 2 || len(se) < 2 {
		return nil
	}

	var tStat float64
	if se[1] == 0 {
		// Perfect fit: sign of the coefficient decides.
		tStat = math.Inf(-1)
		if coeffs[1] >= 0 {
			tStat = math.Inf(1)
		}
	} else {
		tStat = coeffs[1] / se[1]
	}

	p := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic:  tStat,
		PValue:     p,
		Lags:       maxLag,
		Stationary: p < adfPThreshold,
	}
}

// mackinnonPValue approximates the ADF p-value by interpolating MacKinnon's
// asymptotic critical values for a constant-only regression.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// olsRegression runs ordinary least squares and returns coefficients together
// with their standard errors. Returns nils on singular designs.
func olsRegression(x [][]float64, y []float64) (coeffs, stdErrors []float64) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, nil
	}
	k := len(x[0])

	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			xty[j] += x[i][j] * y[i]
			for l := 0; l < k; l++ {
				xtx[j][l] += x[i][j] * x[i][l]
			}
		}
	}

	xtxInv := invertMatrix(xtx)
	if xtxInv == nil {
		return nil, nil
	}

	coeffs = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coeffs[i] += xtxInv[i][j] * xty[j]
		}
	}

	sse := 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coeffs[j] * x[i][j]
		}
		r := y[i] - pred
		sse += r * r
	}

	if n <= k {
		return coeffs, nil
	}

	s2 := sse / float64(n-k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		stdErrors[i] = math.Sqrt(s2 * xtxInv[i][i])
	}

	return coeffs, stdErrors
}

// invertMatrix inverts a square matrix via Gauss-Jordan elimination, or
// returns nil for singular input.
func invertMatrix(m [][]float64) [][]float64 {
	n := len(m)
	if n == 0 {
		return nil
	}

	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i][:n], m[i])
		aug[i][n+i] = 1
	}

	for i := 0; i < n; i++ {
		maxRow := i
		for k := i + 1; k < n; k++ {
			if math.Abs(aug[k][i]) > math.Abs(aug[maxRow][i]) {
				maxRow = k
			}
		}
		aug[i], aug[maxRow] = aug[maxRow], aug[i]

		if math.Abs(aug[i][i]) < 1e-10 {
			return nil
		}

		pivot := aug[i][i]
		for j := 0; j < 2*n; j++ {
			aug[i][j] /= pivot
		}

		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			factor := aug[k][i]
			for j := 0; j < 2*n; j++ {
				aug[k][j] -= factor * aug[i][j]
			}
		}
	}

	result := make([][]float64, n)
	for i := 0; i < n; i++ {
		result[i] = make([]float64, n)
		copy(result[i], aug[i][n:])
	}
	return result
}

// diff returns first differences of the series.
func diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// seasonalDiff returns lag-period differences of the series.
func seasonalDiff(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return nil
	}
	out := make([]float64, len(values)-period)
	for i := period; i < len(values); i++ {
		out[i-period] = values[i] - values[i-period]
	}
	return out
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func variance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(n-1)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
