// Package stats provides the pure statistical primitives behind pair
// selection: the Engle-Granger cointegration test, rolling z-scores, spread
// construction, and mean-reversion half-life estimation.
package stats

import (
	"fmt"
	"math"
	"sort"
)

// SignificanceLevel is the p-value cutoff below which a pair counts as
// cointegrated.
const SignificanceLevel = 0.05

// Cointegration summarizes an Engle-Granger test between two price series.
type Cointegration struct {
	Cointegrated bool
	PValue       float64
	HedgeRatio   float64
}

// minObservations guards the two regressions inside the test; anything
// shorter produces meaningless statistics.
const minObservations = 20

// EngleGranger runs the two-step Engle-Granger cointegration test. Step one
// fits OLS of y on x with an intercept to obtain the hedge ratio (beta); step
// two runs an augmented Dickey-Fuller unit-root test on the cointegrating
// residuals and maps the tau statistic to a p-value. Both series must be
// equal-length, aligned, and free of missing values.
func EngleGranger(x, y []float64) (Cointegration, error) {
	if len(x) != len(y) {
		return Cointegration{}, fmt.Errorf("series length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < minObservations {
		return Cointegration{}, fmt.Errorf("need at least %d observations, got %d", minObservations, len(x))
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return Cointegration{}, fmt.Errorf("missing value at index %d", i)
		}
	}

	alpha, beta, err := LinearFit(y, x)
	if err != nil {
		return Cointegration{}, fmt.Errorf("hedge regression: %w", err)
	}

	resid := make([]float64, len(x))
	for i := range x {
		resid[i] = y[i] - alpha - beta*x[i]
	}

	tau, err := adfStatistic(resid)
	if err != nil {
		return Cointegration{}, fmt.Errorf("unit-root test: %w", err)
	}
	p := mackinnonP(tau)

	return Cointegration{
		Cointegrated: p < SignificanceLevel,
		PValue:       p,
		HedgeRatio:   beta,
	}, nil
}

// adfStatistic computes the augmented Dickey-Fuller tau statistic with a
// single augmentation lag:
//
//	de[t] = c + gamma*e[t-1] + phi*de[t-1] + eps
//
// tau is gamma over its standard error.
func adfStatistic(series []float64) (float64, error) {
	n := len(series)
	if n < 4 {
		return 0, fmt.Errorf("series too short for ADF: %d", n)
	}
	diff := make([]float64, n-1)
	for t := 1; t < n; t++ {
		diff[t-1] = series[t] - series[t-1]
	}

	// Rows t = 2..n-1 of the original index.
	rows := n - 2
	dep := make([]float64, rows)
	ones := make([]float64, rows)
	lagLevel := make([]float64, rows)
	lagDiff := make([]float64, rows)
	for i := 0; i < rows; i++ {
		dep[i] = diff[i+1]
		ones[i] = 1
		lagLevel[i] = series[i+1]
		lagDiff[i] = diff[i]
	}

	fit, err := olsFit(dep, [][]float64{ones, lagLevel, lagDiff})
	if err != nil {
		return 0, err
	}
	if fit.se[1] == 0 {
		return 0, fmt.Errorf("degenerate ADF regression")
	}
	return fit.coef[1] / fit.se[1], nil
}

// tauQuantiles approximates the asymptotic distribution of the Engle-Granger
// tau statistic for two variables with a constant term (MacKinnon 2010
// response-surface quantiles). Interpolated linearly; monotone in tau.
var tauQuantiles = []struct {
	tau float64
	p   float64
}{
	{-6.00, 0.0001},
	{-5.00, 0.0005},
	{-4.50, 0.002},
	{-4.00, 0.007},
	{-3.90, 0.010},
	{-3.59, 0.025},
	{-3.34, 0.050},
	{-3.17, 0.075},
	{-3.05, 0.100},
	{-2.86, 0.150},
	{-2.71, 0.200},
	{-2.38, 0.300},
	{-2.00, 0.450},
	{-1.70, 0.600},
	{-1.30, 0.750},
	{-0.80, 0.870},
	{0.00, 0.950},
	{1.00, 0.990},
}

func mackinnonP(tau float64) float64 {
	qs := tauQuantiles
	if tau <= qs[0].tau {
		return qs[0].p
	}
	if tau >= qs[len(qs)-1].tau {
		return qs[len(qs)-1].p
	}
	i := sort.Search(len(qs), func(i int) bool { return qs[i].tau >= tau })
	lo, hi := qs[i-1], qs[i]
	frac := (tau - lo.tau) / (hi.tau - lo.tau)
	return lo.p + frac*(hi.p-lo.p)
}

// Spread computes the cointegrating combination y - hedgeRatio*x.
func Spread(y, x []float64, hedgeRatio float64) []float64 {
	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = y[i] - hedgeRatio*x[i]
	}
	return out
}

// HalfLife estimates how long a mean-reverting spread takes to close half the
// distance back to its mean, from an AR(1)-style regression of the spread
// change on the lagged spread. A non-negative slope means the spread is not
// mean reverting; that case returns +Inf rather than an error because it is an
// expected, frequent outcome on real data.
func HalfLife(spread []float64) (float64, error) {
	if len(spread) < 3 {
		return 0, fmt.Errorf("spread too short for half-life: %d", len(spread))
	}
	lag := spread[:len(spread)-1]
	delta := make([]float64, len(spread)-1)
	for t := 1; t < len(spread); t++ {
		delta[t-1] = spread[t] - spread[t-1]
	}
	_, b, err := LinearFit(delta, lag)
	if err != nil {
		return 0, fmt.Errorf("half-life regression: %w", err)
	}
	if b >= 0 {
		return math.Inf(1), nil
	}
	return -math.Ln2 / math.Log(1+b), nil
}
