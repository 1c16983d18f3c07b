// Package risk encodes the position-sizing rules applied on top of raw
// signals: volatility targeting for size and a continuous Kelly estimate used
// as a go/no-go drift filter.
package risk

import (
	"math"

	"statarb/internal/stats"
)

// Sizing groups the tunable sizing knobs.
type Sizing struct {
	TargetVol   float64 `yaml:"target_vol"`
	VolWindow   int     `yaml:"vol_window"`
	MaxLeverage float64 `yaml:"max_leverage"`
	KellyWindow int     `yaml:"kelly_window"`
	// FixedSize, when positive, bypasses volatility targeting and the drift
	// filter entirely and applies a constant multiplier.
	FixedSize float64 `yaml:"fixed_size"`
}

// DefaultSizing returns the standard sizing configuration.
func DefaultSizing() Sizing {
	return Sizing{
		TargetVol:   0.15,
		VolWindow:   20,
		MaxLeverage: 2.0,
		KellyWindow: 60,
	}
}

const tradingDaysPerYear = 252

// AnnualizedVol computes the trailing annualized volatility of a daily return
// series. Entries before the window fills are NaN.
func AnnualizedVol(returns []float64, window int) []float64 {
	out := stats.RollingStd(returns, window)
	for t, v := range out {
		if !math.IsNaN(v) {
			out[t] = v * math.Sqrt(tradingDaysPerYear)
		}
	}
	return out
}

// VolTargetSize converts trailing volatility into a position multiplier:
// targetVol/vol capped at maxLeverage, or 0 when volatility is unusable.
// Zero or undefined volatility is an expected degeneracy, handled by the zero
// sentinel rather than an error.
func VolTargetSize(vol, targetVol, maxLeverage float64) float64 {
	if math.IsNaN(vol) || vol <= 0 {
		return 0
	}
	size := targetVol / vol
	return math.Min(size, maxLeverage)
}

// KellyClip bounds the continuous Kelly estimate to [0, 2].
const KellyClip = 2.0

// Multipliers computes the per-date sizing multiplier for a spread-return
// series given the volatility of the dependent leg. The Kelly estimate acts
// purely as a drift filter: a negative underlying mean/variance estimate
// forces the size to zero for that date, otherwise the volatility-target size
// applies. An undefined trailing variance yields a zero Kelly estimate but
// does not veto the trade.
func Multipliers(yReturns, spreadReturns []float64, cfg Sizing) []float64 {
	n := len(spreadReturns)
	out := make([]float64, n)
	if cfg.FixedSize > 0 {
		for t := range out {
			out[t] = cfg.FixedSize
		}
		return out
	}

	vol := AnnualizedVol(yReturns, cfg.VolWindow)
	mean := stats.RollingMean(spreadReturns, cfg.KellyWindow)
	variance := stats.RollingVar(spreadReturns, cfg.KellyWindow)

	for t := 0; t < n; t++ {
		size := VolTargetSize(vol[t], cfg.TargetVol, cfg.MaxLeverage)
		if !math.IsNaN(variance[t]) && variance[t] > 0 {
			if mean[t]/variance[t] < 0 {
				size = 0 // negative expected drift
			}
		}
		out[t] = size
	}
	return out
}

// KellyEstimate exposes the clipped continuous Kelly fraction for a single
// date, mainly for diagnostics: mean/variance clipped to [0, KellyClip], zero
// when the variance is zero or undefined.
func KellyEstimate(mean, variance float64) float64 {
	if math.IsNaN(variance) || variance <= 0 || math.IsNaN(mean) {
		return 0
	}
	k := mean / variance
	if k < 0 {
		return 0
	}
	return math.Min(k, KellyClip)
}
