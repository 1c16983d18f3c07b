// Package signals turns a candidate pair's spread history into an
// entry/exit instruction series.
package signals

import (
	"fmt"
	"math"
	"time"

	"statarb/internal/market"
	"statarb/internal/pairs"
	"statarb/internal/stats"
)

// Raw is a discriminated per-date instruction. Hold means "no new instruction
// this date, carry forward whatever position was already held"; it is a
// distinct state rather than a numeric sentinel so it can never be confused
// with a genuine flatten.
type Raw int8

const (
	Hold Raw = iota
	EnterLong
	EnterShort
	Exit
)

func (r Raw) String() string {
	switch r {
	case EnterLong:
		return "ENTER_LONG"
	case EnterShort:
		return "ENTER_SHORT"
	case Exit:
		return "EXIT"
	default:
		return "HOLD"
	}
}

// Point is one date's spread, z-score, and raw instruction. ZScore is NaN
// while the rolling window warms up.
type Point struct {
	Date   time.Time
	Spread float64
	ZScore float64
	Raw    Raw
}

// Series is the per-date instruction history for one pair, aligned with the
// price matrix dates it was derived from.
type Series struct {
	Pair   pairs.Candidate
	Points []Point
}

// Params are the signal-generation knobs.
type Params struct {
	Window int     `yaml:"window"`
	EntryZ float64 `yaml:"entry_z"`
	ExitZ  float64 `yaml:"exit_z"`
}

// DefaultParams returns the standard thresholds: enter past two trailing
// deviations, flatten inside half of one.
func DefaultParams() Params {
	return Params{Window: 30, EntryZ: 2.0, ExitZ: 0.5}
}

// Generate computes the spread and rolling z-score for a candidate pair and
// maps each date to a raw instruction:
//
//	z < -entry        -> EnterLong  (long Y, short X)
//	z > +entry        -> EnterShort (short Y, long X)
//	|z| < exit        -> Exit
//	otherwise, or z undefined -> Hold
//
// Entry conditions are checked before exit; the three are mutually exclusive
// as long as the entry threshold exceeds the exit threshold.
func Generate(m *market.PriceMatrix, cand pairs.Candidate, p Params) (*Series, error) {
	y, ok := m.Column(cand.Y)
	if !ok {
		return nil, fmt.Errorf("symbol %q not in price matrix", cand.Y)
	}
	x, ok := m.Column(cand.X)
	if !ok {
		return nil, fmt.Errorf("symbol %q not in price matrix", cand.X)
	}
	if p.Window < 2 {
		return nil, fmt.Errorf("window must be at least 2, got %d", p.Window)
	}

	spread := stats.Spread(y, x, cand.HedgeRatio)
	zscore := stats.RollingZScore(spread, p.Window)
	dates := m.Dates()

	points := make([]Point, len(spread))
	for t := range spread {
		points[t] = Point{
			Date:   dates[t],
			Spread: spread[t],
			ZScore: zscore[t],
			Raw:    classify(zscore[t], p.EntryZ, p.ExitZ),
		}
	}
	return &Series{Pair: cand, Points: points}, nil
}

func classify(z, entry, exit float64) Raw {
	switch {
	case math.IsNaN(z):
		return Hold
	case z < -entry:
		return EnterLong
	case z > entry:
		return EnterShort
	case math.Abs(z) < exit:
		return Exit
	default:
		return Hold
	}
}
