// Package backtest simulates the historical profitability of trading one
// pair's signal series under transaction costs and dynamic position sizing.
package backtest

import (
	"fmt"
	"math"
	"time"

	"statarb/internal/market"
	"statarb/internal/metrics"
	"statarb/internal/pairs"
	"statarb/internal/risk"
	"statarb/internal/signals"
)

// Costs is the turnover-proportional cost model: a combined commission and
// half-spread rate applied against both legs as a single rate per unit of
// position change.
type Costs struct {
	CommissionRate float64 `yaml:"commission_rate"`
	HalfSpreadRate float64 `yaml:"half_spread_rate"`
}

// DefaultCosts returns the standard cost assumptions: 10bps commission plus
// 5bps half-spread per unit of turnover.
func DefaultCosts() Costs {
	return Costs{CommissionRate: 0.001, HalfSpreadRate: 0.0005}
}

// Config bundles everything the engine needs besides the inputs themselves.
type Config struct {
	Costs  Costs       `yaml:"costs"`
	Sizing risk.Sizing `yaml:"sizing"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{Costs: DefaultCosts(), Sizing: risk.DefaultSizing()}
}

// Direction labels which side of the spread a trade was on.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// TradeRecord is one round trip in the trade ledger.
type TradeRecord struct {
	Entry        time.Time `json:"entry_date"`
	Exit         time.Time `json:"exit_date"`
	Direction    Direction `json:"direction"`
	PnL          float64   `json:"pnl"`
	DurationDays int       `json:"duration_days"`
	AvgSize      float64   `json:"avg_size"`
}

// Result is the value object produced by one engine run. Positions holds the
// lagged position-state sequence actually applied each date; Equity is the
// compounded net-return curve aligned with it.
type Result struct {
	TotalReturn float64       `json:"total_return"`
	Sharpe      float64       `json:"sharpe_ratio"`
	Equity      []float64     `json:"equity_curve"`
	Positions   []int         `json:"positions"`
	Trades      []TradeRecord `json:"trades"`
}

const tradingDaysPerYear = 252

// Latch converts raw instructions into the per-date position state by
// carrying the last instruction forward through Hold entries. EnterLong and
// EnterShort override any prior state, so a direct short-to-long flip is
// legal and re-enters immediately. The scan is inherently sequential: each
// date depends on the previous state, so it stays an explicit forward loop.
func Latch(raws []signals.Raw) []int {
	out := make([]int, len(raws))
	state := 0
	for t, r := range raws {
		switch r {
		case signals.EnterLong:
			state = 1
		case signals.EnterShort:
			state = -1
		case signals.Exit:
			state = 0
		}
		out[t] = state
	}
	return out
}

// Run executes the engine for one pair/signal-series combination. Inputs are
// treated read-only and the run has no hidden state, so identical inputs
// always produce bit-identical results and runs may execute concurrently.
func Run(m *market.PriceMatrix, cand pairs.Candidate, series *signals.Series, cfg Config) (*Result, error) {
	metrics.BacktestsTotal.Inc()

	retY, ok := m.Returns(cand.Y)
	if !ok {
		return nil, fmt.Errorf("symbol %q not in price matrix", cand.Y)
	}
	retX, ok := m.Returns(cand.X)
	if !ok {
		return nil, fmt.Errorf("symbol %q not in price matrix", cand.X)
	}
	n := m.Len()
	if len(series.Points) != n {
		return nil, fmt.Errorf("signal series has %d points, matrix has %d rows", len(series.Points), n)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty price matrix")
	}

	spreadRet := make([]float64, n)
	for t := 0; t < n; t++ {
		spreadRet[t] = retY[t] - cand.HedgeRatio*retX[t]
	}

	raws := make([]signals.Raw, n)
	for t, p := range series.Points {
		raws[t] = p.Raw
	}
	rawPos := Latch(raws)
	rawSize := risk.Multipliers(retY, spreadRet, cfg.Sizing)

	// Decisions computed through date t apply starting date t+1. The first
	// period after shifting is neutral: position 0, size 1 (inert against a
	// zero position).
	pos := make([]int, n)
	size := make([]float64, n)
	size[0] = 1.0
	for t := 1; t < n; t++ {
		pos[t] = rawPos[t-1]
		size[t] = rawSize[t-1]
	}

	sized := make([]float64, n)
	for t := 0; t < n; t++ {
		sized[t] = float64(pos[t]) * size[t]
	}

	costRate := cfg.Costs.CommissionRate + cfg.Costs.HalfSpreadRate
	net := make([]float64, n)
	equity := make([]float64, n)
	acc := 1.0
	for t := 0; t < n; t++ {
		gross := sized[t] * spreadRet[t]
		turnover := 0.0
		if t > 0 {
			turnover = math.Abs(sized[t] - sized[t-1])
		}
		net[t] = gross - turnover*costRate
		acc *= 1 + net[t]
		equity[t] = acc
	}

	totalReturn := equity[n-1] - 1
	sharpe := 0.0
	if sd := stdDev(net); sd > 0 {
		sharpe = mean(net) / sd * math.Sqrt(tradingDaysPerYear)
	}

	trades := extractTrades(m.Dates(), pos, sized, net)

	return &Result{
		TotalReturn: totalReturn,
		Sharpe:      sharpe,
		Equity:      equity,
		Positions:   pos,
		Trades:      trades,
	}, nil
}

// extractTrades scans the applied position signs chronologically and carves
// them into round trips. A direct sign flip closes the running trade at the
// flip date and opens the next one at that same date; a trade still open at
// the final date is force-closed there.
func extractTrades(dates []time.Time, pos []int, sized, net []float64) []TradeRecord {
	var out []TradeRecord

	open := false
	var entry time.Time
	var dir int
	var pnl float64
	var sizeSum float64
	var sizeCount int

	finish := func(exit time.Time) {
		d := Long
		if dir < 0 {
			d = Short
		}
		avg := 0.0
		if sizeCount > 0 {
			avg = sizeSum / float64(sizeCount)
		}
		out = append(out, TradeRecord{
			Entry:        entry,
			Exit:         exit,
			Direction:    d,
			PnL:          pnl,
			DurationDays: int(exit.Sub(entry).Hours() / 24),
			AvgSize:      avg,
		})
	}
	begin := func(t int) {
		open = true
		entry = dates[t]
		dir = pos[t]
		pnl = net[t]
		sizeSum = math.Abs(sized[t])
		sizeCount = 1
	}

	for t := range pos {
		switch {
		case pos[t] != 0 && !open:
			begin(t)
		case pos[t] != 0 && open && pos[t] != dir:
			finish(dates[t])
			begin(t)
		case pos[t] != 0 && open:
			pnl += net[t]
			sizeSum += math.Abs(sized[t])
			sizeCount++
		case pos[t] == 0 && open:
			open = false
			finish(dates[t])
		}
	}
	if open {
		finish(dates[len(dates)-1])
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
