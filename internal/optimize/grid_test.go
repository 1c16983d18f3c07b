package optimize

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/backtest"
	"statarb/internal/market"
	"statarb/internal/pairs"
)

func cointegratedMatrix(t *testing.T, n int) (*market.PriceMatrix, pairs.Candidate) {
	t.Helper()
	dates := make([]time.Time, n)
	base := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(99))
	x := make([]float64, n)
	y := make([]float64, n)
	x[0] = 100
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
		if i > 0 {
			x[i] = x[i-1] + rng.NormFloat64()
		}
		y[i] = 2*x[i] + 3*math.Sin(float64(i)/5) + rng.NormFloat64()
	}
	m, err := market.New(dates, []string{"X", "Y"}, [][]float64{x, y})
	if err != nil {
		t.Fatalf("market.New: %v", err)
	}
	return m, pairs.Candidate{Y: "Y", X: "X", HedgeRatio: 2}
}

func TestGridSearchRowCountAndOrder(t *testing.T) {
	m, cand := cointegratedMatrix(t, 300)
	grid := Grid{
		Windows: []int{10, 20, 30, 40},
		EntryZs: []float64{1.0, 1.5, 2.0, 2.5},
		ExitZs:  []float64{0.0, 0.5, 1.0},
	}

	rows := GridSearch(m, cand, grid, backtest.DefaultConfig(), zerolog.Nop())
	if len(rows) != 48 {
		t.Fatalf("expected 48 rows (4x4x3), got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Sharpe > rows[i-1].Sharpe {
			t.Fatalf("rows not sorted descending by sharpe at %d: %v > %v", i, rows[i].Sharpe, rows[i-1].Sharpe)
		}
	}
}

func TestGridSearchOversizedWindowDegrades(t *testing.T) {
	m, cand := cointegratedMatrix(t, 60)
	grid := Grid{
		Windows: []int{10, 500}, // 500 exceeds available history
		EntryZs: []float64{2.0},
		ExitZs:  []float64{0.5},
	}

	rows := GridSearch(m, cand, grid, backtest.DefaultConfig(), zerolog.Nop())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	var degenerate *Row
	for i := range rows {
		if rows[i].Window == 500 {
			degenerate = &rows[i]
		}
	}
	if degenerate == nil {
		t.Fatalf("oversized window row missing")
	}
	if degenerate.Trades != 0 || degenerate.Sharpe != 0 || degenerate.TotalReturn != 0 {
		t.Fatalf("expected degenerate row for oversized window, got %+v", degenerate)
	}
}

func TestGridSearchMissingSymbols(t *testing.T) {
	m, _ := cointegratedMatrix(t, 60)
	bad := pairs.Candidate{Y: "NOPE", X: "X", HedgeRatio: 1}
	rows := GridSearch(m, bad, DefaultGrid(), backtest.DefaultConfig(), zerolog.Nop())
	if len(rows) != 0 {
		t.Fatalf("expected empty table for missing symbols, got %d rows", len(rows))
	}
}
