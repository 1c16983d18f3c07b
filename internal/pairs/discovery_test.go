package pairs

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/market"
)

func syntheticMatrix(t *testing.T, n int) *market.PriceMatrix {
	t.Helper()
	dates := make([]time.Time, n)
	base := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(21))
	x := make([]float64, n)
	y := make([]float64, n)
	x[0] = 100
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
		if i > 0 {
			x[i] = x[i-1] + rng.NormFloat64()
		}
		// Stationary AR(1) noise keeps the half-life inside the default bounds.
	}
	noise := 0.0
	for i := range y {
		noise = 0.8*noise + rng.NormFloat64()
		y[i] = 2*x[i] + noise
	}
	m, err := market.New(dates, []string{"X", "Y"}, [][]float64{x, y})
	if err != nil {
		t.Fatalf("market.New: %v", err)
	}
	return m
}

func TestDiscoverFindsCointegratedPair(t *testing.T) {
	m := syntheticMatrix(t, 500)
	cands := Discover(m, DefaultConfig(), zerolog.Nop())
	if len(cands) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.Y != "Y" || c.X != "X" {
		t.Fatalf("unexpected leg assignment: %+v", c)
	}
	if math.Abs(c.HedgeRatio-2) > 0.1 {
		t.Fatalf("expected hedge ratio near 2, got %v", c.HedgeRatio)
	}
	if c.PValue >= 0.05 {
		t.Fatalf("expected significant p-value, got %v", c.PValue)
	}
	if math.IsInf(c.HalfLife, 1) || c.HalfLife <= 0 {
		t.Fatalf("expected finite positive half-life, got %v", c.HalfLife)
	}
}

func TestDiscoverTooFewSymbols(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	m, err := market.New(dates, []string{"ONLY"}, [][]float64{{1, 2}})
	if err != nil {
		t.Fatalf("market.New: %v", err)
	}
	if cands := Discover(m, DefaultConfig(), zerolog.Nop()); len(cands) != 0 {
		t.Fatalf("expected empty result for single-symbol matrix")
	}
	if cands := Discover(nil, DefaultConfig(), zerolog.Nop()); len(cands) != 0 {
		t.Fatalf("expected empty result for nil matrix")
	}
}

func TestDiscoverHalfLifeBounds(t *testing.T) {
	m := syntheticMatrix(t, 500)

	// Force the discovered half-life out of bounds to exercise both policies.
	cfg := DefaultConfig()
	cfg.MaxHalfLife = 1e-9
	if cands := Discover(m, cfg, zerolog.Nop()); len(cands) != 0 {
		t.Fatalf("expected exclusion under %q policy, got %d candidates", PolicyExclude, len(cands))
	}

	cfg.HalfLifePolicy = PolicyWarn
	if cands := Discover(m, cfg, zerolog.Nop()); len(cands) != 1 {
		t.Fatalf("expected retention under %q policy", PolicyWarn)
	}
}

func TestDiscoverPreservesDiscoveryOrder(t *testing.T) {
	// Three correlated columns built from the same walk give multiple
	// cointegrated pairs; discovery order must be row-major over (i, j).
	n := 400
	dates := make([]time.Time, n)
	base := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(5))
	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	a[0] = 100
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
		if i > 0 {
			a[i] = a[i-1] + rng.NormFloat64()
		}
	}
	noiseB, noiseC := 0.0, 0.0
	for i := range a {
		noiseB = 0.8*noiseB + rng.NormFloat64()
		noiseC = 0.8*noiseC + rng.NormFloat64()
		b[i] = 1.5*a[i] + noiseB
		c[i] = 0.5*a[i] + noiseC
	}
	m, err := market.New(dates, []string{"A", "B", "C"}, [][]float64{a, b, c})
	if err != nil {
		t.Fatalf("market.New: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Workers = 4
	cands := Discover(m, cfg, zerolog.Nop())
	if len(cands) < 2 {
		t.Fatalf("expected multiple candidates, got %d", len(cands))
	}
	order := map[string]int{"B-A": 0, "C-A": 1, "C-B": 2}
	last := -1
	for _, cand := range cands {
		rank, ok := order[cand.Name()]
		if !ok {
			t.Fatalf("unexpected pair %s", cand.Name())
		}
		if rank < last {
			t.Fatalf("discovery order violated: %s after rank %d", cand.Name(), last)
		}
		last = rank
	}
}
