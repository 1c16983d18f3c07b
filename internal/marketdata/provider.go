// Package marketdata hosts the price providers feeding the analytics core:
// a real daily-bars HTTP client, a deterministic stub for tests and offline
// work, and a live quote stream used by the trader loop.
package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/market"
)

// Provider fetches a symbol-by-date closing price matrix. Implementations
// must return a dense matrix (gaps forward-filled, leading gaps dropped) or
// an error; the analytics core assumes that precondition.
type Provider interface {
	FetchPrices(ctx context.Context, symbols []string, start, end time.Time) (*market.PriceMatrix, error)
}

// Stub produces deterministic synthetic daily prices, useful for tests and
// offline work. Symbols are generated pairwise cointegrated: every odd column
// tracks twice the preceding column plus stationary noise, so pair discovery
// always has something to find.
type Stub struct {
	Seed int64
}

// NewStub builds a stub provider with a fixed seed.
func NewStub(seed int64) *Stub { return &Stub{Seed: seed} }

// FetchPrices generates one row per weekday in [start, end].
func (s *Stub) FetchPrices(_ context.Context, symbols []string, start, end time.Time) (*market.PriceMatrix, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols requested")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end %v not after start %v", end, start)
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading dates between %v and %v", start, end)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	columns := make([][]float64, len(symbols))
	for i := range symbols {
		col := make([]float64, len(dates))
		if i%2 == 1 {
			// Cointegrated with the previous column.
			prev := columns[i-1]
			noise := 0.0
			for t := range col {
				noise = 0.8*noise + 0.5*rng.NormFloat64()
				col[t] = 2*prev[t] + noise
			}
		} else {
			col[0] = 50 + 100*rng.Float64()
			for t := 1; t < len(col); t++ {
				col[t] = col[t-1] + 0.5*rng.NormFloat64()
			}
		}
		columns[i] = col
	}
	return market.New(dates, symbols, columns)
}

// Open resolves a provider by name. Alpaca needs credentials; unknown names
// fall back to the stub so offline runs always work.
func Open(provider, baseURL, key, secret string, log zerolog.Logger) (Provider, error) {
	switch strings.ToLower(provider) {
	case "alpaca":
		return NewAlpacaClient(baseURL, key, secret, log)
	case "", "stub":
		return NewStub(42), nil
	default:
		log.Warn().Str("provider", provider).Msg("unknown price provider, using stub")
		return NewStub(42), nil
	}
}
