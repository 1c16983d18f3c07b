// Package pairs scans a price matrix for cointegrated symbol pairs worth
// trading.
package pairs

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"statarb/internal/market"
	"statarb/internal/metrics"
	"statarb/internal/stats"
)

// Candidate describes one tradeable pair. Y is the dependent leg, X the
// independent leg, and HedgeRatio satisfies spread = Y - HedgeRatio*X.
// Candidates are immutable once produced.
type Candidate struct {
	Y          string  `json:"y"`
	X          string  `json:"x"`
	HedgeRatio float64 `json:"hedge_ratio"`
	PValue     float64 `json:"p_value"`
	HalfLife   float64 `json:"half_life"`
}

// Name returns the conventional Y-X label for logs and reports.
func (c Candidate) Name() string { return c.Y + "-" + c.X }

// Half-life policies for pairs whose estimated half-life falls outside the
// configured bounds.
const (
	// PolicyExclude silently drops out-of-bounds pairs.
	PolicyExclude = "exclude"
	// PolicyWarn keeps out-of-bounds pairs but logs a warning.
	PolicyWarn = "warn"
)

// Config bounds which discovered pairs survive the scan.
type Config struct {
	MinHalfLife    float64 `yaml:"min_half_life"`
	MaxHalfLife    float64 `yaml:"max_half_life"`
	HalfLifePolicy string  `yaml:"half_life_policy"`
	Workers        int     `yaml:"workers"`
}

// DefaultConfig returns the standard discovery bounds: half-lives between 1
// and 42 trading days. Faster reversion is noise, slower ties up capital.
func DefaultConfig() Config {
	return Config{
		MinHalfLife:    1,
		MaxHalfLife:    42,
		HalfLifePolicy: PolicyExclude,
	}
}

// Discover evaluates every unordered symbol pair (i<j) in the matrix, treating
// column j as Y and column i as X: an Engle-Granger test selects cointegrated
// pairs, then a half-life bound filters out reversion speeds that are not
// tradeable. The scan is O(N^2) pair evaluations, each O(T) for the
// regressions; it dominates runtime on large universes, so evaluations run on
// a bounded worker pool. Output order is discovery order (row-major over i,j);
// callers wanting a ranking must sort explicitly.
//
// A matrix with fewer than two symbols is a data error recovered locally: the
// scan logs a diagnostic and returns an empty list so batch callers never
// abort on one bad input.
func Discover(m *market.PriceMatrix, cfg Config, log zerolog.Logger) []Candidate {
	if m == nil || len(m.Symbols()) < 2 {
		log.Error().Msg("price matrix has fewer than 2 symbols, nothing to scan")
		return nil
	}

	symbols := m.Symbols()
	n := len(symbols)
	type job struct{ i, j int }
	jobs := make([]job, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			jobs = append(jobs, job{i, j})
		}
	}

	log.Info().Int("symbols", n).Int("combinations", len(jobs)).Msg("scanning for cointegrated pairs")

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Results keep their job index so discovery order survives the pool.
	results := make([]*Candidate, len(jobs))
	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				jb := jobs[idx]
				results[idx] = evaluate(m, symbols[jb.i], symbols[jb.j], cfg, log)
			}
		}()
	}
	for idx := range jobs {
		work <- idx
	}
	close(work)
	wg.Wait()

	out := make([]Candidate, 0)
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	metrics.PairsFound.Add(float64(len(out)))
	log.Info().Int("pairs", len(out)).Msg("cointegration scan complete")
	return out
}

// evaluate runs the statistics for a single (x, y) pair. Failures are isolated
// to the pair: they are logged and the pair skipped, never propagated.
func evaluate(m *market.PriceMatrix, xSym, ySym string, cfg Config, log zerolog.Logger) *Candidate {
	metrics.PairsScanned.Inc()

	x, _ := m.Column(xSym)
	y, _ := m.Column(ySym)

	coint, err := stats.EngleGranger(x, y)
	if err != nil {
		log.Debug().Err(err).Str("pair", ySym+"-"+xSym).Msg("cointegration test failed, skipping pair")
		return nil
	}
	if !coint.Cointegrated {
		return nil
	}

	spread := stats.Spread(y, x, coint.HedgeRatio)
	halfLife, err := stats.HalfLife(spread)
	if err != nil {
		log.Debug().Err(err).Str("pair", ySym+"-"+xSym).Msg("half-life regression failed, skipping pair")
		return nil
	}

	cand := &Candidate{
		Y:          ySym,
		X:          xSym,
		HedgeRatio: coint.HedgeRatio,
		PValue:     coint.PValue,
		HalfLife:   halfLife,
	}

	inBounds := !math.IsNaN(halfLife) && halfLife >= cfg.MinHalfLife && halfLife <= cfg.MaxHalfLife
	if !inBounds {
		if cfg.HalfLifePolicy == PolicyWarn {
			log.Warn().Str("pair", cand.Name()).Float64("half_life", halfLife).
				Msg("half-life outside bounds, keeping pair per policy")
		} else {
			return nil
		}
	}

	log.Info().Str("pair", cand.Name()).
		Str("p", fmt.Sprintf("%.4f", cand.PValue)).
		Str("half_life", fmt.Sprintf("%.1f", cand.HalfLife)).
		Msg("found cointegrated pair")
	return cand
}
