// Package optimize runs grid searches over signal parameters for a single
// pair, re-deriving signals and re-running the backtest engine per
// combination.
package optimize

import (
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"statarb/internal/backtest"
	"statarb/internal/market"
	"statarb/internal/pairs"
	"statarb/internal/signals"
)

// Grid enumerates the candidate values per parameter. The search covers the
// full Cartesian product.
type Grid struct {
	Windows []int     `yaml:"windows"`
	EntryZs []float64 `yaml:"entry_zs"`
	ExitZs  []float64 `yaml:"exit_zs"`
}

// DefaultGrid mirrors the standard research sweep.
func DefaultGrid() Grid {
	return Grid{
		Windows: []int{20, 30, 40, 60},
		EntryZs: []float64{1.5, 2.0, 2.5, 3.0},
		ExitZs:  []float64{0.0, 0.5, 1.0},
	}
}

// Size returns the number of combinations the grid spans.
func (g Grid) Size() int { return len(g.Windows) * len(g.EntryZs) * len(g.ExitZs) }

// Row is one parameter combination with its backtest outcome.
type Row struct {
	Window      int     `json:"window"`
	EntryZ      float64 `json:"entry_z"`
	ExitZ       float64 `json:"exit_z"`
	Sharpe      float64 `json:"sharpe"`
	TotalReturn float64 `json:"total_return"`
	Trades      int     `json:"trades"`
}

// GridSearch evaluates every combination for the pair and returns the table
// sorted descending by Sharpe; ties keep enumeration order. Combinations are
// independent, so they run on a bounded worker pool. A combination whose
// window exceeds available history simply produces a degenerate (zero) row
// rather than aborting the grid. If the pair's symbols are missing from the
// matrix the search logs the condition and returns an empty table.
func GridSearch(m *market.PriceMatrix, cand pairs.Candidate, grid Grid, cfg backtest.Config, log zerolog.Logger) []Row {
	if _, ok := m.Column(cand.Y); !ok {
		log.Error().Str("symbol", cand.Y).Msg("pair symbol missing from price matrix, skipping optimization")
		return nil
	}
	if _, ok := m.Column(cand.X); !ok {
		log.Error().Str("symbol", cand.X).Msg("pair symbol missing from price matrix, skipping optimization")
		return nil
	}

	combos := make([]signals.Params, 0, grid.Size())
	for _, w := range grid.Windows {
		for _, entry := range grid.EntryZs {
			for _, exit := range grid.ExitZs {
				combos = append(combos, signals.Params{Window: w, EntryZ: entry, ExitZ: exit})
			}
		}
	}
	log.Info().Str("pair", cand.Name()).Int("combinations", len(combos)).Msg("running grid search")

	rows := make([]Row, len(combos))
	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.GOMAXPROCS(0); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				rows[idx] = evaluate(m, cand, combos[idx], cfg, log)
			}
		}()
	}
	for idx := range combos {
		work <- idx
	}
	close(work)
	wg.Wait()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sharpe > rows[j].Sharpe })
	return rows
}

// evaluate runs one combination. Failures degrade to a zero row for that
// combination only.
func evaluate(m *market.PriceMatrix, cand pairs.Candidate, p signals.Params, cfg backtest.Config, log zerolog.Logger) Row {
	row := Row{Window: p.Window, EntryZ: p.EntryZ, ExitZ: p.ExitZ}

	series, err := signals.Generate(m, cand, p)
	if err != nil {
		log.Debug().Err(err).Int("window", p.Window).Msg("signal generation failed for combination")
		return row
	}
	res, err := backtest.Run(m, cand, series, cfg)
	if err != nil {
		log.Debug().Err(err).Int("window", p.Window).Msg("backtest failed for combination")
		return row
	}
	row.Sharpe = res.Sharpe
	row.TotalReturn = res.TotalReturn
	row.Trades = len(res.Trades)
	return row
}
