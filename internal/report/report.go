// Package report writes scan output to CSV files for downstream analysis.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"statarb/internal/backtest"
	"statarb/internal/pairs"
)

// PairSummary joins a discovered pair with its backtest result.
type PairSummary struct {
	Pair   pairs.Candidate
	Result *backtest.Result
}

// WriteSummary exports one row per backtested pair, sorted in the order
// given. Parent directories are created as needed.
func WriteSummary(path string, summaries []PairSummary) error {
	w, closeFn, err := openCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{"pair", "y", "x", "hedge_ratio", "p_value", "half_life", "total_return", "sharpe_ratio", "num_trades"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, s := range summaries {
		row := []string{
			s.Pair.Name(),
			s.Pair.Y,
			s.Pair.X,
			formatFloat(s.Pair.HedgeRatio),
			formatFloat(s.Pair.PValue),
			formatFloat(s.Pair.HalfLife),
			formatFloat(s.Result.TotalReturn),
			formatFloat(s.Result.Sharpe),
			strconv.Itoa(len(s.Result.Trades)),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary row for %s: %w", s.Pair.Name(), err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTrades exports the flattened trade ledger across all pairs.
func WriteTrades(path string, summaries []PairSummary) error {
	w, closeFn, err := openCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{"pair", "entry_date", "exit_date", "direction", "pnl", "duration_days", "avg_size"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write trades header: %w", err)
	}
	for _, s := range summaries {
		for _, tr := range s.Result.Trades {
			row := []string{
				s.Pair.Name(),
				tr.Entry.Format("2006-01-02"),
				tr.Exit.Format("2006-01-02"),
				string(tr.Direction),
				formatFloat(tr.PnL),
				strconv.Itoa(tr.DurationDays),
				formatFloat(tr.AvgSize),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write trade row for %s: %w", s.Pair.Name(), err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

func openCSV(path string) (*csv.Writer, func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create report file: %w", err)
	}
	return csv.NewWriter(f), func() { _ = f.Close() }, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
