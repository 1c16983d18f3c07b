// Package market holds the shared price-matrix value type consumed by every
// analytics stage.
package market

import (
	"fmt"
	"math"
	"time"
)

// PriceMatrix is an ordered-by-date table of closing prices. Columns are unique
// symbols, rows are strictly increasing trading dates with no gaps left inside
// the table. Once constructed it is never mutated; stages own read-only views.
type PriceMatrix struct {
	dates   []time.Time
	symbols []string
	columns [][]float64
	index   map[string]int
}

// New validates the raw inputs and builds an immutable matrix. Dates must be
// strictly increasing, symbols unique, and every column must match the date
// count with no NaN entries.
func New(dates []time.Time, symbols []string, columns [][]float64) (*PriceMatrix, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("price matrix has no rows")
	}
	if len(symbols) < 1 {
		return nil, fmt.Errorf("price matrix has no columns")
	}
	if len(symbols) != len(columns) {
		return nil, fmt.Errorf("symbol count %d does not match column count %d", len(symbols), len(columns))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates not strictly increasing at row %d", i)
		}
	}
	index := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		if sym == "" {
			return nil, fmt.Errorf("empty symbol at column %d", i)
		}
		if _, dup := index[sym]; dup {
			return nil, fmt.Errorf("duplicate symbol %q", sym)
		}
		if len(columns[i]) != len(dates) {
			return nil, fmt.Errorf("column %q has %d rows, want %d", sym, len(columns[i]), len(dates))
		}
		for t, v := range columns[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("column %q has non-finite value at row %d", sym, t)
			}
		}
		index[sym] = i
	}
	return &PriceMatrix{dates: dates, symbols: symbols, columns: columns, index: index}, nil
}

// Align forward-fills per-column gaps (NaN entries) and drops any leading rows
// that still contain a gap, then validates the result. This mirrors how raw
// provider data is cleaned before the analytics stages may assume a dense
// matrix.
func Align(dates []time.Time, symbols []string, columns [][]float64) (*PriceMatrix, error) {
	if len(symbols) != len(columns) {
		return nil, fmt.Errorf("symbol count %d does not match column count %d", len(symbols), len(columns))
	}
	filled := make([][]float64, len(columns))
	for i, col := range columns {
		if len(col) != len(dates) {
			return nil, fmt.Errorf("column %q has %d rows, want %d", symbols[i], len(col), len(dates))
		}
		out := make([]float64, len(col))
		last := math.NaN()
		for t, v := range col {
			if !math.IsNaN(v) {
				last = v
			}
			out[t] = last
		}
		filled[i] = out
	}

	// Drop leading rows where any column is still unfilled.
	start := 0
	for ; start < len(dates); start++ {
		ok := true
		for _, col := range filled {
			if math.IsNaN(col[start]) {
				ok = false
				break
			}
		}
		if ok {
			break
		}
	}
	if start == len(dates) {
		return nil, fmt.Errorf("no rows remain after alignment")
	}
	trimmed := make([][]float64, len(filled))
	for i, col := range filled {
		trimmed[i] = col[start:]
	}
	return New(dates[start:], symbols, trimmed)
}

// Len reports the number of rows (trading dates).
func (m *PriceMatrix) Len() int { return len(m.dates) }

// Symbols returns the ordered column names.
func (m *PriceMatrix) Symbols() []string { return m.symbols }

// Dates returns the ordered trading dates.
func (m *PriceMatrix) Dates() []time.Time { return m.dates }

// Column returns the closing-price series for a symbol.
func (m *PriceMatrix) Column(symbol string) ([]float64, bool) {
	i, ok := m.index[symbol]
	if !ok {
		return nil, false
	}
	return m.columns[i], true
}

// Returns computes simple percentage returns for a symbol. The first entry is
// zero so the series stays aligned with the date index.
func (m *PriceMatrix) Returns(symbol string) ([]float64, bool) {
	col, ok := m.Column(symbol)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	for t := 1; t < len(col); t++ {
		if col[t-1] != 0 {
			out[t] = col[t]/col[t-1] - 1
		}
	}
	return out, true
}
