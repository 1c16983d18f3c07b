package integration

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/backtest"
	"statarb/internal/config"
	"statarb/internal/execution"
	"statarb/internal/marketdata"
	"statarb/internal/optimize"
	"statarb/internal/pairs"
	"statarb/internal/report"
	"statarb/internal/signals"
)

// Runs the whole scan pipeline against the deterministic stub provider:
// fetch, discover, backtest, grid search, CSV export, and order placement.
func TestScanFlowProducesReportsAndOrders(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Default()
	cfg.Data.Symbols = []string{"AAPL", "MSFT", "GOOG", "AMZN"}

	stub := marketdata.NewStub(7)
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	m, err := stub.FetchPrices(ctx, cfg.Data.Symbols, start, end)
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}

	candidates := pairs.Discover(m, cfg.Discovery, zerolog.Nop())
	if len(candidates) == 0 {
		t.Fatal("stub universe produced no cointegrated pairs")
	}

	summaries := make([]report.PairSummary, 0, len(candidates))
	for _, cand := range candidates {
		series, err := signals.Generate(m, cand, cfg.Signals)
		if err != nil {
			t.Fatalf("Generate(%s): %v", cand.Name(), err)
		}
		result, err := backtest.Run(m, cand, series, cfg.Backtest())
		if err != nil {
			t.Fatalf("Run(%s): %v", cand.Name(), err)
		}
		if len(result.Equity) != m.Len() {
			t.Fatalf("equity curve length %d != matrix length %d", len(result.Equity), m.Len())
		}
		summaries = append(summaries, report.PairSummary{Pair: cand, Result: result})
	}

	dir := t.TempDir()
	summaryPath := filepath.Join(dir, "summary.csv")
	tradesPath := filepath.Join(dir, "trades.csv")
	if err := report.WriteSummary(summaryPath, summaries); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if err := report.WriteTrades(tradesPath, summaries); err != nil {
		t.Fatalf("WriteTrades: %v", err)
	}

	rows := optimize.GridSearch(m, candidates[0], cfg.Grid, cfg.Backtest(), zerolog.Nop())
	if len(rows) != cfg.Grid.Size() {
		t.Fatalf("expected %d grid rows, got %d", cfg.Grid.Size(), len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Sharpe > rows[i-1].Sharpe {
			t.Fatalf("grid rows not sorted by sharpe at %d", i)
		}
	}

	var buf bytes.Buffer
	exec := execution.NewExecutor(zerolog.New(&buf))
	if err := exec.SubmitSpread(candidates[0], 1, 10); err != nil {
		t.Fatalf("SubmitSpread: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, candidates[0].Y) || !strings.Contains(out, candidates[0].X) {
		t.Fatalf("expected both legs in executor log, got %s", out)
	}
}
