package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/backtest"
	"statarb/internal/config"
	"statarb/internal/execution"
	"statarb/internal/market"
	"statarb/internal/marketdata"
	"statarb/internal/metrics"
	"statarb/internal/pairs"
	"statarb/internal/paper"
	"statarb/internal/risk"
	"statarb/internal/sched"
	"statarb/internal/signals"
	"statarb/internal/universe"
	"statarb/internal/util"
)

// baseQty is the dependent-leg share count for every spread entry.
const baseQty = 10.0

// trader holds the position state carried between scheduled scans.
type trader struct {
	cfg      *config.Config
	provider marketdata.Provider
	exec     *execution.Executor
	account  *paper.Account
	limits   risk.Limits
	log      zerolog.Logger

	mu       sync.Mutex
	pair     pairs.Candidate
	position int
	marks    map[string]float64
}

func main() {
	cfgPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := marketdata.Open(cfg.Data.Provider, cfg.Data.BaseURL, cfg.AlpacaKey, cfg.AlpacaSecret, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open price provider")
	}

	recorder, err := paper.NewJSONLRecorder(cfg.Trader.FillsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open fills recorder")
	}
	defer recorder.Close()

	tr := &trader{
		cfg:      cfg,
		provider: provider,
		exec:     execution.NewExecutor(log),
		account:  paper.NewAccount(cfg.Trader.StartingCash, recorder),
		limits:   cfg.Risk,
		log:      log,
		marks:    make(map[string]float64),
	}

	feed := marketdata.NewQuoteFeed(cfg.Trader.QuoteProvider, cfg.Data.Symbols, log)
	quotes := make(chan marketdata.Quote, 1024)
	go func() {
		if err := feed.Run(ctx, quotes); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("quote feed stopped")
			cancel()
		}
	}()
	go tr.consumeQuotes(ctx, quotes)

	interval := time.Duration(cfg.Trader.ScanIntervalMinutes) * time.Minute
	runner, err := sched.NewRunner("rescan", interval, tr.rescan, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build scheduler")
	}

	log.Info().Dur("interval", interval).Msg("trader loop started")
	_ = runner.Run(ctx)
	log.Info().Msg("shutting down")
}

// consumeQuotes keeps the last seen price per symbol and logs marks for the
// active pair.
func (tr *trader) consumeQuotes(ctx context.Context, quotes <-chan marketdata.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-quotes:
			tr.mu.Lock()
			tr.marks[q.Symbol] = q.Price
			active := tr.position != 0 && (q.Symbol == tr.pair.Y || q.Symbol == tr.pair.X)
			yPx, xPx := tr.marks[tr.pair.Y], tr.marks[tr.pair.X]
			pair := tr.pair
			tr.mu.Unlock()
			if active && yPx > 0 && xPx > 0 {
				spread := yPx - pair.HedgeRatio*xPx
				tr.log.Debug().Str("pair", pair.Name()).Float64("spread_mark", spread).Msg("marked open spread")
			}
		}
	}
}

// rescan refreshes the price matrix, re-ranks pairs, and reconciles the held
// position against the latest latched signal.
func (tr *trader) rescan(ctx context.Context) error {
	uni := universe.NewStatic(tr.cfg.Data.Symbols)
	symbols, err := uni.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("resolve universe: %w", err)
	}
	start, end, err := tr.cfg.Data.Window()
	if err != nil {
		return fmt.Errorf("parse data window: %w", err)
	}
	m, err := tr.provider.FetchPrices(ctx, symbols, start, end)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	candidates := pairs.Discover(m, tr.cfg.Discovery, tr.log)
	if len(candidates) == 0 {
		tr.log.Warn().Msg("no cointegrated pairs this scan")
		return tr.flatten("pair universe empty")
	}
	best, ok := tr.bestBySharpe(m, candidates)
	if !ok {
		return tr.flatten("no candidate backtested cleanly")
	}

	tr.mu.Lock()
	heldPair := tr.pair
	heldPos := tr.position
	tr.mu.Unlock()
	if heldPos != 0 && best.Name() != heldPair.Name() {
		if err := tr.flatten("best pair rotated to " + best.Name()); err != nil {
			return err
		}
		heldPos = 0
	}

	series, err := signals.Generate(m, best, tr.cfg.Signals)
	if err != nil {
		return fmt.Errorf("generate signals for %s: %w", best.Name(), err)
	}
	raws := make([]signals.Raw, len(series.Points))
	for i, pt := range series.Points {
		raws[i] = pt.Raw
	}
	latched := backtest.Latch(raws)
	want := latched[len(latched)-1]

	tr.log.Info().
		Str("pair", best.Name()).
		Int("held", heldPos).
		Int("want", want).
		Float64("z", series.Points[len(series.Points)-1].ZScore).
		Msg("scan reconciled")

	yCol, ok := m.Column(best.Y)
	if !ok {
		return fmt.Errorf("dependent symbol %s missing from matrix", best.Y)
	}
	xCol, ok := m.Column(best.X)
	if !ok {
		return fmt.Errorf("hedge symbol %s missing from matrix", best.X)
	}
	yPx, xPx := yCol[len(yCol)-1], xCol[len(xCol)-1]

	if want != heldPos {
		if heldPos != 0 {
			if err := tr.submitAndFill(best, -heldPos, yPx, xPx); err != nil {
				return fmt.Errorf("close spread: %w", err)
			}
			heldPos = 0
		}
		if want != 0 {
			if !tr.limits.AllowSpread(baseQty, yPx, xPx, best.HedgeRatio) {
				tr.log.Warn().Str("pair", best.Name()).Msg("entry blocked by notional limit")
				want = 0
			} else if err := tr.submitAndFill(best, want, yPx, xPx); err != nil {
				return fmt.Errorf("open spread: %w", err)
			}
		}
	}
	tr.setState(best, want)

	snap := tr.account.Snapshot(map[string]float64{best.Y: yPx, best.X: xPx})
	tr.log.Info().
		Float64("equity", snap.Equity).
		Float64("cash", snap.Cash).
		Float64("realized_pnl", snap.RealizedPnL).
		Msg("account snapshot")
	return nil
}

// submitAndFill routes the spread to the executor and applies the paper fill
// at the latest daily closes.
func (tr *trader) submitAndFill(cand pairs.Candidate, direction int, yPx, xPx float64) error {
	if err := tr.exec.SubmitSpread(cand, direction, baseQty); err != nil {
		return err
	}
	return tr.account.FillSpread(cand, direction, baseQty, yPx, xPx)
}

func (tr *trader) bestBySharpe(m *market.PriceMatrix, candidates []pairs.Candidate) (pairs.Candidate, bool) {
	var best pairs.Candidate
	found := false
	bestSharpe := 0.0
	for _, cand := range candidates {
		series, err := signals.Generate(m, cand, tr.cfg.Signals)
		if err != nil {
			continue
		}
		result, err := backtest.Run(m, cand, series, tr.cfg.Backtest())
		if err != nil {
			continue
		}
		if !found || result.Sharpe > bestSharpe {
			best = cand
			bestSharpe = result.Sharpe
			found = true
		}
	}
	return best, found
}

// flatten closes any held spread at the latest quote marks and clears the
// pair state.
func (tr *trader) flatten(reason string) error {
	tr.mu.Lock()
	pair := tr.pair
	pos := tr.position
	yPx, xPx := tr.marks[pair.Y], tr.marks[pair.X]
	tr.mu.Unlock()
	if pos == 0 {
		return nil
	}
	tr.log.Info().Str("pair", pair.Name()).Str("reason", reason).Msg("flattening position")
	if err := tr.exec.SubmitSpread(pair, -pos, baseQty); err != nil {
		return fmt.Errorf("flatten spread: %w", err)
	}
	if yPx > 0 && xPx > 0 {
		if err := tr.account.FillSpread(pair, -pos, baseQty, yPx, xPx); err != nil {
			return fmt.Errorf("flatten paper fill: %w", err)
		}
	} else {
		tr.log.Warn().Str("pair", pair.Name()).Msg("no quote marks for flatten fill, account position left open")
	}
	tr.setState(pairs.Candidate{}, 0)
	return nil
}

func (tr *trader) setState(pair pairs.Candidate, pos int) {
	tr.mu.Lock()
	tr.pair = pair
	tr.position = pos
	tr.mu.Unlock()
}
