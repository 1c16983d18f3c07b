package main

import (
	"context"
	"flag"
	"math"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"statarb/internal/backtest"
	"statarb/internal/config"
	"statarb/internal/market"
	"statarb/internal/marketdata"
	"statarb/internal/optimize"
	"statarb/internal/pairs"
	"statarb/internal/signals"
	"statarb/internal/stats"
	"statarb/internal/universe"
	"statarb/internal/util"
)

func main() {
	cfgPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	ySym := flag.String("y", "", "dependent symbol (defaults to the top-ranked discovered pair)")
	xSym := flag.String("x", "", "hedge symbol")
	top := flag.Int("top", 10, "number of grid rows to print")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	uni := universe.NewStatic(cfg.Data.Symbols)
	symbols, err := uni.Symbols(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve universe")
	}

	provider, err := marketdata.Open(cfg.Data.Provider, cfg.Data.BaseURL, cfg.AlpacaKey, cfg.AlpacaSecret, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open price provider")
	}
	start, end, err := cfg.Data.Window()
	if err != nil {
		log.Fatal().Err(err).Msg("parse data window")
	}
	m, err := provider.FetchPrices(ctx, symbols, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch prices")
	}

	cand, ok := pickPair(m, cfg, *ySym, *xSym, log)
	if !ok {
		log.Fatal().Msg("no pair to optimize")
	}
	log.Info().Str("pair", cand.Name()).Float64("hedge_ratio", cand.HedgeRatio).Msg("optimizing pair")

	rows := optimize.GridSearch(m, cand, cfg.Grid, cfg.Backtest(), log)
	if len(rows) == 0 {
		log.Fatal().Msg("grid search produced no rows")
	}
	if *top > len(rows) {
		*top = len(rows)
	}
	for i, row := range rows[:*top] {
		log.Info().
			Int("rank", i+1).
			Int("window", row.Window).
			Float64("entry_z", row.EntryZ).
			Float64("exit_z", row.ExitZ).
			Float64("sharpe", row.Sharpe).
			Float64("total_return", row.TotalReturn).
			Int("trades", row.Trades).
			Msg("grid row")
	}
	best := rows[0]
	log.Info().
		Int("window", best.Window).
		Float64("entry_z", best.EntryZ).
		Float64("exit_z", best.ExitZ).
		Float64("sharpe", best.Sharpe).
		Msg("best parameters")
}

// pickPair either re-tests the explicitly requested pair or ranks the
// discovered universe by in-sample Sharpe and takes the winner.
func pickPair(m *market.PriceMatrix, cfg *config.Config, ySym, xSym string, log zerolog.Logger) (pairs.Candidate, bool) {
	if ySym != "" && xSym != "" {
		y, ok := m.Column(ySym)
		if !ok {
			log.Error().Str("symbol", ySym).Msg("dependent symbol not in matrix")
			return pairs.Candidate{}, false
		}
		x, ok := m.Column(xSym)
		if !ok {
			log.Error().Str("symbol", xSym).Msg("hedge symbol not in matrix")
			return pairs.Candidate{}, false
		}
		coint, err := stats.EngleGranger(x, y)
		if err != nil {
			log.Error().Err(err).Msg("cointegration test failed")
			return pairs.Candidate{}, false
		}
		if !coint.Cointegrated {
			log.Warn().Float64("p_value", coint.PValue).Msg("requested pair is not cointegrated, optimizing anyway")
		}
		hl, err := stats.HalfLife(stats.Spread(y, x, coint.HedgeRatio))
		if err != nil {
			log.Error().Err(err).Msg("half-life estimate failed")
			return pairs.Candidate{}, false
		}
		return pairs.Candidate{Y: ySym, X: xSym, HedgeRatio: coint.HedgeRatio, PValue: coint.PValue, HalfLife: hl}, true
	}

	candidates := pairs.Discover(m, cfg.Discovery, log)
	if len(candidates) == 0 {
		return pairs.Candidate{}, false
	}
	best := candidates[0]
	bestSharpe := math.Inf(-1)
	for _, cand := range candidates {
		series, err := signals.Generate(m, cand, cfg.Signals)
		if err != nil {
			continue
		}
		result, err := backtest.Run(m, cand, series, cfg.Backtest())
		if err != nil {
			continue
		}
		if result.Sharpe > bestSharpe {
			best = cand
			bestSharpe = result.Sharpe
		}
	}
	return best, true
}
