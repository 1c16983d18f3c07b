package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"sort"
	"syscall"

	"statarb/internal/backtest"
	"statarb/internal/config"
	"statarb/internal/marketdata"
	"statarb/internal/metrics"
	"statarb/internal/pairs"
	"statarb/internal/report"
	"statarb/internal/signals"
	"statarb/internal/universe"
	"statarb/internal/util"
)

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
	log.Info().Int("symbols", len(m.Symbols())).Int("rows", m.Len()).Msg("price matrix loaded")

	candidates := pairs.Discover(m, cfg.Discovery, log)
	if len(candidates) == 0 {
		log.Warn().Msg("no cointegrated pairs found")
		return
	}

	summaries := make([]report.PairSummary, 0, len(candidates))
	for _, cand := range candidates {
		series, err := signals.Generate(m, cand, cfg.Signals)
		if err != nil {
			log.Error().Err(err).Str("pair", cand.Name()).Msg("generate signals")
			continue
		}
		result, err := backtest.Run(m, cand, series, cfg.Backtest())
		if err != nil {
			log.Error().Err(err).Str("pair", cand.Name()).Msg("backtest")
			continue
		}
		log.Info().
			Str("pair", cand.Name()).
			Float64("hedge_ratio", cand.HedgeRatio).
			Float64("p_value", cand.PValue).
			Float64("half_life", cand.HalfLife).
			Float64("total_return", result.TotalReturn).
			Float64("sharpe", result.Sharpe).
			Int("trades", len(result.Trades)).
			Msg("pair backtested")
		summaries = append(summaries, report.PairSummary{Pair: cand, Result: result})
	}
	if len(summaries) == 0 {
		log.Warn().Msg("no pairs survived backtesting")
		return
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Result.Sharpe > summaries[j].Result.Sharpe
	})

	if err := report.WriteSummary(cfg.Report.SummaryPath, summaries); err != nil {
		log.Fatal().Err(err).Msg("write summary csv")
	}
	if err := report.WriteTrades(cfg.Report.TradesPath, summaries); err != nil {
		log.Fatal().Err(err).Msg("write trades csv")
	}
	log.Info().
		Str("summary", cfg.Report.SummaryPath).
		Str("trades", cfg.Report.TradesPath).
		Int("pairs", len(summaries)).
		Msg("scan complete")
}
