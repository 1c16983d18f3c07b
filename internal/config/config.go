// Package config exposes strongly typed application configuration loaded from
// YAML, with named defaults for every analytics knob so component calls never
// depend on mutable globals.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"statarb/internal/backtest"
	"statarb/internal/optimize"
	"statarb/internal/pairs"
	"statarb/internal/risk"
	"statarb/internal/signals"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Data describes where the price matrix comes from.
type Data struct {
	Provider string   `yaml:"provider"` // "stub" or "alpaca"
	BaseURL  string   `yaml:"base_url"`
	Symbols  []string `yaml:"symbols"`
	Start    string   `yaml:"start"` // YYYY-MM-DD
	End      string   `yaml:"end"`   // empty means today
}

// Trader configures the scheduled paper-trading loop.
type Trader struct {
	ScanIntervalMinutes int     `yaml:"scan_interval_minutes"`
	QuoteProvider       string  `yaml:"quote_provider"` // "stub" or "binance"
	StartingCash        float64 `yaml:"starting_cash"`
	FillsPath           string  `yaml:"fills_path"`
}

// Report configures CSV export paths.
type Report struct {
	SummaryPath string `yaml:"summary_path"`
	TradesPath  string `yaml:"trades_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App            `yaml:"app"`
	Data      Data           `yaml:"data"`
	Discovery pairs.Config   `yaml:"discovery"`
	Signals   signals.Params `yaml:"signals"`
	Costs     backtest.Costs `yaml:"costs"`
	Sizing    risk.Sizing    `yaml:"sizing"`
	Grid      optimize.Grid  `yaml:"grid"`
	Risk      risk.Limits    `yaml:"risk"`
	Trader    Trader         `yaml:"trader"`
	Report    Report         `yaml:"report"`

	// Credentials come from the environment, never from YAML.
	AlpacaKey    string `yaml:"-"`
	AlpacaSecret string `yaml:"-"`
}

// Default returns the full configuration with every named default applied.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "statarb",
			Env:         "dev",
			MetricsAddr: ":9109",
			LogLevel:    "info",
		},
		Data: Data{
			Provider: "stub",
			Symbols:  []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA", "TSLA", "META", "UNH", "JNJ", "XOM"},
			Start:    "2023-01-01",
		},
		Discovery: pairs.DefaultConfig(),
		Signals:   signals.DefaultParams(),
		Costs:     backtest.DefaultCosts(),
		Sizing:    risk.DefaultSizing(),
		Grid:      optimize.DefaultGrid(),
		Risk:      risk.Limits{MaxNotionalPerTrade: 50000},
		Trader: Trader{
			ScanIntervalMinutes: 60,
			QuoteProvider:       "stub",
			StartingCash:        100000,
			FillsPath:           "out/fills.jsonl",
		},
		Report: Report{
			SummaryPath: "out/backtest_results.csv",
			TradesPath:  "out/detailed_trades.csv",
		},
	}
}

// Window parses the configured date range. An empty end means today.
func (d Data) Window() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", d.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse data.start: %w", err)
	}
	if d.End == "" {
		return start, time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	end, err = time.Parse("2006-01-02", d.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse data.end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("data.end %s not after data.start %s", d.End, d.Start)
	}
	return start, end, nil
}

// Backtest assembles the engine configuration from the loaded leaves.
func (c *Config) Backtest() backtest.Config {
	return backtest.Config{Costs: c.Costs, Sizing: c.Sizing}
}

// Load reads a YAML file over the defaults and pulls API credentials from the
// environment (a .env file is honored best-effort).
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	_ = godotenv.Load() // best-effort
	cfg.AlpacaKey = os.Getenv("APCA_API_KEY_ID")
	cfg.AlpacaSecret = os.Getenv("APCA_API_SECRET_KEY")

	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
