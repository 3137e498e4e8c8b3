// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"gaptrader-go/internal/exchange"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// MaxTickMs is the longest scheduler tick that still notices a stop within a second.
const MaxTickMs = 1000

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Strategy selects the signal rule and its knobs.
type Strategy struct {
	Name          string   `yaml:"name"`
	GapThreshold  float64  `yaml:"gap_threshold"`
	VolMultiplier float64  `yaml:"vol_multiplier"`
	LookbackVol   int      `yaml:"lookback_vol"`
	Mode          string   `yaml:"mode"`
	Symbols       []string `yaml:"symbols"`
}

// Risk bounds how many positions a pass may open and how much equity each gets.
type Risk struct {
	MaxPositions  int     `yaml:"max_positions"`
	AllocPerTrade float64 `yaml:"alloc_per_trade"`
}

// Window is the daily interval in which the bot opens positions.
type Window struct {
	Start         string `yaml:"start"`
	End           string `yaml:"end"`
	Location      string `yaml:"location"`
	TickMs        int    `yaml:"tick_ms"`
	RefreshEquity *bool  `yaml:"refresh_equity"`
}

// Broker configures the live venue and its market data.
type Broker struct {
	Provider         string `yaml:"provider"`
	BaseURL          string `yaml:"base_url"`
	DataFeed         string `yaml:"data_feed"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
	RatePerMinute    int    `yaml:"rate_per_minute"`
	DryRun           bool   `yaml:"dry_run"`
}

// Paper captures simulated account settings used by backtests and the paper provider.
type Paper struct {
	StartingCash         float64 `yaml:"starting_cash"`
	CommissionBps        float64 `yaml:"commission_bps"`
	MaxPositionPerSymbol float64 `yaml:"max_position_per_symbol"`
	FillsPath            string  `yaml:"fills_path"`
}

// Data locates the CSV history written by cmd/fetch.
type Data struct {
	Dir   string `yaml:"dir"`
	Start string `yaml:"start"`
}

// Journal is the SQLite file for fills and errors; empty disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Console configures operator input.
type Console struct {
	UrgentToken string `yaml:"urgent_token"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
	Window   Window   `yaml:"window"`
	Broker   Broker   `yaml:"broker"`
	Paper    Paper    `yaml:"paper"`
	Data     Data     `yaml:"data"`
	Journal  Journal  `yaml:"journal"`
	Console  Console  `yaml:"console"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	setString(&c.App.Name, "gaptrader")
	setString(&c.App.Env, "paper")
	setString(&c.App.LogLevel, "info")

	setString(&c.Strategy.Name, "gap")
	setFloat(&c.Strategy.GapThreshold, 0.02)
	setFloat(&c.Strategy.VolMultiplier, 1.5)
	if c.Strategy.LookbackVol <= 0 {
		c.Strategy.LookbackVol = 20
	}
	setString(&c.Strategy.Mode, "revert")

	if c.Risk.MaxPositions <= 0 {
		c.Risk.MaxPositions = 3
	}
	setFloat(&c.Risk.AllocPerTrade, 0.25)

	setString(&c.Window.Start, "03:50")
	setString(&c.Window.End, "04:00")
	setString(&c.Window.Location, "Local")
	if c.Window.TickMs <= 0 {
		c.Window.TickMs = 1000
	}
	if c.Window.RefreshEquity == nil {
		refresh := true
		c.Window.RefreshEquity = &refresh
	}

	setString(&c.Broker.Provider, "alpaca")
	setString(&c.Broker.BaseURL, "https://paper-api.alpaca.markets")
	setString(&c.Broker.DataFeed, "iex")
	if c.Broker.RequestTimeoutMs <= 0 {
		c.Broker.RequestTimeoutMs = 10_000
	}
	if c.Broker.RatePerMinute <= 0 {
		c.Broker.RatePerMinute = 180
	}

	setFloat(&c.Paper.StartingCash, 100_000)
	setString(&c.Paper.FillsPath, "data/fills.jsonl")
	setString(&c.Data.Dir, "data")
	setString(&c.Data.Start, "2015-01-01")
	setString(&c.Console.UrgentToken, "now")
}

// Validate reports every problem joined under ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if c.Strategy.GapThreshold <= 0 {
		bad("strategy.gap_threshold must be positive")
	}
	if c.Strategy.VolMultiplier <= 0 {
		bad("strategy.vol_multiplier must be positive")
	}
	switch strings.ToLower(c.Strategy.Mode) {
	case "revert", "momentum", "both":
	default:
		bad("strategy.mode %q is not revert, momentum or both", c.Strategy.Mode)
	}
	if c.Risk.AllocPerTrade <= 0 || c.Risk.AllocPerTrade > 1 {
		bad("risk.alloc_per_trade %.4f is outside (0, 1]", c.Risk.AllocPerTrade)
	}
	for _, clock := range []string{c.Window.Start, c.Window.End} {
		if _, err := time.Parse("15:04", clock); err != nil {
			bad("window bound %q is not HH:MM", clock)
		}
	}
	if c.Window.Start == c.Window.End {
		bad("window start and end are equal")
	}
	if _, err := c.Location(); err != nil {
		bad("window.location: %v", err)
	}
	if c.Window.TickMs > MaxTickMs {
		bad("window.tick_ms %d exceeds %d; the stop flag must be checked every second", c.Window.TickMs, MaxTickMs)
	}
	switch strings.ToLower(c.Broker.Provider) {
	case exchange.ProviderAlpaca, exchange.ProviderPaper:
	default:
		bad("broker.provider %q is not alpaca or paper", c.Broker.Provider)
	}
	if c.Paper.CommissionBps < 0 {
		bad("paper.commission_bps must not be negative")
	}
	if _, err := time.Parse("2006-01-02", c.Data.Start); err != nil {
		bad("data.start %q is not YYYY-MM-DD", c.Data.Start)
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are accepted but probably not what was meant.
func (c *Config) Warnings() []string {
	var out []string
	if strings.EqualFold(c.Strategy.Mode, "both") {
		out = append(out, `strategy.mode "both" trades with the revert mapping`)
	}
	if c.Broker.DryRun && strings.EqualFold(c.Broker.Provider, exchange.ProviderPaper) {
		out = append(out, "broker.dry_run has no effect with the paper provider")
	}
	return out
}

// Location resolves window.location.
func (c *Config) Location() (*time.Location, error) {
	if c.Window.Location == "" || strings.EqualFold(c.Window.Location, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Window.Location)
}

// Tick is the scheduler sleep granularity.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Window.TickMs) * time.Millisecond
}

// RequestTimeout bounds every broker and data call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Broker.RequestTimeoutMs) * time.Millisecond
}

// Load reads a YAML file from disk, hydrates a Config struct and applies defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
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

func setString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}
