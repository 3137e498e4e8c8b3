package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "gaptrader-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9101" {
		t.Fatalf("unexpected metrics addr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Strategy.GapThreshold != 0.03 || cfg.Strategy.VolMultiplier != 2 || cfg.Strategy.LookbackVol != 10 {
		t.Fatalf("unexpected strategy knobs: %+v", cfg.Strategy)
	}
	if cfg.Strategy.Mode != "momentum" {
		t.Fatalf("unexpected mode: %s", cfg.Strategy.Mode)
	}
	if len(cfg.Strategy.Symbols) != 2 || cfg.Strategy.Symbols[1] != "QQQ" {
		t.Fatalf("unexpected symbols: %+v", cfg.Strategy.Symbols)
	}
	if cfg.Risk.MaxPositions != 5 || cfg.Risk.AllocPerTrade != 0.1 {
		t.Fatalf("unexpected risk: %+v", cfg.Risk)
	}
	if cfg.Window.Start != "15:50" || cfg.Tick() != 500*time.Millisecond {
		t.Fatalf("unexpected window: %+v", cfg.Window)
	}
	if *cfg.Window.RefreshEquity {
		t.Fatalf("expected refresh_equity false to survive defaults")
	}
	if cfg.Broker.Provider != "paper" || cfg.Broker.RatePerMinute != 60 {
		t.Fatalf("unexpected broker: %+v", cfg.Broker)
	}
	if cfg.Broker.RequestTimeoutMs != 10_000 {
		t.Fatalf("expected default timeout, got %d", cfg.Broker.RequestTimeoutMs)
	}
	if cfg.Paper.StartingCash != 5000 || cfg.Paper.CommissionBps != 2 {
		t.Fatalf("unexpected paper: %+v", cfg.Paper)
	}
	if cfg.Console.UrgentToken != "now" {
		t.Fatalf("expected default urgent token, got %q", cfg.Console.UrgentToken)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Fatalf("unexpected location %v (%v)", loc, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Strategy.GapThreshold != 0.02 || cfg.Strategy.VolMultiplier != 1.5 || cfg.Strategy.LookbackVol != 20 {
		t.Fatalf("unexpected strategy defaults: %+v", cfg.Strategy)
	}
	if cfg.Risk.MaxPositions != 3 || cfg.Risk.AllocPerTrade != 0.25 {
		t.Fatalf("unexpected risk defaults: %+v", cfg.Risk)
	}
	if cfg.Strategy.Mode != "revert" || cfg.Window.Start != "03:50" || cfg.Window.End != "04:00" {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Strategy, cfg.Window)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateJoinsProblems(t *testing.T) {
	cfg := Default()
	cfg.Strategy.Mode = "sideways"
	cfg.Window.End = "4pm"
	cfg.Risk.AllocPerTrade = 2
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 3 {
		t.Fatalf("expected three problems, got %v", err)
	}
}

func TestValidateRejectsSlowTick(t *testing.T) {
	cfg := Default()
	cfg.Window.TickMs = 60_000
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a one minute tick to be rejected, got %v", err)
	}
	cfg.Window.TickMs = MaxTickMs
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a one second tick to pass, got %v", err)
	}
}

func TestWarningsFlagBothMode(t *testing.T) {
	cfg := Default()
	if len(cfg.Warnings()) != 0 {
		t.Fatalf("expected no warnings by default")
	}
	cfg.Strategy.Mode = "both"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("both should be accepted: %v", err)
	}
	if len(cfg.Warnings()) != 1 {
		t.Fatalf("expected a warning for both mode")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Risk.MaxPositions = 7
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Risk.MaxPositions != 7 {
		t.Fatalf("expected 7 max positions, got %d", loaded.Risk.MaxPositions)
	}
}
