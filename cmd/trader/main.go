package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gaptrader-go/internal/broker/alpaca"
	"gaptrader-go/internal/config"
	"gaptrader-go/internal/console"
	"gaptrader-go/internal/engine"
	"gaptrader-go/internal/exchange"
	"gaptrader-go/internal/execution"
	"gaptrader-go/internal/journal"
	"gaptrader-go/internal/metrics"
	"gaptrader-go/internal/paper"
	"gaptrader-go/internal/risk"
	"gaptrader-go/internal/signal"
	"gaptrader-go/internal/strategy"
	"gaptrader-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	envFile := flag.String("env-file", ".env", "dotenv file with broker credentials")
	jsonLogs := flag.Bool("json", false, "log JSON instead of console text")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewConsoleLogger(cfg.App.LogLevel, os.Stdout)
	if *jsonLogs {
		log = util.NewLogger(cfg.App.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config rejected")
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	if err := run(cfg, *envFile, log); err != nil {
		log.Fatal().Err(err).Msg("trader stopped")
	}
}

func run(cfg *config.Config, envFile string, log zerolog.Logger) error {
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if srv := metrics.Serve(cfg.App.MetricsAddr); srv != nil {
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
		defer srv.Close()
	}

	var observers []engine.ErrorObserver
	var recorders []paper.FillRecorder
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path, log)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		observers = append(observers, store)
		recorders = append(recorders, store)
	}
	state := engine.NewState(observers...)

	venue, bars, closeVenue, err := buildVenue(cfg, envFile, recorders, log)
	if err != nil {
		return err
	}
	defer closeVenue()
	bars = exchange.NewLimited(bars, cfg.Broker.RatePerMinute, cfg.RequestTimeout())

	params := strategy.Params{
		GapThreshold:  cfg.Strategy.GapThreshold,
		VolMultiplier: cfg.Strategy.VolMultiplier,
		LookbackVol:   cfg.Strategy.LookbackVol,
	}
	strat, err := strategy.Build(cfg.Strategy.Name, params)
	if err != nil {
		return err
	}
	mode, err := execution.ParseMode(cfg.Strategy.Mode)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	window, err := engine.NewTradingWindow(cfg.Window.Start, cfg.Window.End, loc)
	if err != nil {
		return err
	}

	router := execution.NewRouter(venue, mode, state, log)
	sched := engine.NewScheduler(venue, bars, strat, router, state, engine.Options{
		Window:        window,
		Limits:        risk.Limits{MaxPositions: cfg.Risk.MaxPositions, AllocPerTrade: cfg.Risk.AllocPerTrade},
		Tick:          cfg.Tick(),
		RefreshEquity: *cfg.Window.RefreshEquity,
		Symbols:       exchange.NormalizeSymbols(cfg.Strategy.Symbols),
	}, log)

	coord := console.NewCoordinator(os.Stdin, os.Stdout, state, cfg.Console.UrgentToken, os.Exit, log)
	coord.Prompt()
	log.Info().
		Str("strategy", strat.Name()).
		Str("mode", string(mode.AliasOf())).
		Str("provider", cfg.Broker.Provider).
		Bool("dry_run", cfg.Broker.DryRun).
		Msg("trader started")

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stopConsole := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopConsole()
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return coord.Run(loopCtx)
	})
	err = g.Wait()
	if errs := state.Errors(); len(errs) > 0 {
		log.Warn().Int("errors", len(errs)).Msg("run finished with recorded errors")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildVenue returns the order venue, the bar source and a cleanup func for the configured provider.
func buildVenue(cfg *config.Config, envFile string, recorders []paper.FillRecorder, log zerolog.Logger) (execution.Venue, exchange.BarSource, func(), error) {
	switch strings.ToLower(cfg.Broker.Provider) {
	case exchange.ProviderPaper:
		store := exchange.NewCSVStore(cfg.Data.Dir)
		symbols := exchange.NormalizeSymbols(cfg.Strategy.Symbols)
		if len(symbols) == 0 {
			found, err := store.Symbols()
			if err != nil {
				return nil, nil, nil, err
			}
			symbols = found
		}
		account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Paper.MaxPositionPerSymbol)
		account.SetFeeRate(cfg.Paper.CommissionBps / 10_000)
		ledger := paper.NewLedger()
		recorders = append(recorders, ledger)
		closeFills := func() {}
		if cfg.Paper.FillsPath != "" {
			rec, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("open fills file: %w", err)
			}
			recorders = append(recorders, rec)
			closeFills = func() { _ = rec.Close() }
		}
		venue := paper.NewVenue(account, symbols, recorders...)
		cleanup := func() {
			logTurnover(log, ledger, account)
			closeFills()
		}
		return venue, markingSource{inner: store, venue: venue}, cleanup, nil

	case exchange.ProviderAlpaca:
		creds, err := alpaca.LoadCredentials(cfg.Broker.BaseURL, envFile)
		if err != nil {
			return nil, nil, nil, err
		}
		timeout := cfg.RequestTimeout()
		var venue execution.Venue = alpaca.NewBroker(alpaca.NewClient(creds, timeout))
		if cfg.Broker.DryRun {
			venue = execution.NewDryRun(venue, log)
		}
		bars := alpaca.NewBars(alpaca.NewMarketDataClient(creds, cfg.Broker.DataFeed, timeout))
		return venue, bars, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown broker provider %q", cfg.Broker.Provider)
	}
}

// logTurnover reports what the paper session traded, one line per symbol.
func logTurnover(log zerolog.Logger, ledger *paper.Ledger, account *paper.Account) {
	for _, t := range ledger.Turnover() {
		log.Info().
			Str("sym", t.Symbol).
			Int("buys", t.Buys).
			Int("sells", t.Sells).
			Float64("shares", t.Shares).
			Float64("notional", t.Notional).
			Float64("fees", t.Fees).
			Msg("paper turnover")
	}
	total := ledger.Total()
	log.Info().
		Int("fills", total.Buys+total.Sells).
		Float64("notional", total.Notional).
		Float64("fees", total.Fees).
		Float64("realized_pnl", account.RealizedPnL()).
		Msg("paper session summary")
}

// markingSource moves the paper venue's marks to the latest close it serves.
type markingSource struct {
	inner exchange.BarSource
	venue *paper.Venue
}

func (m markingSource) History(ctx context.Context, symbol string, n int) ([]signal.Bar, error) {
	bars, err := m.inner.History(ctx, symbol, n)
	if err == nil && len(bars) > 0 {
		m.venue.SetMark(symbol, bars[len(bars)-1].Close)
	}
	return bars, err
}
