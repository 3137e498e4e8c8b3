package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"gaptrader-go/internal/backtest"
	"gaptrader-go/internal/config"
	"gaptrader-go/internal/exchange"
	"gaptrader-go/internal/execution"
	"gaptrader-go/internal/risk"
	"gaptrader-go/internal/signal"
	"gaptrader-go/internal/strategy"
	"gaptrader-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	tickers := flag.String("tickers", "", "comma separated tickers (default: every CSV in the data dir)")
	dataDir := flag.String("data-dir", "", "directory with data_<TICKER>.csv files")
	perSymbol := flag.Bool("per-symbol", false, "backtest each ticker on its own account")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
		fmt.Fprintf(os.Stderr, "using defaults: %v\n", err)
	}
	log := util.NewConsoleLogger("warn", os.Stderr)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config rejected")
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	store := exchange.NewCSVStore(cfg.Data.Dir)
	symbols := exchange.NormalizeSymbols(strings.Split(*tickers, ","))
	if len(symbols) == 0 {
		if symbols, err = store.Symbols(); err != nil {
			log.Fatal().Err(err).Msg("list data files")
		}
	}
	data := make(map[string][]signal.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := store.Load(sym)
		if err != nil {
			log.Warn().Err(err).Str("sym", sym).Msg("skipping ticker")
			continue
		}
		data[sym] = bars
	}
	if len(data) == 0 {
		log.Fatal().Str("dir", cfg.Data.Dir).Msg("no data loaded, run cmd/fetch first")
	}

	strat, err := strategy.Build(cfg.Strategy.Name, strategy.Params{
		GapThreshold:  cfg.Strategy.GapThreshold,
		VolMultiplier: cfg.Strategy.VolMultiplier,
		LookbackVol:   cfg.Strategy.LookbackVol,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy")
	}
	mode, err := execution.ParseMode(cfg.Strategy.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("parse mode")
	}
	runner := backtest.NewRunner(backtest.Config{
		StartingCash:  cfg.Paper.StartingCash,
		CommissionBps: cfg.Paper.CommissionBps,
		Limits:        risk.Limits{MaxPositions: cfg.Risk.MaxPositions, AllocPerTrade: cfg.Risk.AllocPerTrade},
		Mode:          mode,
	}, strat, log)

	ctx := context.Background()
	results := map[string]backtest.Result{}
	if *perSymbol {
		if results, err = runner.RunEach(ctx, data); err != nil {
			log.Fatal().Err(err).Msg("backtest failed")
		}
	} else {
		res, err := runner.Run(ctx, data)
		if err != nil {
			log.Fatal().Err(err).Msg("backtest failed")
		}
		results["PORTFOLIO"] = res
	}
	printResults(results)
}

func printResults(results map[string]backtest.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRETURN %\tFINAL EQUITY\tTRADES\tWIN RATE %\tMAX DD %\tEXPOSURE DAYS\tFEES")
	for _, name := range names {
		r := results[name]
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%d\t%.1f\t%.2f\t%d\t%.2f\n",
			name, r.ReturnPct, r.FinalEquity, len(r.Trades), r.WinRate, r.MaxDrawdownPct, r.ExposureDays, r.Fees)
	}
	_ = w.Flush()

	for _, name := range names {
		turnover := results[name].Turnover
		if len(turnover) == 0 {
			continue
		}
		fmt.Printf("\n%s turnover\n", name)
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tBUYS\tSELLS\tSHARES\tNOTIONAL\tFEES")
		for _, t := range turnover {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.0f\t%.2f\t%.2f\n", t.Symbol, t.Buys, t.Sells, t.Shares, t.Notional, t.Fees)
		}
		_ = w.Flush()
	}
}
