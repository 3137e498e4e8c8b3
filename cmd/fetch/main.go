package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"gaptrader-go/internal/broker/alpaca"
	"gaptrader-go/internal/config"
	"gaptrader-go/internal/exchange"
	"gaptrader-go/internal/util"
)

const defaultTickers = "SPY,HIMS,SMR,NBIS,QQQ,OMEX,AMBA,PTNM,AAPL,MSFT,V,NVDA,TSLA,VTI,HOOD"

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	tickers := flag.String("tickers", defaultTickers, "comma separated tickers")
	start := flag.String("start", "", "first date YYYY-MM-DD (default data.start)")
	dataDir := flag.String("data-dir", "", "output directory (default data.dir)")
	envFile := flag.String("env-file", ".env", "dotenv file with broker credentials")
	flag.Parse()

	log := util.NewConsoleLogger("info", os.Stderr)
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
		log.Warn().Err(err).Msg("using default config")
	}
	if *start != "" {
		cfg.Data.Start = *start
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	from, err := time.Parse("2006-01-02", cfg.Data.Start)
	if err != nil {
		log.Fatal().Err(err).Msg("bad start date")
	}

	creds, err := alpaca.LoadCredentials(cfg.Broker.BaseURL, *envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("credentials")
	}
	bars := alpaca.NewBars(alpaca.NewMarketDataClient(creds, cfg.Broker.DataFeed, cfg.RequestTimeout()))
	store := exchange.NewCSVStore(cfg.Data.Dir)

	ctx := context.Background()
	failed := 0
	for _, sym := range exchange.NormalizeSymbols(strings.Split(*tickers, ",")) {
		got, err := bars.Range(ctx, sym, from, time.Now())
		if err == nil && len(got) == 0 {
			err = exchange.ErrNoData
		}
		if err == nil {
			err = store.Save(sym, got)
		}
		if err != nil {
			failed++
			log.Error().Err(err).Str("sym", sym).Msg("fetch failed")
			continue
		}
		log.Info().Str("sym", sym).Int("bars", len(got)).Str("path", store.Path(sym)).Msg("saved")
	}
	if failed > 0 {
		os.Exit(1)
	}
}
