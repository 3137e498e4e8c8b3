// Package backtest replays daily bars through the gap strategy against the paper venue.
package backtest

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"gaptrader-go/internal/engine"
	"gaptrader-go/internal/execution"
	"gaptrader-go/internal/paper"
	"gaptrader-go/internal/risk"
	"gaptrader-go/internal/signal"
	"gaptrader-go/internal/strategy"
)

// Config holds the simulation knobs.
type Config struct {
	StartingCash  float64
	CommissionBps float64
	Limits        risk.Limits
	Mode          execution.Mode
}

// DefaultConfig mirrors the research settings: 100k cash and 1bp per fill.
func DefaultConfig() Config {
	return Config{
		StartingCash:  100_000,
		CommissionBps: 1,
		Limits:        risk.Limits{MaxPositions: 3, AllocPerTrade: 0.25},
		Mode:          execution.ModeRevert,
	}
}

// Trade is one round trip: entry at an open, exit at the following open.
type Trade struct {
	Symbol     string
	Side       execution.Side
	Qty        int64
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	PnL        float64 // after commission
}

// EquityPoint is the marked account value at a bar close.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Result summarizes a run.
type Result struct {
	StartingCash   float64
	FinalEquity    float64
	ReturnPct      float64
	Trades         []Trade
	Wins           int
	Losses         int
	WinRate        float64
	MaxDrawdownPct float64
	ExposureDays   int
	Fees           float64
	OrderErrors    int
	EquityCurve    []EquityPoint
	Turnover       []paper.Turnover
}

// Runner executes backtests with one strategy.
type Runner struct {
	cfg   Config
	strat strategy.Strategy
	log   zerolog.Logger
}

// NewRunner builds a runner.
func NewRunner(cfg Config, strat strategy.Strategy, log zerolog.Logger) *Runner {
	if cfg.StartingCash <= 0 {
		cfg.StartingCash = DefaultConfig().StartingCash
	}
	return &Runner{cfg: cfg, strat: strat, log: log}
}

type openTrade struct {
	side  execution.Side
	qty   int64
	price float64
	at    time.Time
}

// Run trades every symbol in data as one portfolio. Signals are decided on each close and
// filled at the next session's open; every position is closed at the open after entry.
func (r *Runner) Run(ctx context.Context, data map[string][]signal.Bar) (Result, error) {
	if len(data) == 0 {
		return Result{}, errors.New("no bar data")
	}
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	account := paper.NewAccount(r.cfg.StartingCash, 0)
	rate := r.cfg.CommissionBps / 10_000
	account.SetFeeRate(rate)
	ledger := paper.NewLedger()
	venue := paper.NewVenue(account, symbols, ledger)
	state := engine.NewState()
	router := execution.NewRouter(venue, r.cfg.Mode, state, r.log)

	dates, index := calendar(data)
	open := make(map[string]openTrade)
	var pending []signal.SizedSignal
	res := Result{StartingCash: r.cfg.StartingCash}

	for _, day := range dates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		today := make(map[string]signal.Bar)
		for _, sym := range symbols {
			if i, ok := index[sym][day]; ok {
				today[sym] = data[sym][i]
			}
		}

		// Open: unwind yesterday's positions, then fill yesterday's decisions.
		opens := make(map[string]float64, len(today))
		for sym, bar := range today {
			opens[sym] = bar.Open
		}
		venue.SetMarks(opens)
		for _, sym := range symbols {
			entry, held := open[sym]
			bar, ok := today[sym]
			if !held || !ok {
				continue
			}
			if err := venue.ClosePosition(ctx, sym); err != nil {
				state.Record(engine.KindLiquidation, sym, err)
				continue
			}
			res.Trades = append(res.Trades, closeTrade(sym, entry, bar, rate))
			delete(open, sym)
		}
		if len(pending) > 0 {
			equity, _ := venue.Equity(ctx)
			for _, sized := range pending {
				bar, ok := today[sized.Symbol]
				if !ok || bar.Open <= 0 {
					continue
				}
				sized.Price = bar.Open
				order, err := router.Place(ctx, sized, equity)
				if err != nil {
					continue
				}
				open[sized.Symbol] = openTrade{side: order.Side, qty: order.Qty, price: bar.Open, at: bar.Ts}
			}
			pending = nil
		}
		if len(open) > 0 {
			res.ExposureDays++
		}

		// Close: mark, then decide for the next open.
		closes := make(map[string]float64, len(today))
		for sym, bar := range today {
			closes[sym] = bar.Close
		}
		venue.SetMarks(closes)
		equity, _ := venue.Equity(ctx)
		res.EquityCurve = append(res.EquityCurve, EquityPoint{Timestamp: day, Equity: equity})

		var signals []signal.Signal
		for _, sym := range symbols {
			i, ok := index[sym][day]
			if !ok {
				continue
			}
			prior := data[sym][max(0, i-r.strat.Lookback()):i]
			if sig := r.strat.Evaluate(data[sym][i], prior); sig != nil {
				signals = append(signals, *sig)
			}
		}
		pending = strategy.RankAndSize(signals, r.cfg.Limits)
	}

	// Anything still open is valued at the last close.
	if len(dates) > 0 {
		last := dates[len(dates)-1]
		for _, sym := range symbols {
			entry, held := open[sym]
			if !held {
				continue
			}
			i := len(data[sym]) - 1
			bar := data[sym][i]
			exit := signal.Bar{Open: bar.Close, Ts: last}
			if err := venue.ClosePosition(ctx, sym); err != nil {
				state.Record(engine.KindLiquidation, sym, err)
				continue
			}
			res.Trades = append(res.Trades, closeTrade(sym, entry, exit, rate))
		}
	}

	res.FinalEquity, _ = venue.Equity(ctx)
	res.ReturnPct = (res.FinalEquity/res.StartingCash - 1) * 100
	res.Fees = account.Fees()
	res.OrderErrors = len(state.Errors())
	res.Turnover = ledger.Turnover()
	for _, t := range res.Trades {
		if t.PnL > 0 {
			res.Wins++
		} else {
			res.Losses++
		}
	}
	if n := len(res.Trades); n > 0 {
		res.WinRate = float64(res.Wins) / float64(n) * 100
	}
	res.MaxDrawdownPct = MaxDrawdown(res.EquityCurve)
	return res, nil
}

// RunEach backtests every symbol on its own, as separate accounts.
func (r *Runner) RunEach(ctx context.Context, data map[string][]signal.Bar) (map[string]Result, error) {
	out := make(map[string]Result, len(data))
	for sym, bars := range data {
		res, err := r.Run(ctx, map[string][]signal.Bar{sym: bars})
		if err != nil {
			return out, err
		}
		out[sym] = res
	}
	return out, nil
}

func closeTrade(sym string, entry openTrade, exit signal.Bar, rate float64) Trade {
	dir := 1.0
	if entry.side == execution.Sell {
		dir = -1.0
	}
	qty := float64(entry.qty)
	gross := (exit.Open - entry.price) * qty * dir
	fees := (entry.price + exit.Open) * qty * rate
	return Trade{
		Symbol:     sym,
		Side:       entry.side,
		Qty:        entry.qty,
		EntryTime:  entry.at,
		ExitTime:   exit.Ts,
		EntryPrice: entry.price,
		ExitPrice:  exit.Open,
		PnL:        gross - fees,
	}
}

// calendar returns every session date across data and a per-symbol date lookup.
func calendar(data map[string][]signal.Bar) ([]time.Time, map[string]map[time.Time]int) {
	seen := make(map[time.Time]struct{})
	index := make(map[string]map[time.Time]int, len(data))
	for sym, bars := range data {
		idx := make(map[time.Time]int, len(bars))
		for i, b := range bars {
			day := sessionDay(b.Ts)
			idx[day] = i
			seen[day] = struct{}{}
		}
		index[sym] = idx
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, index
}

func sessionDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MaxDrawdown returns the largest peak-to-trough fall of the curve in percent.
func MaxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	worst := 0.0
	for _, p := range curve {
		peak = math.Max(peak, p.Equity)
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Equity) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}
