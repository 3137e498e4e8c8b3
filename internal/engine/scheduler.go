package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gaptrader-go/internal/exchange"
	"gaptrader-go/internal/execution"
	"gaptrader-go/internal/metrics"
	"gaptrader-go/internal/risk"
	"gaptrader-go/internal/signal"
	"gaptrader-go/internal/strategy"
)

const (
	// maxTick is the default and the upper bound for Options.Tick.
	maxTick = time.Second
	// fatalBackoff spaces out retries after an iteration panics outside the window.
	fatalBackoff = time.Minute
)

// Options tune the scheduler.
type Options struct {
	Window TradingWindow
	Limits risk.Limits
	// Tick bounds how long a sleep may go without checking the stop flag.
	// Values above one second are capped.
	Tick time.Duration
	// RefreshEquity re-reads account equity at the start of every pass.
	RefreshEquity bool
	// Symbols restricts the universe to these tickers, in this order, when non-empty.
	Symbols []string
}

// PassReport summarizes one inside-window pass.
type PassReport struct {
	Equity    float64
	Evaluated int
	Signals   []signal.Signal
	Orders    []execution.Order
}

// Scheduler alternates between liquidating outside the trading window and running
// one signal pass per window occurrence.
type Scheduler struct {
	venue  execution.Venue
	bars   exchange.BarSource
	strat  strategy.Strategy
	router *execution.Router
	state  *State
	opts   Options
	log    zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	universe      []string
	equity        float64
	lastPass      time.Time
	lastCountdown time.Time
}

// NewScheduler wires the loop's collaborators.
func NewScheduler(venue execution.Venue, bars exchange.BarSource, strat strategy.Strategy, router *execution.Router, state *State, opts Options, log zerolog.Logger) *Scheduler {
	if opts.Tick <= 0 || opts.Tick > maxTick {
		opts.Tick = maxTick
	}
	return &Scheduler{
		venue:  venue,
		bars:   bars,
		strat:  strat,
		router: router,
		state:  state,
		opts:   opts,
		log:    log,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Run loads the universe and equity, then loops until a stop is requested or ctx ends.
// Only startup failures are returned; everything after is recorded on State.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	for {
		if s.stopping(ctx) {
			s.log.Info().Msg("stop requested, leaving trading loop")
			return nil
		}
		s.iterate(ctx)
	}
}

// Init fetches the tradable universe and starting equity.
func (s *Scheduler) Init(ctx context.Context) error {
	tradable, err := s.venue.Tradable(ctx)
	if err != nil {
		return fmt.Errorf("load tradable assets: %w", err)
	}
	s.universe = restrict(tradable, s.opts.Symbols)
	if len(s.universe) == 0 {
		return errors.New("no tradable and shortable symbols")
	}
	equity, err := s.venue.Equity(ctx)
	if err != nil {
		return fmt.Errorf("load equity: %w", err)
	}
	s.equity = equity
	s.log.Info().
		Float64("equity", equity).
		Int("symbols", len(s.universe)).
		Str("window", s.opts.Window.String()).
		Msgf("starting equity $%.2f across %d symbols", equity, len(s.universe))
	return nil
}

func (s *Scheduler) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.state.Record(KindLoopFatal, "", fmt.Errorf("panic: %v", r))
			s.log.Error().Interface("panic", r).Msg("trading loop iteration failed")
			s.backoff(ctx)
		}
	}()

	now := s.now()
	start, end, inside := s.opts.Window.Instance(now)
	switch {
	case inside && !start.Equal(s.lastPass):
		metrics.InsideWindow.Set(1)
		s.lastPass = start
		s.log.Info().Time("now", now).Msg("inside trading window, running pass")
		s.RunPass(ctx)
		s.sleepUntil(ctx, end)
	case inside:
		s.sleepUntil(ctx, now.Add(s.opts.Tick))
	default:
		metrics.InsideWindow.Set(0)
		s.log.Info().Time("now", now).Msg("outside trading window")
		s.Liquidate(ctx)
		s.sleepUntil(ctx, s.opts.Window.NextStart(now))
	}
}

// backoff waits after a failed iteration. Inside the window it waits for the end, since
// the pass for this occurrence is already spent. Outside it retries liquidation every
// fatalBackoff, but never past the next window start.
func (s *Scheduler) backoff(ctx context.Context) {
	now := s.now()
	target := now.Add(fatalBackoff)
	if _, end, inside := s.opts.Window.Instance(now); inside {
		target = end
	} else if next := s.opts.Window.NextStart(now); next.Before(target) {
		target = next
	}
	s.sleepUntil(ctx, target)
}

// RunPass evaluates every symbol once, ranks the signals and places orders.
func (s *Scheduler) RunPass(ctx context.Context) PassReport {
	metrics.PassesTotal.Inc()
	if s.opts.RefreshEquity || s.equity <= 0 {
		equity, err := s.venue.Equity(ctx)
		if err != nil {
			s.state.Record(KindAccount, "", err)
			s.log.Error().Err(err).Msg("equity refresh failed, sizing with last known value")
		} else {
			s.equity = equity
		}
	}
	report := PassReport{Equity: s.equity}

	var signals []signal.Signal
	for _, sym := range s.universe {
		if s.stopping(ctx) {
			s.log.Warn().Int("evaluated", report.Evaluated).Msg("stop requested mid-pass, no orders placed")
			return report
		}
		report.Evaluated++
		sig, err := s.evaluate(ctx, sym)
		if err != nil {
			kind := KindSymbol
			if errors.Is(err, exchange.ErrNoData) {
				kind = KindDataUnavailable
			}
			s.state.Record(kind, sym, err)
			s.log.Warn().Err(err).Str("sym", sym).Msg("skipping symbol")
			continue
		}
		if sig == nil {
			s.log.Debug().Str("sym", sym).Msgf("%s: no trade signal", sym)
			continue
		}
		metrics.SignalsTotal.WithLabelValues(string(sig.Direction)).Inc()
		s.log.Info().Str("sym", sym).Msg(sig.String())
		signals = append(signals, *sig)
	}
	report.Signals = signals

	if s.equity <= 0 {
		s.log.Error().Float64("equity", s.equity).Msg("no usable equity, skipping orders")
		return report
	}
	for _, sized := range strategy.RankAndSize(signals, s.opts.Limits) {
		order, err := s.router.Place(ctx, sized, s.equity)
		if err != nil {
			continue
		}
		report.Orders = append(report.Orders, *order)
	}
	s.log.Info().
		Int("evaluated", report.Evaluated).
		Int("signals", len(report.Signals)).
		Int("orders", len(report.Orders)).
		Msg("pass complete")
	return report
}

func (s *Scheduler) evaluate(ctx context.Context, sym string) (sig *signal.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating %s: %v", sym, r)
		}
	}()
	current, prior, err := exchange.Split(ctx, s.bars, sym, s.strat.Lookback())
	if err != nil {
		return nil, err
	}
	if current.Symbol == "" {
		current.Symbol = sym
	}
	return s.strat.Evaluate(current, prior), nil
}

// Liquidate closes every open position. Each failure is recorded and the rest proceed.
func (s *Scheduler) Liquidate(ctx context.Context) int {
	positions, err := s.venue.Positions(ctx)
	if err != nil {
		s.state.Record(KindLiquidation, "", err)
		s.log.Error().Err(err).Msg("list positions failed")
		return 0
	}
	closed := 0
	for _, p := range positions {
		if err := s.venue.ClosePosition(ctx, p.Symbol); err != nil {
			s.state.Record(KindLiquidation, p.Symbol, err)
			s.log.Error().Err(err).Str("sym", p.Symbol).Msg("liquidation failed")
			continue
		}
		closed++
		metrics.LiquidationsTotal.Inc()
		s.log.Info().Str("sym", p.Symbol).Float64("qty", p.Qty).Msg("position closed")
	}
	return closed
}

// sleepUntil waits for target in ticks, returning early on stop.
func (s *Scheduler) sleepUntil(ctx context.Context, target time.Time) {
	for {
		if s.stopping(ctx) {
			return
		}
		now := s.now()
		remaining := target.Sub(now)
		if remaining <= 0 {
			return
		}
		if now.Sub(s.lastCountdown) >= time.Minute {
			s.lastCountdown = now
			s.log.Info().Str("until", target.Format(time.RFC3339)).Msgf("sleeping %s", remaining.Truncate(time.Second))
		}
		d := s.opts.Tick
		if remaining < d {
			d = remaining
		}
		if err := s.sleep(ctx, d); err != nil {
			return
		}
	}
}

func (s *Scheduler) stopping(ctx context.Context) bool {
	return s.state.StopRequested() || ctx.Err() != nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func restrict(tradable, wanted []string) []string {
	if len(wanted) == 0 {
		return tradable
	}
	ok := make(map[string]struct{}, len(tradable))
	for _, s := range tradable {
		ok[s] = struct{}{}
	}
	out := make([]string, 0, len(wanted))
	for _, s := range wanted {
		if _, found := ok[s]; found {
			out = append(out, s)
		}
	}
	return out
}
