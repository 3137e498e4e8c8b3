package paper

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gaptrader-go/internal/execution"
)

var (
	// ErrInsufficientCash is returned when free cash cannot cover a buy or back a new short.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrPositionLimit is returned when a fill would grow a position past the per-symbol cap.
	ErrPositionLimit = errors.New("position limit exceeded")
)

const epsilon = 1e-9

type positionState struct {
	Qty     float64 // negative when short
	AvgCost float64
}

// Account tracks virtual cash, fees, realized PnL and signed per-symbol positions.
// Short sale proceeds stay in cash but are held as collateral.
type Account struct {
	mu                   sync.Mutex
	startingCash         float64
	cash                 float64
	realizedPnL          float64
	fees                 float64
	feeRate              float64
	maxPositionPerSymbol float64
	positions            map[string]positionState
}

// PositionSnapshot exposes a read-only view of a single symbol position.
type PositionSnapshot struct {
	Qty         float64
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot represents a thread-safe view of the account state marked to market.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Fees        float64
	Equity      float64
	Positions   map[string]PositionSnapshot
}

// NewAccount constructs an account populated with starting cash and optional per-symbol share cap.
func NewAccount(startingCash, maxPositionPerSymbol float64) *Account {
	return &Account{
		startingCash:         startingCash,
		cash:                 startingCash,
		maxPositionPerSymbol: maxPositionPerSymbol,
		positions:            make(map[string]positionState),
	}
}

// SetFeeRate sets the commission charged on every fill as a fraction of notional.
func (a *Account) SetFeeRate(rate float64) {
	a.mu.Lock()
	a.feeRate = math.Max(0, rate)
	a.mu.Unlock()
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// MarketFill executes qty shares at price, returning the fee charged.
func (a *Account) MarketFill(symbol string, side execution.Side, qty, price float64) (float64, error) {
	if qty <= 0 {
		return 0, errors.New("quantity must be positive")
	}
	if price <= 0 {
		return 0, errors.New("price must be positive")
	}
	var delta float64
	switch side {
	case execution.Buy:
		delta = qty
	case execution.Sell:
		delta = -qty
	default:
		return 0, errors.New("unknown order side")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.positions[symbol]
	newQty := state.Qty + delta
	notional := qty * price
	fee := notional * a.feeRate

	growing := math.Abs(newQty) > math.Abs(state.Qty)+epsilon
	if growing && a.maxPositionPerSymbol > 0 && math.Abs(newQty) > a.maxPositionPerSymbol+epsilon {
		return 0, fmt.Errorf("%w: %s %.0f > %.0f", ErrPositionLimit, symbol, math.Abs(newQty), a.maxPositionPerSymbol)
	}

	free := a.freeCashLocked()
	switch {
	case side == execution.Buy && notional+fee > free+epsilon && state.Qty >= 0:
		return 0, fmt.Errorf("%w: buy %.2f > free %.2f", ErrInsufficientCash, notional+fee, free)
	case side == execution.Sell && newQty < 0 && growing:
		opened := math.Min(qty, math.Abs(newQty)) * price
		if opened+fee > free+epsilon {
			return 0, fmt.Errorf("%w: short %.2f > free %.2f", ErrInsufficientCash, opened+fee, free)
		}
	}

	// Realize PnL on the part of the fill that reduces the existing position.
	if state.Qty != 0 && math.Signbit(state.Qty) != math.Signbit(delta) {
		closed := math.Min(qty, math.Abs(state.Qty))
		dir := 1.0
		if state.Qty < 0 {
			dir = -1.0
		}
		a.realizedPnL += (price - state.AvgCost) * closed * dir
	}

	switch {
	case math.Abs(newQty) <= epsilon:
		delete(a.positions, symbol)
	case state.Qty == 0 || math.Signbit(newQty) != math.Signbit(state.Qty):
		a.positions[symbol] = positionState{Qty: newQty, AvgCost: price}
	case growing:
		avg := (state.AvgCost*math.Abs(state.Qty) + price*qty) / math.Abs(newQty)
		a.positions[symbol] = positionState{Qty: newQty, AvgCost: avg}
	default:
		a.positions[symbol] = positionState{Qty: newQty, AvgCost: state.AvgCost}
	}

	a.cash -= delta * price
	a.cash -= fee
	a.fees += fee
	return fee, nil
}

// freeCashLocked is cash minus the collateral held against open shorts.
func (a *Account) freeCashLocked() float64 {
	free := a.cash
	for _, pos := range a.positions {
		if pos.Qty < 0 {
			free -= -pos.Qty * pos.AvgCost
		}
	}
	return free
}

// Snapshot returns a copy of balances marked with prices. Symbols without a mark
// are valued at average cost.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for sym, pos := range a.positions {
		mark := prices[sym]
		if mark <= 0 {
			mark = pos.AvgCost
		}
		marketValue := pos.Qty * mark
		positions[sym] = PositionSnapshot{
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: marketValue,
			Unrealized:  (mark - pos.AvgCost) * pos.Qty,
		}
		equity += marketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Fees:        a.fees,
		Equity:      equity,
		Positions:   positions,
	}
}

// AvailableCash reports cash not held as short collateral.
func (a *Account) AvailableCash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freeCashLocked()
}

// Position returns the signed position size for the supplied symbol.
func (a *Account) Position(symbol string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol].Qty
}

// Positions lists open positions ordered by symbol.
func (a *Account) Positions() []execution.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]execution.Position, 0, len(a.positions))
	for sym, pos := range a.positions {
		out = append(out, execution.Position{Symbol: sym, Qty: pos.Qty, AvgPrice: pos.AvgCost})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// RealizedPnL returns total closed-trade profit and loss before fees.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// Fees returns total commission charged.
func (a *Account) Fees() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fees
}
