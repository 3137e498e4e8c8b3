package paper

import (
	"sort"
	"sync"

	"gaptrader-go/internal/execution"
)

// Turnover is what one symbol traded over a session.
type Turnover struct {
	Symbol   string
	Buys     int
	Sells    int
	Shares   float64
	Notional float64
	Fees     float64
}

// Ledger is an in-memory FillRecorder used for end-of-run turnover reports.
type Ledger struct {
	mu    sync.Mutex
	fills []execution.Fill
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Record implements FillRecorder.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills = append(l.fills, fill)
}

// Fills returns a copy of everything recorded, in fill order.
func (l *Ledger) Fills() []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]execution.Fill(nil), l.fills...)
}

// Turnover groups fills by symbol, ordered by symbol.
func (l *Ledger) Turnover() []Turnover {
	l.mu.Lock()
	bySym := make(map[string]*Turnover)
	for _, f := range l.fills {
		t, ok := bySym[f.Symbol]
		if !ok {
			t = &Turnover{Symbol: f.Symbol}
			bySym[f.Symbol] = t
		}
		t.add(f)
	}
	l.mu.Unlock()

	out := make([]Turnover, 0, len(bySym))
	for _, t := range bySym {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Total sums every symbol's turnover; Symbol is left empty.
func (l *Ledger) Total() Turnover {
	l.mu.Lock()
	defer l.mu.Unlock()
	var t Turnover
	for _, f := range l.fills {
		t.add(f)
	}
	return t
}

func (t *Turnover) add(f execution.Fill) {
	if f.Side == execution.Sell {
		t.Sells++
	} else {
		t.Buys++
	}
	t.Shares += f.Qty
	t.Notional += f.Qty * f.Price
	t.Fees += f.Fee
}
