// Package engine runs the trading window loop and holds the state shared with the operator console.
package engine

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"gaptrader-go/internal/metrics"
)

// ErrorKind classifies a recorded failure.
type ErrorKind string

const (
	KindDataUnavailable ErrorKind = "data_unavailable"
	KindOrderSubmission ErrorKind = "order_submission"
	KindLiquidation     ErrorKind = "liquidation"
	KindAccount         ErrorKind = "account"
	KindSymbol          ErrorKind = "symbol"
	KindLoopFatal       ErrorKind = "loop_fatal"
)

// ErrorRecord is one entry of the error log.
type ErrorRecord struct {
	Kind   ErrorKind
	Symbol string
	Err    error
	At     time.Time
}

func (r ErrorRecord) String() string {
	sym := r.Symbol
	if sym == "" {
		sym = "-"
	}
	return fmt.Sprintf("%s [%s] %s: %v", r.At.Format(time.RFC3339), r.Kind, sym, r.Err)
}

// ErrorObserver is notified after every record is appended.
type ErrorObserver interface {
	ObserveError(rec ErrorRecord)
}

// State is shared by the scheduler and the console for the lifetime of one run.
type State struct {
	stop      atomic.Bool
	mu        sync.Mutex
	errs      []ErrorRecord
	observers []ErrorObserver
	now       func() time.Time
}

// NewState returns an empty state.
func NewState(observers ...ErrorObserver) *State {
	return &State{observers: observers, now: time.Now}
}

// RequestStop asks the scheduler to exit at its next tick.
func (s *State) RequestStop() { s.stop.Store(true) }

// StopRequested reports whether a cooperative stop was requested.
func (s *State) StopRequested() bool { return s.stop.Load() }

// Record appends a failure. A nil err is ignored.
func (s *State) Record(kind ErrorKind, symbol string, err error) {
	if err == nil {
		return
	}
	rec := ErrorRecord{Kind: kind, Symbol: symbol, Err: err, At: s.now()}
	s.mu.Lock()
	s.errs = append(s.errs, rec)
	observers := s.observers
	s.mu.Unlock()

	metrics.EngineErrorsTotal.WithLabelValues(string(kind)).Inc()
	for _, o := range observers {
		o.ObserveError(rec)
	}
}

// RecordOrderFailure lets State act as the router's error sink.
func (s *State) RecordOrderFailure(symbol string, err error) {
	s.Record(KindOrderSubmission, symbol, err)
}

// Errors returns a copy of the log in insertion order.
func (s *State) Errors() []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ErrorRecord, len(s.errs))
	copy(out, s.errs)
	return out
}

// DumpErrors writes every record, one per line.
func (s *State) DumpErrors(w io.Writer) {
	errs := s.Errors()
	if len(errs) == 0 {
		fmt.Fprintln(w, "no errors recorded")
		return
	}
	fmt.Fprintf(w, "%d errors recorded:\n", len(errs))
	for _, rec := range errs {
		fmt.Fprintln(w, rec.String())
	}
}
