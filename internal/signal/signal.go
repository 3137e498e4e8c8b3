// Package signal standardizes payloads shared between data ingestion, strategy and execution layers.
package signal

import (
	"fmt"
	"time"
)

// Bar models one completed daily candle for a single symbol.
type Bar struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Ts     time.Time
}

// IntradayReturn is close/open - 1; zero when the open is not positive.
func (b Bar) IntradayReturn() float64 {
	if b.Open <= 0 {
		return 0
	}
	return b.Close/b.Open - 1
}

// Direction labels which way a bar gapped.
type Direction string

const (
	// GapUp marks a close far enough above the open.
	GapUp Direction = "gap_up"
	// GapDown marks a close far enough below the open.
	GapDown Direction = "gap_down"
)

// Signal expresses a gap detected for one symbol. Strength is always |intraday return|.
type Signal struct {
	Symbol    string
	Direction Direction
	Strength  float64
	Price     float64 // close of the bar that produced the signal
	Reason    string
	Ts        time.Time
}

func (s Signal) String() string {
	return fmt.Sprintf("%s %s %.4f", s.Symbol, s.Direction, s.Strength)
}

// SizedSignal is a ranked signal with the fraction of equity it may deploy.
type SizedSignal struct {
	Signal
	Allocation float64
}
