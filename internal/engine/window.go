package engine

import (
	"fmt"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24 hour form.
func ParseClock(raw string) (Clock, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) on(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// TradingWindow is the daily interval in which new positions may be opened.
// Both bounds are inclusive and End may be earlier than Start, meaning the window crosses midnight.
type TradingWindow struct {
	Start Clock
	End   Clock
	Loc   *time.Location
}

// NewTradingWindow parses start and end; a nil loc means the local zone.
func NewTradingWindow(start, end string, loc *time.Location) (TradingWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TradingWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TradingWindow{}, err
	}
	if s == e {
		return TradingWindow{}, fmt.Errorf("window start and end are both %s", s)
	}
	if loc == nil {
		loc = time.Local
	}
	return TradingWindow{Start: s, End: e, Loc: loc}, nil
}

// Instance returns the bounds of the window occurrence containing t.
func (w TradingWindow) Instance(t time.Time) (start, end time.Time, ok bool) {
	t = t.In(w.Loc)
	for _, offset := range []int{0, -1} {
		day := t.AddDate(0, 0, offset)
		start = w.Start.on(day, w.Loc)
		end = w.End.on(day, w.Loc)
		if !end.After(start) {
			end = w.End.on(day.AddDate(0, 0, 1), w.Loc)
		}
		if !t.Before(start) && !t.After(end) {
			return start, end, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// Contains reports whether t falls inside a window occurrence.
func (w TradingWindow) Contains(t time.Time) bool {
	_, _, ok := w.Instance(t)
	return ok
}

// NextStart returns the first window start strictly after t.
func (w TradingWindow) NextStart(t time.Time) time.Time {
	t = t.In(w.Loc)
	for offset := 0; ; offset++ {
		if start := w.Start.on(t.AddDate(0, 0, offset), w.Loc); start.After(t) {
			return start
		}
	}
}

func (w TradingWindow) String() string {
	return fmt.Sprintf("%s-%s %s", w.Start, w.End, w.Loc)
}
