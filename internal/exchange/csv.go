package exchange

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gaptrader-go/internal/signal"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// CSVStore keeps one data_<SYMBOL>.csv file per ticker under Dir.
type CSVStore struct {
	Dir string
}

// NewCSVStore returns a store rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	if dir == "" {
		dir = "data"
	}
	return &CSVStore{Dir: dir}
}

// Path is the file holding symbol's history.
func (s *CSVStore) Path(symbol string) string {
	return filepath.Join(s.Dir, "data_"+strings.ToUpper(symbol)+".csv")
}

// Save overwrites symbol's file with bars sorted by date.
func (s *CSVStore) Save(symbol string, bars []signal.Bar) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	sorted := append([]signal.Bar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ts.Before(sorted[j].Ts) })

	tmp := s.Path(symbol) + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	_ = w.Write(csvHeader)
	for _, b := range sorted {
		_ = w.Write([]string{
			b.Ts.Format(dateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			strconv.FormatFloat(b.Volume, 'f', 0, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path(symbol))
}

// Load reads every bar for symbol, oldest first.
func (s *CSVStore) Load(symbol string) ([]signal.Bar, error) {
	file, err := os.Open(s.Path(symbol))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bars, err := ReadCSV(file, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path(symbol), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return bars, nil
}

// History implements BarSource over the saved file.
func (s *CSVStore) History(ctx context.Context, symbol string, n int) ([]signal.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := s.Load(symbol)
	if err != nil {
		return nil, err
	}
	return Tail(bars, n), nil
}

// Symbols lists tickers with a saved file.
func (s *CSVStore) Symbols() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "data_*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "data_"), ".csv")
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ReadCSV parses Date,Open,High,Low,Close,Volume rows. Columns are matched by header name.
func ReadCSV(r io.Reader, symbol string) ([]signal.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvHeader {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var bars []signal.Bar
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		field := func(name string) string { return rec[idx[name]] }
		ts, err := parseDate(field("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var vals [5]float64
		for i, name := range []string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(field(name)), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, name, err)
			}
			vals[i] = v
		}
		bars = append(bars, signal.Bar{
			Symbol: symbol,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
			Ts:     ts,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Ts.Before(bars[j].Ts) })
	return bars, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(dateLayout, raw); err == nil {
		return ts, nil
	}
	// pandas writes timezone-aware indexes as "2024-01-02 00:00:00-05:00".
	if ts, err := time.Parse("2006-01-02 15:04:05-07:00", raw); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
