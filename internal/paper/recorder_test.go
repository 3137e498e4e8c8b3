package paper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gaptrader-go/internal/execution"
)

func TestJSONLRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills", "fills.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	recorder.Record(execution.Fill{OrderID: "paper-1", Symbol: "HOOD", Side: execution.Sell, Qty: 7, Price: 21.5})
	recorder.Record(execution.Fill{OrderID: "paper-2", Symbol: "HOOD", Side: execution.Buy, Qty: 7, Price: 20})
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	recorder.Record(execution.Fill{Symbol: "late"})
	if recorder.WriteErrors() != 1 {
		t.Fatalf("expected write after close to be counted")
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open fills file: %v", err)
	}
	defer file.Close()
	var fills []execution.Fill
	for dec := json.NewDecoder(file); dec.More(); {
		var f execution.Fill
		if err := dec.Decode(&f); err != nil {
			t.Fatalf("decode fill: %v", err)
		}
		fills = append(fills, f)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}
	if fills[0].Side != execution.Sell || fills[1].OrderID != "paper-2" {
		t.Fatalf("unexpected decoded fills %+v", fills)
	}
}
