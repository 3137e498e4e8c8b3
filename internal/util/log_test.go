package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestNewConsoleLoggerWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("warn", &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Str("sym", "SPY").Msg("no trade signal")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "no trade signal") || !strings.Contains(out, "sym=SPY") {
		t.Fatalf("unexpected console output %q", out)
	}
}
