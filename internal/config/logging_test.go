package config

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevels(t *testing.T) {
	if got := NewLogger(LoggingConfig{Level: "debug"}).GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("level = %s, want debug", got)
	}
	if got := NewLogger(LoggingConfig{Level: "WARN"}).GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("level = %s, want warn (case-insensitive)", got)
	}
}

func TestNewLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	if got := NewLogger(LoggingConfig{Level: "bogus"}).GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("level = %s, want info fallback", got)
	}
}
