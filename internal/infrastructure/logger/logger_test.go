package logger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerFormatsOutput(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		level      string
		assertions func(t *testing.T, output string)
	}{
		{
			name:   "console format includes message",
			format: "console",
			level:  "info",
			assertions: func(t *testing.T, output string) {
				if !strings.Contains(output, "hello") || strings.HasPrefix(output, "{") {
					t.Fatalf("expected console output, got %q", output)
				}
			},
		},
		{
			name:   "json format starts with brace",
			format: "json",
			level:  "debug",
			assertions: func(t *testing.T, output string) {
				if !strings.HasPrefix(strings.TrimSpace(output), "{") {
					t.Fatalf("expected json output to start with '{', got %q", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Format: tt.format, Level: tt.level, Output: &buf})
			log.Info().Msg("hello")

			if buf.Len() == 0 {
				t.Fatalf("expected log output, got empty string")
			}

			tt.assertions(t, buf.String())
		})
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Level: "error", Output: &buf})

	log.Warn().Msg("dropped")

	if buf.Len() != 0 {
		t.Fatalf("expected warn to be filtered at error level, got %q", buf.String())
	}
}

func TestRejectionLogger(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRejectionLogger(New(Config{Format: "json", Level: "info", Output: &buf}))

	rec := domain.NewWithdrawal(2, 5, decimal.RequireFromString("3.0"))
	rl.Rejected(rec, fmt.Errorf("%w: client 2", domain.ErrInsufficientFunds))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"level":  "warn",
		"kind":   "withdrawal",
		"client": float64(2),
		"tx":     float64(5),
		"reason": "insufficient_funds",
		"amount": "3",
		"error":  "insufficient available funds: client 2",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestRejectionLoggerMalformed(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRejectionLogger(New(Config{Format: "json", Level: "info", Output: &buf}))

	rl.Malformed(errors.New("line 4: unknown transaction type"))

	if !strings.Contains(buf.String(), "line 4: unknown transaction type") {
		t.Fatalf("expected malformed line in log, got %q", buf.String())
	}
}
