package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/domain"
)

// Config holds logger configuration.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json, console
	Output io.Writer // defaults to os.Stderr
}

// New creates a new zerolog logger based on config. Logs never go to
// stdout, which carries the account table.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    output != io.Writer(os.Stderr),
		}
	}

	return zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// RejectionLogger reports ignored input as warn-level log lines.
type RejectionLogger struct {
	log zerolog.Logger
}

// NewRejectionLogger creates a new RejectionLogger.
func NewRejectionLogger(log zerolog.Logger) *RejectionLogger {
	return &RejectionLogger{log: log}
}

// Rejected logs a record refused by a business rule.
func (l *RejectionLogger) Rejected(rec domain.Record, reason error) {
	ev := l.log.Warn().
		Str("kind", rec.Kind().String()).
		Uint16("client", rec.Client()).
		Uint32("tx", rec.Tx()).
		Str("reason", domain.Reason(reason))
	if amount, ok := rec.Amount(); ok {
		ev = ev.Str("amount", amount.String())
	}
	ev.Err(reason).Msg("transaction rejected")
}

// Malformed logs an input line that could not be decoded.
func (l *RejectionLogger) Malformed(err error) {
	l.log.Warn().Err(err).Msg("ignoring malformed line")
}
