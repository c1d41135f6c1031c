package usecase

import (
	"context"
	"errors"

	"github.com/iho/txengine/internal/domain"
)

// ErrMalformedRecord marks input lines a RecordSource could not decode.
// Sources wrap it so callers can tell structural errors from I/O failures.
var ErrMalformedRecord = errors.New("malformed record")

// RecordSource yields shape-validated records in stream order.
// Next returns io.EOF once the stream is exhausted.
type RecordSource interface {
	Next() (domain.Record, error)
}

// RejectionReporter receives diagnostics for input the engine ignores.
// It must not write to the primary output stream.
type RejectionReporter interface {
	// Rejected is called once per record rejected by a business rule.
	Rejected(rec domain.Record, reason error)
	// Malformed is called once per line the source could not decode.
	Malformed(err error)
}

// SnapshotSink stores the final account table of a run.
type SnapshotSink interface {
	Name() string
	Save(ctx context.Context, runID string, accounts []domain.ClientAccount) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
