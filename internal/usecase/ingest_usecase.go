package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// IngestUseCase folds a record stream into an Engine.
type IngestUseCase struct {
	engine   *Engine
	reporter RejectionReporter
	metrics  *metrics.Metrics
	strict   bool
}

// NewIngestUseCase creates a new IngestUseCase. With strict set, the
// first malformed line aborts the run instead of being skipped.
func NewIngestUseCase(engine *Engine, reporter RejectionReporter, metrics *metrics.Metrics, strict bool) *IngestUseCase {
	return &IngestUseCase{
		engine:   engine,
		reporter: reporter,
		metrics:  metrics,
		strict:   strict,
	}
}

// Run reads src until io.EOF, processing every decodable record.
// Only I/O failures, cancellation and, in strict mode, malformed lines
// end the run early.
func (uc *IngestUseCase) Run(ctx context.Context, src RecordSource) (Stats, error) {
	start := time.Now()
	malformed := 0

	defer func() {
		if uc.metrics != nil {
			uc.metrics.IngestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return uc.stats(malformed), err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !errors.Is(err, ErrMalformedRecord) {
				return uc.stats(malformed), fmt.Errorf("failed to read records: %w", err)
			}
			if uc.strict {
				return uc.stats(malformed), err
			}

			malformed++
			if uc.metrics != nil {
				uc.metrics.RecordsMalformed.Inc()
			}
			if uc.reporter != nil {
				uc.reporter.Malformed(err)
			}
			continue
		}

		uc.engine.Process(rec)
	}

	return uc.stats(malformed), nil
}

func (uc *IngestUseCase) stats(malformed int) Stats {
	s := uc.engine.Stats()
	s.Malformed = malformed
	return s
}
