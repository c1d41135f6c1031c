package usecase

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/iho/txengine/internal/domain"
)

// PublishUseCase hands the final account table to every configured sink.
type PublishUseCase struct {
	sinks []SnapshotSink
}

// NewPublishUseCase creates a new PublishUseCase.
func NewPublishUseCase(sinks ...SnapshotSink) *PublishUseCase {
	return &PublishUseCase{sinks: sinks}
}

// Enabled reports whether any sink is configured.
func (uc *PublishUseCase) Enabled() bool {
	return len(uc.sinks) > 0
}

// Publish saves accounts to all sinks concurrently. A failing sink does
// not stop the others; all failures are joined in the returned error.
func (uc *PublishUseCase) Publish(ctx context.Context, runID string, accounts []domain.ClientAccount) error {
	if len(uc.sinks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultPublishTimeout)
	defer cancel()

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(len(uc.sinks))
	for _, sink := range uc.sinks {
		p.Go(func(ctx context.Context) error {
			if err := sink.Save(ctx, runID, accounts); err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			return nil
		})
	}

	return p.Wait()
}
