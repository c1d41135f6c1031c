package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/metrics"
)

const (
	upsertSnapshotSQL = `INSERT INTO account_snapshots (run_id, client_id, available, held, total, locked)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
ON CONFLICT (run_id, client_id) DO UPDATE
SET available = EXCLUDED.available, held = EXCLUDED.held, total = EXCLUDED.total, locked = EXCLUDED.locked`

	listSnapshotSQL = `SELECT client_id, available::text, held::text, total::text, locked
FROM account_snapshots
WHERE run_id = $1
ORDER BY client_id`
)

type snapshotPool interface {
	pgxPool
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AccountSnapshotRepository stores the account table of a run in PostgreSQL.
type AccountSnapshotRepository struct {
	pool      snapshotPool
	txManager *TxManager
	retrier   *Retrier
	metrics   *metrics.Metrics
}

// NewAccountSnapshotRepository creates a new AccountSnapshotRepository.
func NewAccountSnapshotRepository(pool *pgxpool.Pool, logger zerolog.Logger, metrics *metrics.Metrics) *AccountSnapshotRepository {
	return newAccountSnapshotRepository(pool, NewTxManager(pool), NewRetrier(logger), metrics)
}

func newAccountSnapshotRepository(pool snapshotPool, txManager *TxManager, retrier *Retrier, metrics *metrics.Metrics) *AccountSnapshotRepository {
	return &AccountSnapshotRepository{
		pool:      pool,
		txManager: txManager,
		retrier:   retrier,
		metrics:   metrics,
	}
}

// Name implements usecase.SnapshotSink.
func (r *AccountSnapshotRepository) Name() string {
	return "postgres"
}

// Save writes all accounts of runID in one transaction. Amounts are
// stored rounded to output precision.
func (r *AccountSnapshotRepository) Save(ctx context.Context, runID string, accounts []domain.ClientAccount) error {
	start := time.Now()

	err := r.retrier.Retry(ctx, func() error {
		return r.txManager.InTx(ctx, func(tx pgx.Tx) error {
			for _, acc := range accounts {
				_, err := tx.Exec(ctx, upsertSnapshotSQL,
					runID,
					int32(acc.ClientID),
					domain.FormatAmount(acc.Available),
					domain.FormatAmount(acc.Held),
					domain.FormatAmount(acc.Total),
					acc.Locked,
				)
				if err != nil {
					return fmt.Errorf("failed to save client %d: %w", acc.ClientID, err)
				}
			}
			return nil
		})
	})

	r.observe(start, err)

	return err
}

// ListByRun returns the stored accounts of runID ordered by client id.
// An unknown run yields domain.ErrSnapshotNotFound.
func (r *AccountSnapshotRepository) ListByRun(ctx context.Context, runID string) ([]domain.ClientAccount, error) {
	rows, err := r.pool.Query(ctx, listSnapshotSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var accounts []domain.ClientAccount
	for rows.Next() {
		var (
			clientID               int32
			available, held, total string
			locked                 bool
		)
		if err := rows.Scan(&clientID, &available, &held, &total, &locked); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		acc := domain.ClientAccount{ClientID: uint16(clientID), Locked: locked}
		if acc.Available, err = decimal.NewFromString(available); err != nil {
			return nil, fmt.Errorf("invalid available for client %d: %w", clientID, err)
		}
		if acc.Held, err = decimal.NewFromString(held); err != nil {
			return nil, fmt.Errorf("invalid held for client %d: %w", clientID, err)
		}
		if acc.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total for client %d: %w", clientID, err)
		}

		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: run %s", domain.ErrSnapshotNotFound, runID)
	}

	return accounts, nil
}

func (r *AccountSnapshotRepository) observe(start time.Time, err error) {
	if r.metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.SinkWrites.WithLabelValues(r.Name(), status).Inc()
	r.metrics.SinkDuration.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())
}
