package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// ErrNoSnapshot is returned when no run has been cached yet.
var ErrNoSnapshot = fmt.Errorf("%w: no run cached", domain.ErrSnapshotNotFound)

// SnapshotCache keeps the account table of recent runs in Redis, one
// hash per account.
type SnapshotCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewSnapshotCache creates a new SnapshotCache. Keys expire after ttl.
func NewSnapshotCache(client *redis.Client, ttl time.Duration, metrics *metrics.Metrics) *SnapshotCache {
	return &SnapshotCache{
		client:  client,
		prefix:  "txengine:",
		ttl:     ttl,
		metrics: metrics,
	}
}

// Name implements usecase.SnapshotSink.
func (c *SnapshotCache) Name() string {
	return "redis"
}

func (c *SnapshotCache) accountKey(runID string, client uint16) string {
	return fmt.Sprintf("%s%s:account:%d", c.prefix, runID, client)
}

func (c *SnapshotCache) latestKey() string {
	return c.prefix + "latest"
}

// Save writes all accounts of runID and marks it as the latest run, in
// a single MULTI/EXEC pipeline.
func (c *SnapshotCache) Save(ctx context.Context, runID string, accounts []domain.ClientAccount) error {
	start := time.Now()

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, acc := range accounts {
			key := c.accountKey(runID, acc.ClientID)
			pipe.HSet(ctx, key,
				"available", domain.FormatAmount(acc.Available),
				"held", domain.FormatAmount(acc.Held),
				"total", domain.FormatAmount(acc.Total),
				"locked", strconv.FormatBool(acc.Locked),
			)
			pipe.Expire(ctx, key, c.ttl)
		}
		pipe.Set(ctx, c.latestKey(), runID, c.ttl)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed to cache snapshot %s: %w", runID, err)
	}

	c.observe(start, err)

	return err
}

// Latest returns the id of the most recently cached run.
func (c *SnapshotCache) Latest(ctx context.Context) (string, error) {
	runID, err := c.client.Get(ctx, c.latestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", err
	}
	return runID, nil
}

// Get reads one cached account of runID.
func (c *SnapshotCache) Get(ctx context.Context, runID string, client uint16) (domain.ClientAccount, error) {
	vals, err := c.client.HGetAll(ctx, c.accountKey(runID, client)).Result()
	if err != nil {
		return domain.ClientAccount{}, err
	}
	if len(vals) == 0 {
		return domain.ClientAccount{}, fmt.Errorf("%w: client %d in run %s", domain.ErrAccountNotFound, client, runID)
	}

	acc := domain.ClientAccount{ClientID: client}
	if acc.Available, err = decimal.NewFromString(vals["available"]); err != nil {
		return domain.ClientAccount{}, fmt.Errorf("invalid cached available: %w", err)
	}
	if acc.Held, err = decimal.NewFromString(vals["held"]); err != nil {
		return domain.ClientAccount{}, fmt.Errorf("invalid cached held: %w", err)
	}
	if acc.Total, err = decimal.NewFromString(vals["total"]); err != nil {
		return domain.ClientAccount{}, fmt.Errorf("invalid cached total: %w", err)
	}
	if acc.Locked, err = strconv.ParseBool(vals["locked"]); err != nil {
		return domain.ClientAccount{}, fmt.Errorf("invalid cached locked flag: %w", err)
	}

	return acc, nil
}

func (c *SnapshotCache) observe(start time.Time, err error) {
	if c.metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.SinkWrites.WithLabelValues(c.Name(), status).Inc()
	c.metrics.SinkDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
}
