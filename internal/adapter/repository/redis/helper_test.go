package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// cacheFixture is a SnapshotCache backed by an in-process redis server.
type cacheFixture struct {
	cache  *SnapshotCache
	server *miniredis.Miniredis
}

func newCacheFixture(t *testing.T, ttl time.Duration, m *metrics.Metrics) *cacheFixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return &cacheFixture{
		cache:  NewSnapshotCache(client, ttl, m),
		server: server,
	}
}

// elapse advances the server clock so keys past their TTL disappear.
func (f *cacheFixture) elapse(d time.Duration) {
	f.server.FastForward(d)
}

// stop shuts the server down; later commands fail.
func (f *cacheFixture) stop() {
	f.server.Close()
}

func (f *cacheFixture) field(runID string, client uint16, name string) string {
	return f.server.HGet(f.cache.accountKey(runID, client), name)
}

func (f *cacheFixture) ttl(runID string, client uint16) time.Duration {
	return f.server.TTL(f.cache.accountKey(runID, client))
}
