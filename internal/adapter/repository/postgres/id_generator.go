package postgres

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunIDGenerator issues lexically sortable run ids. Ids generated within
// the same millisecond still increase.
type RunIDGenerator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewRunIDGenerator creates a new RunIDGenerator.
func NewRunIDGenerator() *RunIDGenerator {
	return &RunIDGenerator{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a new ULID string.
func (g *RunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}
