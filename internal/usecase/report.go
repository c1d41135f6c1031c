package usecase

import (
	"fmt"
	"maps"

	"github.com/iho/txengine/internal/domain"
)

// Report is a frozen view of a finished run. It is safe for concurrent
// readers.
type Report struct {
	runID    string
	accounts []domain.ClientAccount
	index    map[uint16]int
	stats    Stats
}

// NewReport snapshots engine in the given order together with stats.
func NewReport(runID string, engine *Engine, order SnapshotOrder, stats Stats) *Report {
	accounts := engine.Snapshot(order)
	index := make(map[uint16]int, len(accounts))
	for i, acc := range accounts {
		index[acc.ClientID] = i
	}

	return &Report{
		runID:    runID,
		accounts: accounts,
		index:    index,
		stats:    stats,
	}
}

// RunID returns the id the run was published under.
func (r *Report) RunID() string {
	return r.runID
}

// Accounts returns a copy of all accounts.
func (r *Report) Accounts() []domain.ClientAccount {
	out := make([]domain.ClientAccount, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// Account returns one account or domain.ErrAccountNotFound.
func (r *Report) Account(client uint16) (domain.ClientAccount, error) {
	i, ok := r.index[client]
	if !ok {
		return domain.ClientAccount{}, fmt.Errorf("%w: client %d", domain.ErrAccountNotFound, client)
	}
	return r.accounts[i], nil
}

// Stats returns the run statistics.
func (r *Report) Stats() Stats {
	s := r.stats
	s.Reasons = maps.Clone(r.stats.Reasons)
	return s
}
