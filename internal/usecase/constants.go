package usecase

import (
	"fmt"
	"time"
)

const (
	// DefaultPublishTimeout bounds how long all snapshot sinks together may take.
	DefaultPublishTimeout = 30 * time.Second

	// SnapshotTTL is how long cached snapshots live in key-value sinks.
	SnapshotTTL = 24 * time.Hour
)

// SnapshotOrder selects the client order of Engine.Snapshot.
type SnapshotOrder int

const (
	// SnapshotAscending orders accounts by client id.
	SnapshotAscending SnapshotOrder = iota
	// SnapshotFirstSeen orders accounts by the first record naming them.
	SnapshotFirstSeen
)

func (o SnapshotOrder) String() string {
	if o == SnapshotFirstSeen {
		return "first-seen"
	}
	return "ascending"
}

// ParseSnapshotOrder parses "ascending" or "first-seen".
func ParseSnapshotOrder(s string) (SnapshotOrder, error) {
	switch s {
	case "", "ascending", "asc":
		return SnapshotAscending, nil
	case "first-seen", "first_seen", "input":
		return SnapshotFirstSeen, nil
	default:
		return SnapshotAscending, fmt.Errorf("unknown snapshot order %q", s)
	}
}
