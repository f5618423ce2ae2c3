/*
store.go - Snapshot persistence interface

PURPOSE:
  A Snapshot is the committed baseline of the dashboard: the full
  client and cost history plus the settings in force. Sessions start
  from a snapshot and commits produce a new one. Storage backends
  implement SnapshotStore; see store/memory.go for the in-memory
  implementation and store/sqlite for the durable one.
*/
package session

import (
	"context"
	"errors"
	"time"

	"github.com/zline/bi-engine/engine"
)

// ErrSnapshotNotFound is returned by Load and Latest when no snapshot
// matches.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a committed baseline.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	CreatedBy string

	Clients  []engine.ClientRecord
	Costs    []engine.CostRecord
	Periods  []engine.PeriodKey
	Settings engine.GlobalSettings
}

// SnapshotStore persists committed baselines.
type SnapshotStore interface {
	// Save persists a snapshot. Snapshot ids are unique; saving an existing
	// id is an error.
	Save(ctx context.Context, snap Snapshot) error

	// Load fetches a snapshot by id.
	Load(ctx context.Context, id string) (Snapshot, error)

	// Latest fetches the most recently created snapshot, or
	// ErrSnapshotNotFound when the store is empty.
	Latest(ctx context.Context) (Snapshot, error)
}
