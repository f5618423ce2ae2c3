// Package store provides SnapshotStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/zline/bi-engine/session"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]session.Snapshot
	order     []string
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]session.Snapshot)}
}

func (m *Memory) Save(_ context.Context, snap session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.snapshots[snap.ID]; exists {
		return fmt.Errorf("snapshot %s already saved", snap.ID)
	}
	m.snapshots[snap.ID] = snap
	m.order = append(m.order, snap.ID)
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (session.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[id]
	if !ok {
		return session.Snapshot{}, session.ErrSnapshotNotFound
	}
	return snap, nil
}

func (m *Memory) Latest(_ context.Context) (session.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return session.Snapshot{}, session.ErrSnapshotNotFound
	}
	return m.snapshots[m.order[len(m.order)-1]], nil
}
