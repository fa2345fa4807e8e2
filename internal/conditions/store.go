package conditions

import (
	"context"
	"sync"
	"time"
)

// Store caches snapshots by key until their ExpiresAt.
type Store interface {
	// Get returns the unexpired snapshot for key. Expired entries are
	// removed and reported as a miss.
	Get(ctx context.Context, key string) (*Snapshot, error)

	// Set stores the snapshot until its ExpiresAt. Concurrent writers for
	// the same key overwrite each other.
	Set(ctx context.Context, key string, snap Snapshot) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Len returns the number of stored entries, fresh or not yet evicted.
	Len(ctx context.Context) (int, error)
}

// MemoryStore is an in-process Store. Expired entries are evicted only when
// they are looked up.
type MemoryStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]Snapshot
}

// NewMemoryStore creates a new in-memory store. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		clock:   clock,
		entries: make(map[string]Snapshot),
	}
}

// Get returns the cached snapshot, or nil on a miss.
func (m *MemoryStore) Get(_ context.Context, key string) (*Snapshot, error) {
	m.mu.RLock()
	snap, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if snap.Expired(m.clock()) {
		m.mu.Lock()
		// Re-check so a fresh concurrent write is not evicted.
		if cur, ok := m.entries[key]; ok && cur.Expired(m.clock()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, nil
	}

	return &snap, nil
}

// Set stores a snapshot.
func (m *MemoryStore) Set(_ context.Context, key string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = snap
	return nil
}

// Clear removes every entry.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Snapshot)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
