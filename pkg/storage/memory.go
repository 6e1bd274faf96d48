package storage

import (
	"context"
	"sync"
)

// MemoryKV keeps entries in process memory. Useful for tests and for
// ephemeral sessions.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryKV returns an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put applies all entries under a single lock.
func (m *MemoryKV) Put(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range entries {
		if value == nil {
			delete(m.entries, key)
			continue
		}
		m.entries[key] = append([]byte(nil), value...)
	}
	return nil
}
