// internal/respcache/memory.go
package respcache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store guarded by a RWMutex. Entries expire lazily:
// an expired entry is treated as absent on lookup and removed there.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Entry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory creates a memory-backed store with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		items: make(map[string]Entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// NewMemoryWithClock creates a memory store with an injectable clock for
// deterministic TTL tests.
func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	return &Memory{
		items: make(map[string]Entry),
		ttl:   ttl,
		now:   now,
	}
}

func (m *Memory) Get(_ context.Context, question string) (*Entry, bool) {
	key := Key(question)

	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if m.now().Sub(entry.CreatedAt) >= m.ttl {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it.
		if current, still := m.items[key]; still && m.now().Sub(current.CreatedAt) >= m.ttl {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return &entry, true
}

func (m *Memory) Put(_ context.Context, question string, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.now()
	}

	m.mu.Lock()
	m.items[Key(question)] = entry
	m.mu.Unlock()
}

// Len reports the current number of entries, including not-yet-evicted
// expired ones (used by tests).
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
