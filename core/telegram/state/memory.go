package state

import (
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.RWMutex
	entries map[int64]Entry
	now     func() time.Time
}

// NewMemoryStore constructs the in-memory Store used by the bot process.
func NewMemoryStore() Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{
		entries: make(map[int64]Entry),
		now:     now,
	}
}

// Get returns a copy of the chat's entry, or false when the chat is idle.
func (m *memoryStore) Get(chatID int64) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[chatID]
	return e, ok
}

// Set stores the entry, stamping CreatedAt on first insert and LastMessageAt on every write.
func (m *memoryStore) Set(chatID int64, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if prev, ok := m.entries[chatID]; ok && entry.CreatedAt.IsZero() {
		entry.CreatedAt = prev.CreatedAt
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.Status == "" {
		entry.Status = StatusInFlow
	}
	entry.LastMessageAt = now
	m.entries[chatID] = entry
}

// Delete returns the chat to idle.
func (m *memoryStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, chatID)
}

func (m *memoryStore) Touch(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[chatID]
	if !ok {
		return
	}
	e.LastMessageAt = m.now()
	m.entries[chatID] = e
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
