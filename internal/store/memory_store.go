package store

import "sync"

// MemoryStore keeps credentials in-process. Used by tests and by callers
// that explicitly opt out of persistence.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
	set   bool
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores or replaces the credentials.
func (m *MemoryStore) Save(c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	m.set = true
	return nil
}

// Load returns the stored credentials, if any.
func (m *MemoryStore) Load() (Credentials, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, m.set, nil
}

// Clear removes the stored credentials.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	m.set = false
	return nil
}
