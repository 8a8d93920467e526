package storage

import "sync"

// MemoryStore is an in-memory Store for tests and hosts without a writable
// filesystem.
type MemoryStore struct {
	mu     sync.Mutex
	flags  map[string]Flags
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]Flags)}
}

func (m *MemoryStore) Flags(code string) (Flags, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Flags{}, false, ErrClosed
	}
	f, ok := m.flags[code]
	return f, ok, nil
}

func (m *MemoryStore) PutFlags(code string, f Flags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.flags[code] = f
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
