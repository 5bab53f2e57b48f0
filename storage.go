package session

import (
	"sync"
)

// MemoryStorage is the default client-side Storage: a process-local slot with
// the same read/write-both-tokens discipline the cookie pair has on the
// server.
type MemoryStorage struct {
	mu   sync.RWMutex
	sess *Session
}

// NewMemoryStorage returns an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load implements Storage. Incomplete pairs read as nil.
func (m *MemoryStorage) Load() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.sess.Complete() {
		return nil
	}
	return m.sess.Clone()
}

// Store implements Storage. The pair is replaced atomically; a partial
// session is rejected rather than half-written.
func (m *MemoryStorage) Store(s *Session) error {
	if !s.Complete() {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s.Clone()
	return nil
}

// Clear implements Storage.
func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
