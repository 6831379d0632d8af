// internal/game/session_store.go
package game

import (
	"sort"
	"sync"

	"github.com/jason-s-yu/drawphone/internal/models"
)

// SessionStore is the repository the registry keeps sessions in. The store
// only tracks membership; each session's own lock guards its contents.
type SessionStore interface {
	Get(code string) (*models.Session, bool)
	Put(s *models.Session)
	Delete(code string)
	List() []*models.Session
}

// MemoryStore keeps sessions in a process-local map.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
	}
}

// Get retrieves a session if it exists.
func (s *MemoryStore) Get(code string) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	return sess, ok
}

// Put stores the session under its code, replacing any previous entry.
func (s *MemoryStore) Put(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Code] = sess
}

// Delete removes the session from memory.
func (s *MemoryStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
}

// List returns the stored sessions ordered by code. The slice is a copy, so
// callers may lock individual sessions while iterating.
func (s *MemoryStore) List() []*models.Session {
	s.mu.Lock()
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
