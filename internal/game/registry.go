// internal/game/registry.go
package game

import (
	"sync"
	"time"

	"github.com/jason-s-yu/drawphone/internal/models"
)

// ChangeKind names the mutation that produced a session change.
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeJoined    ChangeKind = "joined"
	ChangeStarted   ChangeKind = "started"
	ChangeSubmitted ChangeKind = "submitted"
	ChangeLeft      ChangeKind = "left"
	ChangeExpired   ChangeKind = "expired"
)

// Change describes one applied mutation.
type Change struct {
	Kind    ChangeKind
	ActorID string
	// Previous is the session status before the mutation.
	Previous models.SessionStatus
	// StackID is set for submissions.
	StackID string
	// Removed is set when the session was dropped from the store, either
	// because it emptied or because it sat idle too long.
	Removed bool
}

// Completed reports whether this change finished the game.
func (c Change) Completed(s *models.Session) bool {
	return c.Previous != models.SessionComplete && s.Status == models.SessionComplete
}

// Registry owns every session, keyed by join code, and applies all session
// mutations under the session's lock.
type Registry struct {
	store  SessionStore
	topics *Topics

	// createMu serializes code allocation so the collision check and the
	// insert are atomic.
	createMu sync.Mutex

	// NewCode generates candidate join codes.
	NewCode func() (string, error)
	// Now is the clock used for activity timestamps.
	Now func() time.Time
	// OnChange is called after every successful mutation while the session
	// lock is still held, so observers see changes in the order they were
	// applied. It must not block or call back into the registry.
	OnChange func(s *models.Session, ch Change)
}

// NewRegistry returns a registry backed by store that deals subjects from topics.
func NewRegistry(store SessionStore, topics *Topics) *Registry {
	if topics == nil {
		topics = NewTopics(nil)
	}
	return &Registry{
		store:   store,
		topics:  topics,
		NewCode: NewCode,
		Now:     time.Now,
	}
}

// notifyUnsafe stamps the session and runs OnChange. Assumes s.Mu is held.
func (r *Registry) notifyUnsafe(s *models.Session, ch Change) {
	s.Version++
	s.LastActive = r.Now()
	if r.OnChange != nil {
		r.OnChange(s, ch)
	}
}

// Create opens a new session hosted by host under a fresh join code.
// Codes are retried until one is free in the store.
func (r *Registry) Create(host models.Player) (*models.Session, error) {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, ErrCodeSpaceExhausted
		}
		c, err := r.NewCode()
		if err != nil {
			return nil, err
		}
		if _, taken := r.store.Get(c); !taken {
			code = c
			break
		}
	}

	s := models.NewSession(code, host, r.Now())
	s.Mu.Lock()
	defer s.Mu.Unlock()
	r.store.Put(s)
	r.notifyUnsafe(s, Change{Kind: ChangeCreated, ActorID: host.ID, Previous: models.SessionOpen})
	return s, nil
}

// Lookup returns the live session for code. Callers must take s.Mu before
// reading it; Snapshot is usually what they want.
func (r *Registry) Lookup(code string) (*models.Session, bool) {
	return r.store.Get(NormalizeCode(code))
}

// Snapshot returns a deep copy of the session taken under its lock.
func (r *Registry) Snapshot(code string) (*models.Session, bool) {
	s, ok := r.Lookup(code)
	if !ok {
		return nil, false
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Clone(), true
}

// Sessions returns every stored session.
func (r *Registry) Sessions() []*models.Session {
	return r.store.List()
}

// Remove drops a session from the store.
func (r *Registry) Remove(code string) {
	r.store.Delete(NormalizeCode(code))
}

// storedUnsafe reports whether s is still the session the store holds under
// its code. Callers hold s.Mu; a session dropped between lookup and locking
// must not be mutated.
func (r *Registry) storedUnsafe(s *models.Session) bool {
	cur, ok := r.store.Get(s.Code)
	return ok && cur == s
}

// update looks up code and runs fn with the session locked. When fn
// succeeds the change is published before the lock is released.
func (r *Registry) update(code string, fn func(s *models.Session) (Change, error)) (*models.Session, error) {
	s, ok := r.Lookup(code)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if !r.storedUnsafe(s) {
		return nil, ErrSessionNotFound
	}

	prev := s.Status
	ch, err := fn(s)
	if err != nil {
		return nil, err
	}
	ch.Previous = prev
	r.notifyUnsafe(s, ch)
	return s, nil
}

// Join adds player to the open session identified by code.
func (r *Registry) Join(code string, player models.Player) (*models.Session, error) {
	return r.update(code, func(s *models.Session) (Change, error) {
		if s.Status != models.SessionOpen {
			return Change{}, ErrSessionAlreadyStarted
		}
		if s.HasPlayer(player.ID) {
			return Change{}, ErrAlreadyInSession
		}
		if len(s.Players) >= s.Settings.MaxPlayers {
			return Change{}, ErrSessionFull
		}
		p := player.Clone()
		p.SessionIndex = nil
		s.Players = append(s.Players, p)
		return Change{Kind: ChangeJoined, ActorID: player.ID}, nil
	})
}

// Start seats the players of an open session and deals the stacks. Only
// the host may start a session.
func (r *Registry) Start(code, requesterID string) (*models.Session, error) {
	return r.update(code, func(s *models.Session) (Change, error) {
		if err := startSession(s, requesterID, r.topics); err != nil {
			return Change{}, err
		}
		return Change{Kind: ChangeStarted, ActorID: requesterID}, nil
	})
}

// Submit records playerID's turn on stackID and settles the round.
func (r *Registry) Submit(code, playerID, stackID string, sub models.Submission) (*models.Session, error) {
	return r.update(code, func(s *models.Session) (Change, error) {
		if err := submitTurn(s, playerID, stackID, sub); err != nil {
			return Change{}, err
		}
		return Change{Kind: ChangeSubmitted, ActorID: playerID, StackID: stackID}, nil
	})
}

// RemovePlayer takes playerID out of every session it belongs to. Sessions
// left without players are dropped from the store. Returns the codes of the
// affected sessions.
func (r *Registry) RemovePlayer(playerID string) []string {
	var codes []string
	for _, s := range r.store.List() {
		if r.removeFrom(s, playerID) {
			codes = append(codes, s.Code)
		}
	}
	return codes
}

func (r *Registry) removeFrom(s *models.Session, playerID string) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if !r.storedUnsafe(s) {
		return false
	}

	prev := s.Status
	if !removePlayer(s, playerID) {
		return false
	}
	ch := Change{Kind: ChangeLeft, ActorID: playerID, Previous: prev}
	if len(s.Players) == 0 {
		r.store.Delete(s.Code)
		ch.Removed = true
	}
	r.notifyUnsafe(s, ch)
	return true
}
