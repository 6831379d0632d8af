// internal/models/session.go
package models

import (
	"sync"
	"time"
)

type SessionStatus string

const (
	SessionOpen     SessionStatus = "open"
	SessionRunning  SessionStatus = "running"
	SessionComplete SessionStatus = "complete"
)

type StackStatus string

const (
	StackWaiting StackStatus = "waiting"
	StackReady   StackStatus = "ready"
)

// SessionSettings are fixed at creation. MaxTurnLength and CardSwitchesAllowed
// are carried to clients but not enforced by the server.
type SessionSettings struct {
	MinPlayers          int `json:"minPlayers"`
	MaxPlayers          int `json:"maxPlayers"`
	MaxTurnLength       int `json:"maxTurnLength"`
	CardSwitchesAllowed int `json:"cardSwitchesAllowed"`
}

// DefaultSessionSettings returns the settings every new session starts with.
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		MinPlayers:          2,
		MaxPlayers:          8,
		MaxTurnLength:       30,
		CardSwitchesAllowed: 3,
	}
}

// Stack is a chain of alternating drawings and descriptions that travels
// from player to player, one hop per round.
type Stack struct {
	ID                 string         `json:"id"`
	Subject            string         `json:"subject"`
	StartPlayerIndex   int            `json:"startPlayerIndex"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	Status             StackStatus    `json:"status"`
	LastType           SubmissionType `json:"lastType"`
	Submissions        []Submission   `json:"submissions"`
	LastSubmission     *Submission    `json:"lastSubmission,omitempty"`

	// Skipped counts turns closed without a submission because the holder left.
	Skipped int `json:"skipped,omitempty"`
}

// Clone returns a deep copy of the stack.
func (st *Stack) Clone() *Stack {
	cp := *st
	cp.Submissions = make([]Submission, len(st.Submissions))
	copy(cp.Submissions, st.Submissions)
	if st.LastSubmission != nil {
		last := *st.LastSubmission
		cp.LastSubmission = &last
	}
	return &cp
}

// Session is one game: a roster, the stacks circulating among it, and its
// lifecycle status. Mu guards every field; callers outside the game package
// should read sessions through a snapshot.
type Session struct {
	Code         string          `json:"code"`
	HostPlayerID string          `json:"hostPlayerId"`
	Players      []Player        `json:"players"`
	Stacks       []*Stack        `json:"stacks"`
	Status       SessionStatus   `json:"status"`
	Settings     SessionSettings `json:"settings"`

	// Seats maps a session index to the player that held it at start. It is
	// never renumbered, so stack indices stay valid after players leave.
	Seats []string `json:"seats,omitempty"`
	// Round is the number of rounds completed so far.
	Round int `json:"round"`
	// Version increases with every applied mutation.
	Version int `json:"version"`

	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`

	Mu sync.Mutex `json:"-"`
}

// NewSession builds an open session hosted by host.
func NewSession(code string, host Player, now time.Time) *Session {
	return &Session{
		Code:         code,
		HostPlayerID: host.ID,
		Players:      []Player{host.Clone()},
		Stacks:       []*Stack{},
		Status:       SessionOpen,
		Settings:     DefaultSessionSettings(),
		CreatedAt:    now,
		LastActive:   now,
	}
}

// PlayerIndex returns the position of playerID in Players, or -1.
func (s *Session) PlayerIndex(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// HasPlayer reports whether playerID is still part of the session.
func (s *Session) HasPlayer(playerID string) bool {
	return s.PlayerIndex(playerID) >= 0
}

// Stack returns the stack with the given id, or nil.
func (s *Session) Stack(id string) *Stack {
	for _, st := range s.Stacks {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// Holder returns the id of the player seated at the stack's current index.
func (s *Session) Holder(st *Stack) string {
	if st.CurrentPlayerIndex < 0 || st.CurrentPlayerIndex >= len(s.Seats) {
		return ""
	}
	return s.Seats[st.CurrentPlayerIndex]
}

// Clone returns a deep copy of the session without its lock. The caller
// must hold s.Mu.
func (s *Session) Clone() *Session {
	cp := &Session{
		Code:         s.Code,
		HostPlayerID: s.HostPlayerID,
		Players:      make([]Player, len(s.Players)),
		Stacks:       make([]*Stack, len(s.Stacks)),
		Status:       s.Status,
		Settings:     s.Settings,
		Round:        s.Round,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
		LastActive:   s.LastActive,
	}
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	for i, st := range s.Stacks {
		cp.Stacks[i] = st.Clone()
	}
	if s.Seats != nil {
		cp.Seats = make([]string, len(s.Seats))
		copy(cp.Seats, s.Seats)
	}
	return cp
}
