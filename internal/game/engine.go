// internal/game/engine.go
package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/drawphone/internal/models"
)

// DefaultTopics is the subject list handed out when none is configured.
var DefaultTopics = []string{"apple", "pear", "orange", "strawberry"}

// Topics hands out subjects round-robin. One Topics is shared by every
// session of a registry, so consecutive starts continue where the last left off.
type Topics struct {
	mu    sync.Mutex
	words []string
	next  int
}

// NewTopics returns a rotation over words, or over DefaultTopics when words is empty.
func NewTopics(words []string) *Topics {
	if len(words) == 0 {
		words = DefaultTopics
	}
	cp := make([]string, len(words))
	copy(cp, words)
	return &Topics{words: cp}
}

// Next returns the next subject, wrapping at the end of the list.
func (t *Topics) Next() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.words[t.next]
	t.next = (t.next + 1) % len(t.words)
	return w
}

// Advance returns the seat that receives a stack after currentIndex. Turn
// order is a forward cycle over the player count at start.
func Advance(playerCount, currentIndex int) int {
	if playerCount <= 0 {
		return 0
	}
	return (currentIndex + 1) % playerCount
}

// ExpectedType is the submission type the stack's holder must produce next.
// A fresh stack's subject counts as a description, so the first turn draws.
func ExpectedType(st *models.Stack) models.SubmissionType {
	return st.LastType.Opposite()
}

// startSession seats every player and deals one stack per seat. The caller
// must hold s.Mu.
func startSession(s *models.Session, requesterID string, topics *Topics) error {
	if s.Status != models.SessionOpen {
		return ErrSessionAlreadyStarted
	}
	if requesterID != s.HostPlayerID {
		return ErrNotHost
	}
	if len(s.Players) < s.Settings.MinPlayers {
		return ErrNotEnoughPlayers
	}

	s.Seats = make([]string, len(s.Players))
	s.Stacks = make([]*models.Stack, 0, len(s.Players))
	for i := range s.Players {
		idx := i
		s.Players[i].SessionIndex = &idx
		s.Seats[i] = s.Players[i].ID
		s.Stacks = append(s.Stacks, &models.Stack{
			ID:                 uuid.NewString(),
			Subject:            topics.Next(),
			StartPlayerIndex:   i,
			CurrentPlayerIndex: i,
			Status:             models.StackWaiting,
			LastType:           models.SubmissionDescription,
			Submissions:        []models.Submission{},
		})
	}
	s.Round = 0
	s.Status = models.SessionRunning
	return nil
}
