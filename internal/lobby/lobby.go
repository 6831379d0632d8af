// internal/lobby/lobby.go
package lobby

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jason-s-yu/drawphone/internal/models"
)

// MaxNameLength bounds player names, in runes.
const MaxNameLength = 32

var (
	ErrNameTaken      = errors.New("player with that name already exists")
	ErrInvalidName    = errors.New("player name must be between 1 and 32 characters")
	ErrPlayerNotFound = errors.New("player is not in the lobby")
)

type member struct {
	player models.Player
	seq    uint64
}

// Lobby tracks every connected participant that has picked a name. It is
// keyed by connection id and holds no state beyond the process lifetime.
type Lobby struct {
	mu      sync.Mutex
	members map[string]member
	seq     uint64
}

// New returns an empty lobby.
func New() *Lobby {
	return &Lobby{
		members: make(map[string]member),
	}
}

// Join registers the connection id under name. Names are compared without
// regard to case. Joining again with the same id renames the player.
func (l *Lobby) Join(id, name string) (models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return models.Player{}, ErrInvalidName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for otherID, m := range l.members {
		if otherID != id && strings.EqualFold(m.player.Name, name) {
			return models.Player{}, ErrNameTaken
		}
	}

	m, exists := l.members[id]
	if !exists {
		l.seq++
		m = member{player: models.Player{ID: id}, seq: l.seq}
	}
	m.player.Name = name
	l.members[id] = m
	return m.player, nil
}

// Leave removes the connection from the lobby and returns the player it held.
func (l *Lobby) Leave(id string) (models.Player, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.members[id]
	if !ok {
		return models.Player{}, false
	}
	delete(l.members, id)
	return m.player, true
}

// Get looks up a lobby member by connection id.
func (l *Lobby) Get(id string) (models.Player, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.members[id]
	return m.player, ok
}

// Len returns the number of members.
func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.members)
}

// List returns the members in join order.
func (l *Lobby) List() []models.Player {
	l.mu.Lock()
	ms := make([]member, 0, len(l.members))
	for _, m := range l.members {
		ms = append(ms, m)
	}
	l.mu.Unlock()

	sort.Slice(ms, func(i, j int) bool { return ms[i].seq < ms[j].seq })
	players := make([]models.Player, len(ms))
	for i, m := range ms {
		players[i] = m.player
	}
	return players
}
