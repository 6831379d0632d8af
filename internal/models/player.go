// internal/models/player.go
package models

// Player is a connected participant. ID is the ephemeral identifier of the
// connection that joined the lobby; it does not survive a reconnect.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// SessionIndex is the seat assigned when a session starts. It stays nil
	// while the player waits in an open session.
	SessionIndex *int `json:"sessionIndex,omitempty"`
}

// Clone returns a copy that shares no memory with p.
func (p Player) Clone() Player {
	if p.SessionIndex != nil {
		idx := *p.SessionIndex
		p.SessionIndex = &idx
	}
	return p
}
