// internal/handlers/events.go
package handlers

import (
	"encoding/json"

	"github.com/jason-s-yu/drawphone/internal/models"
)

// Event names shared by inbound requests and outbound replies.
const (
	EventJoinLobby     = "join-lobby"
	EventNewSession    = "new-session"
	EventJoinSession   = "join-session"
	EventStartSession  = "start-session"
	EventSubmitSession = "submit-session"
	EventUpdateSession = "update-session"

	// EventError carries failures for frames whose event name could not be read.
	EventError = "error"
)

// envelope is the frame every message travels in.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type joinLobbyRequest struct {
	Name string `json:"name"`
}

type newSessionRequest struct {
	HostPlayerID string `json:"hostPlayerId"`
}

type joinSessionRequest struct {
	PlayerID string `json:"playerId"`
	Code     string `json:"code"`
}

type submitSessionRequest struct {
	SessionCode string            `json:"sessionCode"`
	StackID     string            `json:"stackId"`
	PlayerID    string            `json:"playerId"`
	Submission  models.Submission `json:"submission"`
}

type playerReply struct {
	Player models.Player `json:"player"`
}

type sessionReply struct {
	Session *models.Session `json:"session"`
}

type errorReply struct {
	Error string `json:"error"`
}

// encode wraps data in an envelope.
func encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}
