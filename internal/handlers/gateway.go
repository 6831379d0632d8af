// internal/handlers/gateway.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/drawphone/internal/cache"
	"github.com/jason-s-yu/drawphone/internal/game"
	"github.com/jason-s-yu/drawphone/internal/lobby"
	"github.com/jason-s-yu/drawphone/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultEventRate and DefaultEventBurst bound inbound events per connection.
	DefaultEventRate  = rate.Limit(5)
	DefaultEventBurst = 10

	outChanSize    = 32
	publishTimeout = 5 * time.Second
)

// ActionPublisher receives one record per applied session mutation.
type ActionPublisher interface {
	Publish(ctx context.Context, rec cache.ActionRecord) error
}

// SessionArchiver stores sessions once they complete.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, s *models.Session) (uuid.UUID, error)
}

// Client is one live connection. Its ID doubles as the player id.
type Client struct {
	ID      string
	OutChan chan []byte
	Cancel  context.CancelFunc

	limiter *rate.Limiter
	logger  *logrus.Logger
}

// Write pushes a frame onto the client's OutChan non-blockingly. A full
// channel drops the frame.
func (c *Client) Write(msg []byte) bool {
	select {
	case c.OutChan <- msg:
		return true
	default:
		c.logger.WithField("client", c.ID).Warn("OutChan full, dropped message")
		return false
	}
}

// Gateway dispatches inbound events to the lobby and session registry and
// fans resulting session state out to every member's connection.
type Gateway struct {
	Lobby    *lobby.Lobby
	Sessions *game.Registry
	// Actions and Archive are optional sinks; nil disables them.
	Actions ActionPublisher
	Archive SessionArchiver

	EventRate  rate.Limit
	EventBurst int

	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	// background tracks publish and archive goroutines.
	background sync.WaitGroup
}

// NewGateway wires a gateway to the registry's change hook.
func NewGateway(lob *lobby.Lobby, reg *game.Registry, logger *logrus.Logger) *Gateway {
	g := &Gateway{
		Lobby:      lob,
		Sessions:   reg,
		EventRate:  DefaultEventRate,
		EventBurst: DefaultEventBurst,
		logger:     logger,
		clients:    make(map[string]*Client),
	}
	reg.OnChange = g.onSessionChange
	return g
}

// NewClient builds a client with its own inbound rate limiter.
func (g *Gateway) NewClient(id string, cancel context.CancelFunc) *Client {
	return &Client{
		ID:      id,
		OutChan: make(chan []byte, outChanSize),
		Cancel:  cancel,
		limiter: rate.NewLimiter(g.EventRate, g.EventBurst),
		logger:  g.logger,
	}
}

// Connect registers a client so it can receive broadcasts.
func (g *Gateway) Connect(c *Client) {
	g.mu.Lock()
	g.clients[c.ID] = c
	g.mu.Unlock()
	g.logger.WithField("client", c.ID).Debug("Client connected")
}

// Disconnect removes the client from the lobby and from every session it
// belongs to. Remaining members of those sessions receive an update.
func (g *Gateway) Disconnect(c *Client) {
	g.mu.Lock()
	if cur, ok := g.clients[c.ID]; ok && cur == c {
		delete(g.clients, c.ID)
	}
	g.mu.Unlock()

	player, inLobby := g.Lobby.Leave(c.ID)
	codes := g.Sessions.RemovePlayer(c.ID)
	g.logger.WithFields(logrus.Fields{
		"client":   c.ID,
		"name":     player.Name,
		"lobby":    inLobby,
		"sessions": codes,
	}).Info("Client disconnected")
}

// Wait blocks until background publishing and archiving have finished.
func (g *Gateway) Wait() {
	g.background.Wait()
}

// Handle processes one inbound frame from c. Failures are reported only to c,
// on the event name that triggered them.
func (g *Gateway) Handle(ctx context.Context, c *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		g.replyError(c, EventError, ErrMalformedPayload)
		return
	}
	if !c.limiter.Allow() {
		g.replyError(c, env.Event, ErrRateLimited)
		return
	}

	var err error
	switch env.Event {
	case EventJoinLobby:
		err = g.handleJoinLobby(c, env.Data)
	case EventNewSession:
		err = g.handleNewSession(c, env.Data)
	case EventJoinSession:
		err = g.handleJoinSession(c, env.Data)
	case EventStartSession:
		err = g.handleStartSession(c, env.Data)
	case EventSubmitSession:
		err = g.handleSubmitSession(c, env.Data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownEvent, env.Event)
	}
	if err != nil {
		entry := g.logger.WithFields(logrus.Fields{"client": c.ID, "event": env.Event}).WithError(err)
		if IsClientError(err) {
			entry.Debug("Event rejected")
		} else {
			entry.Error("Event failed")
		}
		g.replyError(c, env.Event, err)
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return ErrMalformedPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// member returns c's lobby identity, checking a payload player id against
// the connection when one was given.
func (g *Gateway) member(c *Client, claimedID string) (models.Player, error) {
	if claimedID != "" && claimedID != c.ID {
		return models.Player{}, ErrPlayerMismatch
	}
	p, ok := g.Lobby.Get(c.ID)
	if !ok {
		return models.Player{}, lobby.ErrPlayerNotFound
	}
	return p, nil
}

func (g *Gateway) handleJoinLobby(c *Client, data json.RawMessage) error {
	var req joinLobbyRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	p, err := g.Lobby.Join(c.ID, req.Name)
	if err != nil {
		return err
	}
	g.logger.WithFields(logrus.Fields{"client": c.ID, "name": p.Name}).Info("Player joined lobby")
	g.reply(c, EventJoinLobby, playerReply{Player: p})
	return nil
}

// The session handlers below reply through onSessionChange, which runs
// under the session lock so replies and broadcasts keep mutation order.

func (g *Gateway) handleNewSession(c *Client, data json.RawMessage) error {
	var req newSessionRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	host, err := g.member(c, req.HostPlayerID)
	if err != nil {
		return err
	}
	_, err = g.Sessions.Create(host)
	return err
}

func (g *Gateway) handleJoinSession(c *Client, data json.RawMessage) error {
	var req joinSessionRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	p, err := g.member(c, req.PlayerID)
	if err != nil {
		return err
	}
	_, err = g.Sessions.Join(req.Code, p)
	return err
}

func (g *Gateway) handleStartSession(c *Client, data json.RawMessage) error {
	var code string
	if err := decode(data, &code); err != nil {
		return err
	}
	if _, err := g.member(c, ""); err != nil {
		return err
	}
	_, err := g.Sessions.Start(code, c.ID)
	return err
}

func (g *Gateway) handleSubmitSession(c *Client, data json.RawMessage) error {
	var req submitSessionRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, err := g.member(c, req.PlayerID); err != nil {
		return err
	}
	_, err := g.Sessions.Submit(req.SessionCode, c.ID, req.StackID, req.Submission)
	return err
}

// onSessionChange runs with s.Mu held.
func (g *Gateway) onSessionChange(s *models.Session, ch game.Change) {
	fields := logrus.Fields{"session": s.Code, "player": ch.ActorID, "change": ch.Kind, "version": s.Version}

	switch ch.Kind {
	case game.ChangeCreated:
		g.sendTo(ch.ActorID, EventNewSession, s)
	case game.ChangeJoined:
		g.sendTo(ch.ActorID, EventJoinSession, s)
		g.broadcast(s, EventUpdateSession, ch.ActorID)
	default:
		g.broadcast(s, EventUpdateSession, "")
	}
	g.logger.WithFields(fields).Debug("Session changed")

	g.publish(actionRecord(s, ch))
	if ch.Completed(s) {
		g.logger.WithFields(fields).Info("Session complete")
		g.publish(cache.ActionRecord{
			SessionCode: s.Code,
			ActionIndex: s.Version,
			ActorID:     ch.ActorID,
			ActionType:  "completed",
			Timestamp:   s.LastActive.UnixMilli(),
		})
		g.archive(s.Clone())
	}
	switch {
	case ch.Kind == game.ChangeExpired:
		g.logger.WithFields(fields).Info("Idle session expired")
	case ch.Removed:
		g.logger.WithFields(fields).Info("Session emptied and removed")
	}
}

// sendTo delivers the session to one player on event.
func (g *Gateway) sendTo(playerID, event string, s *models.Session) {
	msg, err := encode(event, sessionReply{Session: s})
	if err != nil {
		g.logger.WithError(err).WithField("session", s.Code).Error("Failed to encode session")
		return
	}
	g.mu.RLock()
	c, ok := g.clients[playerID]
	g.mu.RUnlock()
	if ok {
		c.Write(msg)
	}
}

// broadcast delivers the session to every current player except skipID.
func (g *Gateway) broadcast(s *models.Session, event, skipID string) {
	msg, err := encode(event, sessionReply{Session: s})
	if err != nil {
		g.logger.WithError(err).WithField("session", s.Code).Error("Failed to encode session")
		return
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, p := range s.Players {
		if p.ID == skipID {
			continue
		}
		if c, ok := g.clients[p.ID]; ok {
			c.Write(msg)
		}
	}
}

func (g *Gateway) reply(c *Client, event string, data interface{}) {
	msg, err := encode(event, data)
	if err != nil {
		g.logger.WithError(err).WithField("event", event).Error("Failed to encode reply")
		return
	}
	c.Write(msg)
}

func (g *Gateway) replyError(c *Client, event string, err error) {
	g.reply(c, event, errorReply{Error: err.Error()})
}

func (g *Gateway) publish(rec cache.ActionRecord) {
	if g.Actions == nil {
		return
	}
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := g.Actions.Publish(ctx, rec); err != nil {
			g.logger.WithError(err).WithField("session", rec.SessionCode).Warn("Failed to publish action")
		}
	}()
}

// archive stores a completed session snapshot.
func (g *Gateway) archive(snap *models.Session) {
	if g.Archive == nil {
		return
	}
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		id, err := g.Archive.ArchiveSession(ctx, snap)
		if err != nil {
			g.logger.WithError(err).WithField("session", snap.Code).Error("Failed to archive session")
			return
		}
		g.logger.WithFields(logrus.Fields{"session": snap.Code, "archive": id}).Info("Archived session")
	}()
}

// actionRecord describes a change for the action log. Submission payloads
// carry the type only; drawings are too large to queue.
func actionRecord(s *models.Session, ch game.Change) cache.ActionRecord {
	payload := map[string]interface{}{"status": s.Status}
	switch ch.Kind {
	case game.ChangeStarted:
		payload["players"] = len(s.Seats)
	case game.ChangeSubmitted:
		payload["stackId"] = ch.StackID
		if st := s.Stack(ch.StackID); st != nil {
			payload["type"] = st.LastType
		}
		payload["round"] = s.Round
	case game.ChangeLeft, game.ChangeExpired:
		payload["removed"] = ch.Removed
	}
	raw, _ := json.Marshal(payload)
	return cache.ActionRecord{
		SessionCode:   s.Code,
		ActionIndex:   s.Version,
		ActorID:       ch.ActorID,
		ActionType:    string(ch.Kind),
		ActionPayload: raw,
		Timestamp:     s.LastActive.UnixMilli(),
	}
}

// IsClientError reports whether err came from invalid client input rather
// than a server fault.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrPlayerMismatch, ErrRateLimited, ErrMalformedPayload, ErrUnknownEvent,
		lobby.ErrNameTaken, lobby.ErrInvalidName, lobby.ErrPlayerNotFound,
		game.ErrSessionNotFound, game.ErrSessionAlreadyStarted, game.ErrStackNotFound,
		game.ErrSessionFull, game.ErrAlreadyInSession, game.ErrNotHost,
		game.ErrNotEnoughPlayers, game.ErrSessionNotRunning, game.ErrNotYourTurn,
		game.ErrStackNotWaiting, game.ErrUnexpectedSubmissionType, game.ErrInvalidSubmission,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
