// internal/handlers/ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/drawphone/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	// Subprotocol is the websocket subprotocol clients must request.
	Subprotocol = "drawphone"

	// maxMessageSize leaves room for a canvas data URL in a submission.
	maxMessageSize = 4 << 20
	pingInterval   = 30 * time.Second
	writeTimeout   = 5 * time.Second
)

// WSHandler upgrades the request and serves one client until it disconnects.
func WSHandler(logger *logrus.Logger, gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the drawphone subprotocol")
			return
		}
		c.SetReadLimit(maxMessageSize)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := gw.NewClient(uuid.NewString(), cancel)
		gw.Connect(client)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		go writePump(ctx, c, client, logger)
		err = readPump(ctx, c, gw, client, logger)

		cancel()
		gw.Disconnect(client)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	}
}

// readPump feeds inbound text frames to the gateway until the connection
// closes. A normal close returns nil.
func readPump(ctx context.Context, c *websocket.Conn, gw *Gateway, client *Client, logger *logrus.Logger) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.WithField("client", client.ID).Warn("Ignoring non-text frame")
			continue
		}
		gw.Handle(ctx, client, msg)
	}
}

// writePump drains the client's OutChan onto the socket and keeps the
// connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				logger.WithField("client", client.ID).WithError(err).Warn("Write failed, closing connection")
				client.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithField("client", client.ID).WithError(err).Debug("Ping failed, closing connection")
				client.Cancel()
				return
			}
		}
	}
}
