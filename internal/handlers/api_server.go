// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

// qrSize is the edge length of generated QR codes in pixels.
const qrSize = 320

// RouterConfig holds the settings the HTTP routes depend on.
type RouterConfig struct {
	// Prefix is prepended to every route, for use behind a reverse proxy.
	Prefix  string
	Version string
}

// NewRouter registers the websocket endpoint and the read-only HTTP API.
func NewRouter(cfg RouterConfig, gw *Gateway, logger *logrus.Logger) *httprouter.Router {
	prefix := strings.TrimSuffix(cfg.Prefix, "/")
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		logger.WithFields(logrus.Fields{"path": r.URL.Path, "panic": v}).Error("Handler panicked")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	mux.Handler(http.MethodGet, prefix+"/ws", WSHandler(logger, gw))
	mux.GET(prefix+"/healthz", serveHealthCheck)
	mux.GET(prefix+"/version", serveVersion(cfg.Version))
	mux.GET(prefix+"/sessions/:code", serveSession(gw))
	mux.GET(prefix+"/sessions/:code/qr", serveSessionQR(gw, prefix))

	return mux
}

func serveHealthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func serveVersion(version string) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "drawphone v"+version+"\n")
	}
}

// serveSession returns a JSON snapshot of one session.
func serveSession(gw *Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		snap, ok := gw.Sessions.Snapshot(ps.ByName("code"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorReply{Error: "session not found"})
			return
		}
		writeJSON(w, http.StatusOK, sessionReply{Session: snap})
	}
}

// serveSessionQR renders the session's join URL as a PNG QR code.
func serveSessionQR(gw *Gateway, prefix string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		snap, ok := gw.Sessions.Snapshot(ps.ByName("code"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(r, prefix, snap.Code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
