package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/pgtools/internal/session"
)

// handleSSE is the subscribe endpoint. No identifier creates a session; an
// unrecognized client-supplied identifier creates one under that id.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	var sess *session.Session
	if id := r.URL.Query().Get("sessionId"); id == "" {
		sess = s.store.Create(session.KindSSE)
	} else {
		sess, _ = s.store.GetOrCreate(id, session.KindSSE)
	}
	s.serveStream(w, r, sess)
}

// serveStream emits the session identifier as the first event, then periodic
// keep-alive pings until the peer disconnects or a write fails. There is no
// event buffering: a peer that stops reading loses the stream and its
// session. Disconnect terminates the session; queries already past pool
// acquisition finish undisturbed.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	defer s.store.Terminate(sess.ID)

	if err := writeEvent(w, flusher, map[string]string{
		"sessionId": sess.ID,
		"status":    "connected",
	}); err != nil {
		return
	}

	ticker := time.NewTicker(s.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("stream closed by peer", "session", sess.ID)
			return
		case <-ticker.C:
			if err := writeEvent(w, flusher, map[string]string{"ping": "pong"}); err != nil {
				slog.Warn("keep-alive write failed", "session", sess.ID, "error", err)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
