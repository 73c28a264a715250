// Package api is the HTTP/SSE transport adapter. Each endpoint is stateless
// at the wire level; sessions coordinate through the shared store. Session
// identity travels as the sessionId query parameter on the SSE endpoints and
// as the mcp-session-id header on the unified /mcp endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/pgtools/internal/session"
	"github.com/hazyhaar/pgtools/internal/tools"
	"github.com/hazyhaar/pgtools/pkg/audit"
)

const sessionHeader = "mcp-session-id"

type Server struct {
	store *session.Store
	reg   *tools.Registry

	// KeepAlive is the SSE ping interval. Shortened in tests.
	KeepAlive time.Duration
}

func New(store *session.Store, reg *tools.Registry) *Server {
	return &Server{
		store:     store,
		reg:       reg,
		KeepAlive: 30 * time.Second,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /mcp/sse", s.handleSSE)
	mux.HandleFunc("POST /mcp/message", s.handleMessage)
	mux.HandleFunc("POST /mcp", s.handlePost)
	mux.HandleFunc("GET /mcp", s.handleStream)
	mux.HandleFunc("DELETE /mcp", s.handleDelete)
	mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the full route set wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return CORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "pgtools MCP HTTP Server",
		"sessions": s.store.Count(),
	})
}

// handleMessage is the request/response endpoint. A session must already
// exist; dispatch errors come back inside the JSON-RPC envelope, never as a
// dropped connection.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	sess, ok := s.store.Get(id)
	if id == "" || !ok {
		writeJSON(w, http.StatusBadRequest, errResponse(nil, codeInvalidSession, "invalid or missing session ID"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("decoding message failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse(nil, codeInternal, err.Error()))
		return
	}

	ctx := audit.WithTransport(r.Context(), string(sess.Kind))
	writeJSON(w, http.StatusOK, s.processRequest(ctx, sess, &req))
}

// handlePost is the unified endpoint. Without a session header it creates a
// session and returns the identifier both in the body and the response
// header; with one, it dispatches.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		sess := s.store.Create(session.KindHTTP)
		w.Header().Set(sessionHeader, sess.ID)
		writeJSON(w, http.StatusOK, &Response{
			JSONRPC: "2.0",
			ID:      1,
			Result: map[string]any{
				"sessionId": sess.ID,
				"capabilities": map[string]any{
					"tools":     true,
					"resources": false,
					"prompts":   false,
				},
			},
		})
		return
	}

	sess, ok := s.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errResponse(nil, codeInvalidSession, "session not found"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("decoding request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse(nil, codeInternal, err.Error()))
		return
	}

	ctx := audit.WithTransport(r.Context(), string(sess.Kind))
	writeJSON(w, http.StatusOK, s.processRequest(ctx, sess, &req))
}

// handleStream serves the keep-alive event stream for an existing session.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	sess, ok := s.store.Get(id)
	if id == "" || !ok {
		writeJSON(w, http.StatusBadRequest, errResponse(nil, codeInvalidSession, "invalid session ID"))
		return
	}
	s.serveStream(w, r, sess)
}

// handleDelete terminates the named session. Unknown identifiers get the same
// answer: termination is idempotent.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if id := r.Header.Get(sessionHeader); id != "" {
		s.store.Terminate(id)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response failed", "error", err)
	}
}
