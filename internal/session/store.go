// Package session tracks per-client sessions across both transports. One
// identifier namespace covers stdio and HTTP alike: an identifier, once live,
// maps to exactly one session state until terminated.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/pgtools/internal/db"
)

// Kind names the transport a session is bound to.
type Kind string

const (
	KindStdio Kind = "stdio"
	KindHTTP  Kind = "http"
	KindSSE   Kind = "sse"
)

// Session is one client conversation. Each session owns a dedicated executor
// handle over the process-wide pool; executors are never shared across
// sessions.
type Session struct {
	ID        string
	Kind      Kind
	Exec      *db.Executor
	CreatedAt time.Time
}

// Store owns the identifier-to-session mapping. All access goes through the
// mutex; two requests racing to create the same identifier resolve to a
// single surviving session.
type Store struct {
	mu       sync.Mutex
	pool     db.Pool
	sessions map[string]*Session
}

func NewStore(pool db.Pool) *Store {
	return &Store{
		pool:     pool,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session under a generated identifier.
func (s *Store) Create(kind Kind) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(uuid.NewString(), kind)
}

// GetOrCreate returns the session for id, creating it when absent. created
// reports whether this call made it.
func (s *Store) GetOrCreate(id string, kind Kind) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	return s.createLocked(id, kind), true
}

func (s *Store) createLocked(id string, kind Kind) *Session {
	sess := &Session{
		ID:        id,
		Kind:      kind,
		Exec:      db.NewExecutor(s.pool),
		CreatedAt: time.Now(),
	}
	s.sessions[id] = sess
	slog.Info("session created", "id", id, "transport", kind)
	return sess
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Terminate removes the session and releases its executor handle. Terminating
// an absent identifier is a no-op. In-flight queries past the acquisition
// point are unaffected; sessions hold no persistent connection.
func (s *Store) Terminate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	slog.Info("session terminated", "id", id)
}

// CloseAll terminates every open session. Called on process shutdown.
func (s *Store) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sessions {
		delete(s.sessions, id)
	}
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
