package memory

import (
	"sync"

	"quizdesk/internal/app"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry,
// keyed by username. Sessions are ephemeral and never persisted.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Put(username string, s *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[username] = s
}

func (r *SessionRegistry) Get(username string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[username]
	return session, ok
}

func (r *SessionRegistry) Delete(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}
