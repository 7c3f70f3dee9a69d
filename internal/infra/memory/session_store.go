package memory

import (
	"sync"

	"sheets-quiz-service/internal/app"
)

// SessionStore is the in-memory implementation of app.SessionRepository. One
// live session per email: Register refuses a second concurrent attempt.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Register(email string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[email]; ok {
		return false
	}
	s.sessions[email] = session
	return true
}

func (s *SessionStore) Get(email string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[email]
	return session, ok
}

func (s *SessionStore) Remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, email)
}
