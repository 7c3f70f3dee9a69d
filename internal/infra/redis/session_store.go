package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sheets-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local in-process map: a live attempt is
//     bound to one websocket connection on one instance.
//   - Redis marks attempt liveness so operators can see who is mid-quiz, and
//     the marker TTL bounds how long a crashed instance blocks a retry.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(email), session.ID(), s.ttl).Err()
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
	if _, ok := s.sessions[email]; !ok {
		return
	}
	delete(s.sessions, email)
	_ = s.client.Del(context.Background(), s.key(email)).Err()
}

func (s *SessionStore) key(email string) string {
	return "quiz:attempt:" + email
}
