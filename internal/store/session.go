package store

import (
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// SessionStore is a thread-safe in-memory store for client sessions,
// keyed by session_id. Logged-out sessions are kept for lookups.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	active   int
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.Session),
	}
}

// Open adds an active session if fewer than max sessions are active.
// It returns domain.ErrSessionLimit when the limit is reached and the number
// of active sessions after the call otherwise. A non-positive max means
// unlimited.
func (s *SessionStore) Open(sess *domain.Session, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if max > 0 && s.active >= max {
		return s.active, domain.ErrSessionLimit
	}
	s.sessions[sess.SessionID] = sess
	s.active++
	return s.active, nil
}

// Close marks a session as logged out. It returns domain.ErrSessionNotFound
// for unknown or already closed sessions, and the number of active sessions
// remaining otherwise.
func (s *SessionStore) Close(id string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || !sess.Active() {
		return s.active, domain.ErrSessionNotFound
	}
	sess.LoggedOutAt = &at
	s.active--
	return s.active, nil
}

// Get retrieves a copy of a session by ID. It returns
// domain.ErrSessionNotFound if the session does not exist.
func (s *SessionStore) Get(id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return *sess, nil
}

// IsActive returns true if the session exists and is logged on.
func (s *SessionStore) IsActive(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return ok && sess.Active()
}

// Active returns copies of all logged-on sessions, oldest first.
func (s *SessionStore) Active() []domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, s.active)
	for _, sess := range s.sessions {
		if sess.Active() {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedOnAt.Before(out[j].LoggedOnAt) })
	return out
}

// ActiveCount returns the number of logged-on sessions.
func (s *SessionStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}
