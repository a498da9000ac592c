package memory

import (
	"context"
	"sync"
	"time"

	"quiz-live-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// The map lock only guards lookups; each session carries its own lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	clock    func() time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock lets tests control session timestamps.
func NewSessionStoreWithClock(clock func() time.Time) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		clock:    clock,
	}
}

func (s *SessionStore) GetOrCreate(_ context.Context, code string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[code]; ok {
		return session, nil
	}
	session := app.NewSessionWithClock(code, s.clock)
	s.sessions[code] = session
	return session, nil
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepIdle drops sessions with no activity for longer than idle and returns their codes.
func (s *SessionStore) SweepIdle(idle time.Duration) []string {
	cutoff := s.clock().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	var swept []string
	for code, session := range s.sessions {
		if session.LastActivity().Before(cutoff) {
			delete(s.sessions, code)
			swept = append(swept, code)
		}
	}
	return swept
}
