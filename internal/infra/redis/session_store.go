package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Session state stays in a local map; live sessions are ephemeral and
//     never serialized.
//   - Redis carries an ownership marker per session code. The instance that
//     sets it first runs the session; the others refuse it until the marker
//     is deleted or expires, so clients must be routed to the owner.
//   - Redis is never called while the map lock is held.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, instance string) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		instance: instance,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(ctx context.Context, code string) (*app.Session, error) {
	if session, ok := s.Get(code); ok {
		return session, nil
	}
	if err := s.claim(ctx, code); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[code]; ok {
		return session, nil
	}
	session := app.NewSession(code)
	s.sessions[code] = session
	return session, nil
}

// claim takes the ownership marker of code for this instance.
func (s *SessionStore) claim(ctx context.Context, code string) error {
	// a second round covers a marker expiring between SETNX and GET
	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := s.client.SetNX(ctx, s.key(code), s.instance, s.ttl).Result()
		if err != nil {
			return fmt.Errorf("%w: claim %s: %v", domain.ErrSessionStoreDown, code, err)
		}
		if claimed {
			return nil
		}
		owner, err := s.Owner(ctx, code)
		if err != nil {
			return fmt.Errorf("%w: owner of %s: %v", domain.ErrSessionStoreDown, code, err)
		}
		if owner == s.instance {
			return nil
		}
		if owner != "" {
			return fmt.Errorf("%w: %s runs on %s", domain.ErrSessionOwnedElsewhere, code, owner)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrSessionOwnedElsewhere, code)
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	_, ok := s.sessions[code]
	delete(s.sessions, code)
	s.mu.Unlock()
	if ok {
		_ = s.client.Del(context.Background(), s.key(code)).Err()
	}
}

// Refresh extends the ownership markers of every local session and drops
// sessions idle for longer than idle. It returns the dropped codes.
func (s *SessionStore) Refresh(ctx context.Context, idle time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-idle)

	var live, swept []string
	s.mu.Lock()
	for code, session := range s.sessions {
		if idle > 0 && session.LastActivity().Before(cutoff) {
			delete(s.sessions, code)
			swept = append(swept, code)
			continue
		}
		live = append(live, code)
	}
	s.mu.Unlock()

	if len(live) == 0 && len(swept) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	for _, code := range swept {
		pipe.Del(ctx, s.key(code))
	}
	for _, code := range live {
		pipe.Set(ctx, s.key(code), s.instance, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return swept, err
}

// Owner returns the instance that currently runs code, if any.
func (s *SessionStore) Owner(ctx context.Context, code string) (string, error) {
	owner, err := s.client.Get(ctx, s.key(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return owner, err
}

func (s *SessionStore) key(code string) string {
	return "quiz:session:" + code
}
