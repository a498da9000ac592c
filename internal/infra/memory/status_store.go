package memory

import (
	"context"
	"sync"

	"quiz-live-service/internal/domain"
)

// StatusStore keeps exam status per quiz code in memory.
type StatusStore struct {
	mu       sync.RWMutex
	statuses map[string]domain.ExamStatus
}

// NewStatusStore registers the given codes in the ready state.
func NewStatusStore(codes ...string) *StatusStore {
	statuses := make(map[string]domain.ExamStatus, len(codes))
	for _, code := range codes {
		statuses[code] = domain.StatusReady
	}
	return &StatusStore{statuses: statuses}
}

func (s *StatusStore) Status(_ context.Context, code string) (domain.ExamStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[code]
	if !ok {
		return "", domain.ErrQuizNotFound
	}
	return status, nil
}

func (s *StatusStore) SetStatus(_ context.Context, code string, status domain.ExamStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[code]; !ok {
		return domain.ErrQuizNotFound
	}
	s.statuses[code] = status
	return nil
}
