package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-live-service/internal/domain"
)

// ResultStore keeps finalized results in memory, for demos and tests.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.ResultRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string][]domain.ResultRecord)}
}

func (s *ResultStore) DeleteResults(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, code)
	return nil
}

func (s *ResultStore) InsertResult(_ context.Context, record domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[record.SessionCode] = append(s.results[record.SessionCode], record)
	return nil
}

// ListResults returns the stored results of a session ordered by rank.
func (s *ResultStore) ListResults(_ context.Context, code string) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	records := make([]domain.ResultRecord, len(s.results[code]))
	copy(records, s.results[code])
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].FinalRank < records[j].FinalRank
	})
	return records, nil
}
