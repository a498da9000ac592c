package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-live-service/internal/domain"
)

// ResultStore persists finalized standings in quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) DeleteResults(ctx context.Context, code string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_results WHERE session_code=$1`, code); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

func (s *ResultStore) InsertResult(ctx context.Context, r domain.ResultRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_results
			(session_code, participant_name, final_rank, points, accuracy,
			 avg_response_time_ms, answered_count, correct_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.SessionCode, r.ParticipantName, r.FinalRank, r.Points, r.Accuracy,
		r.AvgResponseTimeMs, r.AnsweredCount, r.CorrectCount, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListResults returns the stored results of a session ordered by rank.
func (s *ResultStore) ListResults(ctx context.Context, code string) ([]domain.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_code, participant_name, final_rank, points, accuracy,
		       avg_response_time_ms, answered_count, correct_count, created_at
		FROM quiz_results WHERE session_code=$1 ORDER BY final_rank`, code)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	records := []domain.ResultRecord{}
	for rows.Next() {
		var r domain.ResultRecord
		if err := rows.Scan(&r.SessionCode, &r.ParticipantName, &r.FinalRank, &r.Points, &r.Accuracy,
			&r.AvgResponseTimeMs, &r.AnsweredCount, &r.CorrectCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
