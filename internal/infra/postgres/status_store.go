package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-live-service/internal/domain"
)

// StatusStore reads and moves the exam status column of the quizzes table.
type StatusStore struct {
	pool *pgxpool.Pool
}

func NewStatusStore(pool *pgxpool.Pool) *StatusStore {
	return &StatusStore{pool: pool}
}

func (s *StatusStore) Status(ctx context.Context, code string) (domain.ExamStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM quizzes WHERE id=$1`, code).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrQuizNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	return domain.ExamStatus(status), nil
}

func (s *StatusStore) SetStatus(ctx context.Context, code string, status domain.ExamStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET status=$2, updated_at=now() WHERE id=$1`, code, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
