package app

import (
	"context"

	"quiz-live-service/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
// GetOrCreate fails with domain.ErrSessionOwnedElsewhere when another instance runs code.
type SessionRepository interface {
	GetOrCreate(ctx context.Context, code string) (*Session, error)
	Get(code string) (*Session, bool)
	Delete(code string)
}

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, code string) (domain.Quiz, error)
	// Invalidate drops a cached definition so the next session reloads it.
	Invalidate(ctx context.Context, code string) error
}

// StatusRepository owns the exam status transitions ready -> live -> ended.
type StatusRepository interface {
	Status(ctx context.Context, code string) (domain.ExamStatus, error)
	SetStatus(ctx context.Context, code string, status domain.ExamStatus) error
}

// ResultStore persists final standings. DeleteResults followed by
// InsertResult calls is not atomic; callers retry the whole sequence.
type ResultStore interface {
	DeleteResults(ctx context.Context, code string) error
	InsertResult(ctx context.Context, record domain.ResultRecord) error
}

// Room delivers events to named sets of connections.
// Implementations must not block: the coordinator calls them while holding a session lock.
type Room interface {
	Join(room string, handle domain.ConnectionHandle)
	Send(room string, event domain.Event)
	SendTo(handle domain.ConnectionHandle, event domain.Event)
}
