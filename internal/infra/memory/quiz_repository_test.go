package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-live-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"QZ1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "QZ1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "QZ1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), "QZ1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "QZ1"); err != nil {
		t.Fatalf("get quiz 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestStaticQuizLoaderRejectsUnmatchedCorrectOption(t *testing.T) {
	broken := sampleQuiz()
	broken.Questions[0].CorrectOption = "four"
	loader := NewStaticQuizLoader(map[string]domain.Quiz{"QZ1": broken})

	if _, err := loader.LoadQuiz(context.Background(), "QZ1"); !errors.Is(err, domain.ErrCorrectOptionMismatch) {
		t.Fatalf("expected correct option mismatch, got %v", err)
	}
	if _, err := loader.LoadQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, code)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Code:  "QZ1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4"},
				CorrectOption: "4",
				TimeMinutes:   1,
			},
		},
	}
}
