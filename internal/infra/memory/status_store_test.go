package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-live-service/internal/domain"
)

func TestStatusStoreTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewStatusStore("QZ1")

	status, err := store.Status(ctx, "QZ1")
	if err != nil || status != domain.StatusReady {
		t.Fatalf("expected ready, got %q err=%v", status, err)
	}
	if err := store.SetStatus(ctx, "QZ1", domain.StatusLive); err != nil {
		t.Fatalf("set live: %v", err)
	}
	if status, _ := store.Status(ctx, "QZ1"); status != domain.StatusLive {
		t.Fatalf("expected live, got %q", status)
	}
	if err := store.SetStatus(ctx, "missing", domain.StatusLive); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}
