package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		want error
	}{
		{"ok", Question{Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: "4"}, nil},
		{"blank text", Question{Text: " ", Options: []string{"3", "4"}, CorrectOption: "4"}, ErrInvalidQuestion},
		{"one option", Question{Text: "2+2?", Options: []string{"4"}, CorrectOption: "4"}, ErrInvalidQuestion},
		{"answer not an option", Question{Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: "22"}, ErrCorrectOptionMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCorrectOptionIndexFirstMatchWins(t *testing.T) {
	q := Question{Options: []string{"a", "b", "b"}, CorrectOption: "b"}
	if got := q.CorrectOptionIndex(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestTimeLimitDefaultsToTwoMinutes(t *testing.T) {
	if got := (Question{}).TimeLimitSeconds(); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := (Question{TimeMinutes: 0.5}).TimeLimitSeconds(); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
}

func TestParticipantAverages(t *testing.T) {
	p := Participant{AnsweredCount: 4, CorrectCount: 3, TotalResponseTimeMs: 10000}
	if p.Accuracy() != 0.75 {
		t.Fatalf("expected 0.75, got %v", p.Accuracy())
	}
	if p.AvgResponseTimeMs() != 2500 {
		t.Fatalf("expected 2500, got %v", p.AvgResponseTimeMs())
	}
	var fresh Participant
	if fresh.Accuracy() != 0 || fresh.AvgResponseTimeMs() != 0 {
		t.Fatalf("expected zero stats for a participant without answers")
	}
}

func TestErrorPayloadKinds(t *testing.T) {
	cases := map[error]string{
		ErrInvalidOption:       "validation",
		ErrDuplicateSubmission: "state_conflict",
		fmt.Errorf("%w: db down", ErrFinalizeFailed): "collaborator",
		errors.New("boom"): "internal",
	}
	for err, want := range cases {
		if got := NewErrorPayload(err).Kind; got != want {
			t.Fatalf("%v: expected %s, got %s", err, want, got)
		}
	}
}
