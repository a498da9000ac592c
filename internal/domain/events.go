package domain

import (
	"errors"
	"time"
)

// EventType names an outbound message broadcast to a room or a single connection.
type EventType string

const (
	EventParticipantsChanged EventType = "participantsChanged"
	EventQuestionActivated   EventType = "questionActivated"
	EventLeaderboardUpdated  EventType = "leaderboardUpdated"
	EventSessionStarted      EventType = "sessionStarted"
	EventSessionEnded        EventType = "sessionEnded"
	EventError               EventType = "error"
)

// Payload is implemented only by the outbound payload types in this file.
type Payload interface {
	eventType() EventType
}

// Event is the envelope written to clients.
type Event struct {
	Type    EventType `json:"type"`
	Payload Payload   `json:"payload"`
}

// NewEvent wraps a payload with its matching type tag.
func NewEvent(p Payload) Event {
	return Event{Type: p.eventType(), Payload: p}
}

const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)

type ParticipantsChanged struct {
	Name              string             `json:"name"`
	Action            string             `json:"action"`
	Participants      []string           `json:"participants"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
	TotalParticipants int                `json:"totalParticipants"`
}

func (ParticipantsChanged) eventType() EventType { return EventParticipantsChanged }

// QuestionActivated is what participants see of an active question; the
// correct option is never included.
type QuestionActivated struct {
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"perQuestionTimeLimitSeconds"`
	QuestionIndex    int      `json:"questionIndex"`
	StartTimestamp   int64    `json:"startTimestamp"`
}

func (QuestionActivated) eventType() EventType { return EventQuestionActivated }

// NewQuestionActivated projects an active question for clients.
func NewQuestionActivated(q ActiveQuestion) QuestionActivated {
	return QuestionActivated{
		Text:             q.Text,
		Options:          q.Options,
		TimeLimitSeconds: q.AnswerWindowSeconds,
		QuestionIndex:    q.Index,
		StartTimestamp:   q.StartedAt.UnixMilli(),
	}
}

// SubmissionOutcome reports the most recently scored answer to the whole room.
type SubmissionOutcome struct {
	Name                string  `json:"name"`
	IsCorrect           bool    `json:"isCorrect"`
	Points              int     `json:"points"`
	ChosenOptionIndex   int     `json:"chosenOptionIndex"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
	CorrectOptionIndex  int     `json:"correctOptionIndex"`
	CorrectOptionText   string  `json:"correctOptionText"`
}

type LeaderboardUpdated struct {
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	LastSubmission SubmissionOutcome  `json:"lastSubmissionOutcome"`
}

func (LeaderboardUpdated) eventType() EventType { return EventLeaderboardUpdated }

type SessionStarted struct {
	Code      string `json:"code"`
	StartedAt int64  `json:"startedAt"`
}

func (SessionStarted) eventType() EventType { return EventSessionStarted }

// NewSessionStarted stamps a start notification.
func NewSessionStarted(code string, at time.Time) SessionStarted {
	return SessionStarted{Code: code, StartedAt: at.UnixMilli()}
}

type SessionEnded struct {
	Code             string             `json:"code"`
	FinalLeaderboard []LeaderboardEntry `json:"finalLeaderboard"`
}

func (SessionEnded) eventType() EventType { return EventSessionEnded }

// ErrorPayload is sent only to the connection whose request failed.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (ErrorPayload) eventType() EventType { return EventError }

// NewErrorPayload classifies err by its taxonomy sentinel.
func NewErrorPayload(err error) ErrorPayload {
	kind := "internal"
	switch {
	case errors.Is(err, ErrValidation):
		kind = "validation"
	case errors.Is(err, ErrStateConflict):
		kind = "state_conflict"
	case errors.Is(err, ErrCollaborator):
		kind = "collaborator"
	}
	return ErrorPayload{Kind: kind, Message: err.Error()}
}
