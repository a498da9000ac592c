package http

import (
	"encoding/json"

	"quiz-live-service/internal/domain"
)

// Inbound message types accepted on the websocket.
const (
	msgJoin             = "join"
	msgStartSession     = "startSession"
	msgActivateQuestion = "activateQuestion"
	msgSubmit           = "submit"
	msgEndSession       = "endSession"
	msgRequestStatus    = "requestStatus"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	SessionCode string `json:"sessionCode"`
	DisplayName string `json:"displayName"`
}

type sessionPayload struct {
	SessionCode string `json:"sessionCode"`
}

// questionPayload is the examiner's wire shape of a question.
type questionPayload struct {
	Text                   string   `json:"text"`
	Options                []string `json:"options"`
	CorrectOptionText      string   `json:"correctOptionText"`
	PerQuestionTimeMinutes float64  `json:"perQuestionTimeMinutes"`
}

func (q questionPayload) toDomain() domain.Question {
	return domain.Question{
		Text:          q.Text,
		Options:       q.Options,
		CorrectOption: q.CorrectOptionText,
		TimeMinutes:   q.PerQuestionTimeMinutes,
	}
}

// activatePayload carries either a full question or just an index into the stored quiz.
type activatePayload struct {
	SessionCode   string           `json:"sessionCode"`
	Question      *questionPayload `json:"question"`
	QuestionIndex int              `json:"questionIndex"`
}

type submitPayload struct {
	SessionCode         string  `json:"sessionCode"`
	DisplayName         string  `json:"displayName"`
	ChosenOptionIndex   *int    `json:"chosenOptionIndex"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidPayload
	}
	return nil
}
