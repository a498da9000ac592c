package domain

import (
	"fmt"
	"strings"
	"time"
)

// ConnectionHandle addresses one live client connection.
type ConnectionHandle string

// ExamStatus is the lifecycle state owned by the quiz-definition store.
type ExamStatus string

const (
	StatusReady ExamStatus = "ready"
	StatusLive  ExamStatus = "live"
	StatusEnded ExamStatus = "ended"
)

// Phase is the coordinator's view of a live session. PhaseEnded means the
// exam is over but its results are not persisted yet.
type Phase string

const (
	PhaseJoinable       Phase = "joinable"
	PhaseQuestionActive Phase = "question_active"
	PhaseEnded          Phase = "ended"
	PhaseFinalized      Phase = "finalized"
)

// Participant represents a joined player and their accumulated statistics.
type Participant struct {
	Name                string
	Handle              ConnectionHandle
	Points              int
	AnsweredCount       int
	CorrectCount        int
	TotalResponseTimeMs int64
	JoinedAt            time.Time
}

// Accuracy is the share of answered questions that were correct, in [0, 1].
func (p Participant) Accuracy() float64 {
	if p.AnsweredCount == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.AnsweredCount)
}

// AvgResponseTimeMs is the mean response time over answered questions.
func (p Participant) AvgResponseTimeMs() float64 {
	if p.AnsweredCount == 0 {
		return 0
	}
	return float64(p.TotalResponseTimeMs) / float64(p.AnsweredCount)
}

// Question is a multiple-choice question as authored in a quiz definition.
// CorrectOption holds the text of the right answer, not its index.
type Question struct {
	Text          string   `json:"questionText" yaml:"questionText"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption string   `json:"correctOption" yaml:"correctOption"`
	TimeMinutes   float64  `json:"time" yaml:"time"`
}

// DefaultQuestionMinutes applies when a question carries no time limit.
const DefaultQuestionMinutes = 2

// TimeLimitSeconds returns the per-question answer window.
func (q Question) TimeLimitSeconds() int {
	minutes := q.TimeMinutes
	if minutes <= 0 {
		minutes = DefaultQuestionMinutes
	}
	return int(minutes * 60)
}

// CorrectOptionIndex locates the option whose text equals CorrectOption.
// It returns -1 when nothing matches; the first match wins on duplicates.
func (q Question) CorrectOptionIndex() int {
	for i, opt := range q.Options {
		if opt == q.CorrectOption {
			return i
		}
	}
	return -1
}

// Validate checks the authored shape of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" || len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	if q.CorrectOptionIndex() < 0 {
		return ErrCorrectOptionMismatch
	}
	return nil
}

// Quiz is a collection of questions addressed by its session code.
type Quiz struct {
	Code      string     `json:"code" yaml:"code"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// ActiveQuestion is the question currently open for answers in a session.
type ActiveQuestion struct {
	Index               int
	Text                string
	Options             []string
	CorrectOptionIndex  int
	StartedAt           time.Time
	AnswerWindowSeconds int
}

// Submission is one participant's recorded answer to the active question.
type Submission struct {
	Name                string    `json:"name"`
	ChosenOptionIndex   int       `json:"chosenOptionIndex"`
	IsCorrect           bool      `json:"isCorrect"`
	ResponseTimeSeconds float64   `json:"responseTimeSeconds"`
	RecordedAt          time.Time `json:"recordedAt"`
	AwardedPoints       int       `json:"awardedPoints"`
}

// LeaderboardEntry is a ranked view of a participant.
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	Name              string  `json:"name"`
	Points            int     `json:"points"`
	Accuracy          float64 `json:"accuracy"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	AnsweredCount     int     `json:"answeredCount"`
	CorrectCount      int     `json:"correctCount"`
}

// Snapshot is the roster and leaderboard of a session at one point in time.
type Snapshot struct {
	Code              string             `json:"code"`
	Phase             Phase              `json:"phase"`
	Participants      []string           `json:"participants"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
	TotalParticipants int                `json:"totalParticipants"`
}

// ResultRecord is the persisted final standing of one participant.
type ResultRecord struct {
	SessionCode       string    `json:"sessionCode"`
	ParticipantName   string    `json:"participantName"`
	FinalRank         int       `json:"finalRank"`
	Points            int       `json:"points"`
	Accuracy          float64   `json:"accuracy"`
	AvgResponseTimeMs float64   `json:"avgResponseTimeMs"`
	AnsweredCount     int       `json:"answeredCount"`
	CorrectCount      int       `json:"correctCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Validate checks every question of the quiz.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Code) == "" {
		return ErrMissingSessionCode
	}
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
