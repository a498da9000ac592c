package app

import (
	"math"
	"sync"
	"time"

	"quiz-live-service/internal/domain"
)

// Session is the in-memory state of one running quiz. All fields behind mu
// are touched only by the Coordinator while it holds the lock.
type Session struct {
	code string
	now  func() time.Time

	// finalizeMu serializes persistence of results without holding mu across I/O.
	finalizeMu sync.Mutex

	mu           sync.Mutex
	lastActivity time.Time
	participants []*domain.Participant
	byName       map[string]*domain.Participant
	active       *domain.ActiveQuestion
	ledger       []domain.Submission
	answered     map[string]struct{}
	correctSoFar int
	closed       bool
	finalized    bool
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(code string) *Session {
	return newSessionWithClock(code, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(code string, now func() time.Time) *Session {
	return newSessionWithClock(code, now)
}

func newSessionWithClock(code string, now func() time.Time) *Session {
	created := now()
	return &Session{
		code:         code,
		now:          now,
		lastActivity: created,
		byName:       make(map[string]*domain.Participant),
		answered:     make(map[string]struct{}),
	}
}

// Code returns the session code.
func (s *Session) Code() string {
	return s.code
}

// LastActivity reports when the session state last changed.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Phase reports where the session is in its lifecycle.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

// LedgerSize returns the number of answers recorded for the active question.
func (s *Session) LedgerSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

func (s *Session) phaseLocked() domain.Phase {
	switch {
	case s.finalized:
		return domain.PhaseFinalized
	case s.closed:
		return domain.PhaseEnded
	case s.active != nil:
		return domain.PhaseQuestionActive
	default:
		return domain.PhaseJoinable
	}
}

func (s *Session) touchLocked() {
	s.lastActivity = s.now()
}

// joinLocked adds a participant or, for a known name, moves it to the new handle.
func (s *Session) joinLocked(name string, handle domain.ConnectionHandle) *domain.Participant {
	s.touchLocked()
	if participant, ok := s.byName[name]; ok {
		participant.Handle = handle
		return participant
	}
	participant := &domain.Participant{
		Name:     name,
		Handle:   handle,
		JoinedAt: s.now(),
	}
	s.participants = append(s.participants, participant)
	s.byName[name] = participant
	return participant
}

// removeByHandleLocked drops every participant currently bound to handle.
// A stale handle from before a reconnect matches nothing.
func (s *Session) removeByHandleLocked(handle domain.ConnectionHandle) []*domain.Participant {
	var removed []*domain.Participant
	kept := s.participants[:0]
	for _, participant := range s.participants {
		if participant.Handle != handle {
			kept = append(kept, participant)
			continue
		}
		delete(s.byName, participant.Name)
		removed = append(removed, participant)
	}
	for i := len(kept); i < len(s.participants); i++ {
		s.participants[i] = nil
	}
	s.participants = kept
	if len(removed) > 0 {
		s.touchLocked()
	}
	return removed
}

// detachHandleLocked forgets a handle without touching standings.
func (s *Session) detachHandleLocked(handle domain.ConnectionHandle) {
	for _, participant := range s.participants {
		if participant.Handle == handle {
			participant.Handle = ""
		}
	}
}

// activateLocked replaces the active question and clears the ledger.
func (s *Session) activateLocked(question domain.Question, index, correctIndex int) domain.ActiveQuestion {
	options := make([]string, len(question.Options))
	copy(options, question.Options)

	active := domain.ActiveQuestion{
		Index:               index,
		Text:                question.Text,
		Options:             options,
		CorrectOptionIndex:  correctIndex,
		StartedAt:           s.now(),
		AnswerWindowSeconds: question.TimeLimitSeconds(),
	}
	s.active = &active
	s.ledger = nil
	s.answered = make(map[string]struct{})
	s.correctSoFar = 0
	s.touchLocked()
	return active
}

// submitLocked checks and records one answer as a single critical section.
func (s *Session) submitLocked(name string, chosen int, responseSeconds float64) (domain.Submission, error) {
	if s.active == nil {
		return domain.Submission{}, domain.ErrNoActiveQuestion
	}
	if _, dup := s.answered[name]; dup {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}
	participant, ok := s.byName[name]
	if !ok {
		return domain.Submission{}, domain.ErrParticipantNotFound
	}
	if chosen < 0 || chosen >= len(s.active.Options) {
		return domain.Submission{}, domain.ErrInvalidOption
	}

	correct := chosen == s.active.CorrectOptionIndex
	submission := domain.Submission{
		Name:                name,
		ChosenOptionIndex:   chosen,
		IsCorrect:           correct,
		ResponseTimeSeconds: responseSeconds,
		RecordedAt:          s.now(),
		AwardedPoints:       awardFor(correct, s.correctSoFar),
	}
	s.ledger = append(s.ledger, submission)
	s.answered[name] = struct{}{}
	if correct {
		s.correctSoFar++
		participant.CorrectCount++
	}
	participant.Points += submission.AwardedPoints
	participant.AnsweredCount++
	participant.TotalResponseTimeMs += int64(math.Round(responseSeconds * 1000))
	s.touchLocked()
	return submission, nil
}

func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	return rankParticipants(s.participants)
}

func (s *Session) snapshotLocked() domain.Snapshot {
	names := make([]string, 0, len(s.participants))
	for _, participant := range s.participants {
		names = append(names, participant.Name)
	}
	return domain.Snapshot{
		Code:              s.code,
		Phase:             s.phaseLocked(),
		Participants:      names,
		Leaderboard:       s.leaderboardLocked(),
		TotalParticipants: len(s.participants),
	}
}

// participantHandlesLocked lists the handles of connected participants.
func (s *Session) participantHandlesLocked() []domain.ConnectionHandle {
	handles := make([]domain.ConnectionHandle, 0, len(s.participants))
	for _, participant := range s.participants {
		if participant.Handle != "" {
			handles = append(handles, participant.Handle)
		}
	}
	return handles
}
