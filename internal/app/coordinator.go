package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"quiz-live-service/internal/domain"
)

// DefaultExaminerName is the reserved display name of the examiner connection.
const DefaultExaminerName = "Examiner"

// Coordinator runs live sessions: membership, question activation, scoring,
// ranking and finalization. Each session is guarded by its own lock, so
// different session codes never contend.
type Coordinator struct {
	sessions SessionRepository
	quizzes  QuizRepository
	status   StatusRepository
	results  ResultStore
	room     Room
	examiner string

	hmu     sync.Mutex
	handles map[domain.ConnectionHandle]handleBinding
}

// handleBinding is the session and display name a connection joined as.
type handleBinding struct {
	code string
	name string
}

func NewCoordinator(sessions SessionRepository, quizzes QuizRepository, status StatusRepository, results ResultStore, room Room) *Coordinator {
	return &Coordinator{
		sessions: sessions,
		quizzes:  quizzes,
		status:   status,
		results:  results,
		room:     room,
		examiner: DefaultExaminerName,
		handles:  make(map[domain.ConnectionHandle]handleBinding),
	}
}

// WithExaminerName overrides the reserved examiner identity.
func (c *Coordinator) WithExaminerName(name string) *Coordinator {
	if name = strings.TrimSpace(name); name != "" {
		c.examiner = name
	}
	return c
}

// ExaminerName returns the reserved examiner identity.
func (c *Coordinator) ExaminerName() string {
	return c.examiner
}

// Join registers or refreshes a participant, or attaches the examiner, and
// returns the roster and leaderboard. A connection joins one session under
// one name; joining again with the same pair is a no-op refresh.
func (c *Coordinator) Join(ctx context.Context, code, name string, handle domain.ConnectionHandle) (domain.Snapshot, error) {
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code == "" {
		return domain.Snapshot{}, domain.ErrMissingSessionCode
	}
	if name == "" {
		return domain.Snapshot{}, domain.ErrMissingDisplayName
	}
	fresh, err := c.claimHandle(handle, code, name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snapshot, err := c.join(ctx, code, name, handle)
	if err != nil && fresh {
		c.unbindHandle(handle)
	}
	return snapshot, err
}

func (c *Coordinator) join(ctx context.Context, code, name string, handle domain.ConnectionHandle) (domain.Snapshot, error) {
	isExaminer := name == c.examiner
	live := !isExaminer && c.isLive(ctx, code)

	session, err := c.sessions.GetOrCreate(ctx, code)
	if err != nil {
		return domain.Snapshot{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		return domain.Snapshot{}, domain.ErrSessionFinalized
	}

	c.room.Join(code, handle)

	if isExaminer {
		snapshot := session.snapshotLocked()
		c.room.SendTo(handle, domain.NewEvent(participantsChanged(name, domain.ActionJoined, snapshot)))
		if session.active != nil {
			c.room.SendTo(handle, domain.NewEvent(domain.NewQuestionActivated(*session.active)))
		}
		return snapshot, nil
	}

	session.joinLocked(name, handle)
	snapshot := session.snapshotLocked()
	c.room.Send(code, domain.NewEvent(participantsChanged(name, domain.ActionJoined, snapshot)))
	if live {
		c.room.SendTo(handle, domain.NewEvent(domain.NewSessionStarted(code, session.now())))
	}
	if session.active != nil {
		c.room.SendTo(handle, domain.NewEvent(domain.NewQuestionActivated(*session.active)))
	}
	return snapshot, nil
}

// Leave handles a closed connection. Points already earned stay with the
// removed record; an unanswered active question is simply never scored.
func (c *Coordinator) Leave(_ context.Context, handle domain.ConnectionHandle) {
	bound, ok := c.unbindHandle(handle)
	if !ok {
		return
	}
	session, ok := c.sessions.Get(bound.code)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		// standings are frozen until the results are persisted
		session.detachHandleLocked(handle)
		return
	}
	for _, participant := range session.removeByHandleLocked(handle) {
		c.room.Send(bound.code, domain.NewEvent(participantsChanged(participant.Name, domain.ActionLeft, session.snapshotLocked())))
	}
}

// StartSession moves the exam to live and tells the room.
func (c *Coordinator) StartSession(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrMissingSessionCode
	}
	if err := c.status.SetStatus(ctx, code, domain.StatusLive); err != nil {
		return c.statusError(code, err)
	}

	session, err := c.sessions.GetOrCreate(ctx, code)
	if err != nil {
		return err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		return domain.ErrSessionFinalized
	}
	session.touchLocked()
	c.room.Send(code, domain.NewEvent(domain.NewSessionStarted(code, session.now())))
	return nil
}

// RequestStatus replays the live state to a single (re)connecting client.
func (c *Coordinator) RequestStatus(ctx context.Context, code string, handle domain.ConnectionHandle) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrMissingSessionCode
	}
	session, ok := c.sessions.Get(code)
	if c.isLive(ctx, code) {
		c.room.SendTo(handle, domain.NewEvent(domain.NewSessionStarted(code, sessionClock(session, ok))))
	}
	if !ok {
		return nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.active != nil {
		c.room.SendTo(handle, domain.NewEvent(domain.NewQuestionActivated(*session.active)))
	}
	return nil
}

// ActivateQuestion replaces the active question of a started session and
// pushes it to every connected participant.
func (c *Coordinator) ActivateQuestion(ctx context.Context, code string, question domain.Question, index int) (domain.ActiveQuestion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ActiveQuestion{}, domain.ErrMissingSessionCode
	}
	if question.Text == "" && len(question.Options) == 0 {
		return domain.ActiveQuestion{}, domain.ErrMissingQuestion
	}
	if index < 0 {
		return domain.ActiveQuestion{}, domain.ErrQuestionNotFound
	}
	if err := question.Validate(); err != nil {
		return domain.ActiveQuestion{}, err
	}
	if err := c.requireLive(ctx, code); err != nil {
		return domain.ActiveQuestion{}, err
	}

	session, err := c.sessions.GetOrCreate(ctx, code)
	if err != nil {
		return domain.ActiveQuestion{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		return domain.ActiveQuestion{}, domain.ErrSessionFinalized
	}

	active := session.activateLocked(question, index, question.CorrectOptionIndex())
	event := domain.NewEvent(domain.NewQuestionActivated(active))
	for _, handle := range session.participantHandlesLocked() {
		c.room.SendTo(handle, event)
	}
	return active, nil
}

// ActivateQuestionAt activates a question taken from the stored quiz definition.
func (c *Coordinator) ActivateQuestionAt(ctx context.Context, code string, index int) (domain.ActiveQuestion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ActiveQuestion{}, domain.ErrMissingSessionCode
	}
	quiz, err := c.quizzes.GetQuiz(ctx, code)
	if err != nil {
		return domain.ActiveQuestion{}, err
	}
	if index < 0 || index >= len(quiz.Questions) {
		return domain.ActiveQuestion{}, domain.ErrQuestionNotFound
	}
	return c.ActivateQuestion(ctx, code, quiz.Questions[index], index)
}

// Submit scores one answer to the active question and broadcasts the new
// leaderboard together with the outcome. The first answer per participant wins.
func (c *Coordinator) Submit(_ context.Context, code, name string, chosen int, responseSeconds float64) (domain.Submission, error) {
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code == "" {
		return domain.Submission{}, domain.ErrMissingSessionCode
	}
	if name == "" {
		return domain.Submission{}, domain.ErrMissingDisplayName
	}
	if name == c.examiner {
		return domain.Submission{}, domain.ErrReservedName
	}
	if !validResponseTime(responseSeconds) {
		return domain.Submission{}, domain.ErrInvalidResponseTime
	}
	session, ok := c.sessions.Get(code)
	if !ok {
		return domain.Submission{}, domain.ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		return domain.Submission{}, domain.ErrSessionFinalized
	}
	submission, err := session.submitLocked(name, chosen, responseSeconds)
	if err != nil {
		return domain.Submission{}, err
	}

	active := session.active
	c.room.Send(code, domain.NewEvent(domain.LeaderboardUpdated{
		Leaderboard: session.leaderboardLocked(),
		LastSubmission: domain.SubmissionOutcome{
			Name:                submission.Name,
			IsCorrect:           submission.IsCorrect,
			Points:              submission.AwardedPoints,
			ChosenOptionIndex:   submission.ChosenOptionIndex,
			ResponseTimeSeconds: submission.ResponseTimeSeconds,
			CorrectOptionIndex:  active.CorrectOptionIndex,
			CorrectOptionText:   active.Options[active.CorrectOptionIndex],
		},
	}))
	return submission, nil
}

// Snapshot returns the current roster and leaderboard.
func (c *Coordinator) Snapshot(_ context.Context, code string) (domain.Snapshot, error) {
	session, ok := c.sessions.Get(strings.TrimSpace(code))
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshotLocked(), nil
}

// EndSession closes the exam, broadcasts the final leaderboard and persists it.
// On a finalize failure the session stays in memory and Finalize can be retried.
func (c *Coordinator) EndSession(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrMissingSessionCode
	}
	if err := c.status.SetStatus(ctx, code, domain.StatusEnded); err != nil {
		log.Printf("end session %s: status update failed: %v", code, err)
	}

	session, ok := c.sessions.Get(code)
	if !ok {
		c.room.Send(code, domain.NewEvent(domain.SessionEnded{Code: code, FinalLeaderboard: []domain.LeaderboardEntry{}}))
		return nil
	}

	session.mu.Lock()
	if session.finalized {
		session.mu.Unlock()
		return domain.ErrSessionFinalized
	}
	session.closed = true
	session.touchLocked()
	c.room.Send(code, domain.NewEvent(domain.SessionEnded{Code: code, FinalLeaderboard: session.leaderboardLocked()}))
	session.mu.Unlock()

	_, err := c.Finalize(ctx, code)
	return err
}

// Finalize replaces the stored results of a session with its current
// leaderboard and then drops the session. It returns the number of records
// written; an empty leaderboard writes nothing.
func (c *Coordinator) Finalize(ctx context.Context, code string) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, domain.ErrMissingSessionCode
	}
	session, ok := c.sessions.Get(code)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}

	session.finalizeMu.Lock()
	defer session.finalizeMu.Unlock()

	session.mu.Lock()
	if session.finalized {
		session.mu.Unlock()
		return 0, domain.ErrSessionFinalized
	}
	session.closed = true
	leaderboard := session.leaderboardLocked()
	at := session.now()
	session.mu.Unlock()

	if len(leaderboard) > 0 {
		if err := c.results.DeleteResults(ctx, code); err != nil {
			log.Printf("finalize %s: delete results: %v", code, err)
			return 0, fmt.Errorf("%w: delete results: %v", domain.ErrFinalizeFailed, err)
		}
		for _, entry := range leaderboard {
			record := domain.ResultRecord{
				SessionCode:       code,
				ParticipantName:   entry.Name,
				FinalRank:         entry.Rank,
				Points:            entry.Points,
				Accuracy:          entry.Accuracy,
				AvgResponseTimeMs: entry.AvgResponseTimeMs,
				AnsweredCount:     entry.AnsweredCount,
				CorrectCount:      entry.CorrectCount,
				CreatedAt:         at,
			}
			if err := c.results.InsertResult(ctx, record); err != nil {
				log.Printf("finalize %s: insert result for %s: %v", code, entry.Name, err)
				return 0, fmt.Errorf("%w: insert result: %v", domain.ErrFinalizeFailed, err)
			}
		}
	}

	session.mu.Lock()
	session.finalized = true
	session.mu.Unlock()
	c.sessions.Delete(code)
	c.forgetSession(code)
	if err := c.quizzes.Invalidate(ctx, code); err != nil {
		log.Printf("finalize %s: invalidate quiz cache: %v", code, err)
	}
	return len(leaderboard), nil
}

func (c *Coordinator) isLive(ctx context.Context, code string) bool {
	status, err := c.status.Status(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			log.Printf("status lookup for %s failed: %v", code, err)
		}
		return false
	}
	return status == domain.StatusLive
}

func (c *Coordinator) requireLive(ctx context.Context, code string) error {
	status, err := c.status.Status(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.ErrSessionNotStarted
		}
		return c.statusError(code, err)
	}
	if status != domain.StatusLive {
		return domain.ErrSessionNotStarted
	}
	return nil
}

func (c *Coordinator) statusError(code string, err error) error {
	if errors.Is(err, domain.ErrQuizNotFound) {
		return err
	}
	log.Printf("status store for %s: %v", code, err)
	return fmt.Errorf("%w: %v", domain.ErrStatusUnavailable, err)
}

// claimHandle binds handle to (code, name). It reports whether the binding is
// new and refuses a handle already bound to a different pair.
func (c *Coordinator) claimHandle(handle domain.ConnectionHandle, code, name string) (bool, error) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if bound, ok := c.handles[handle]; ok {
		if bound.code == code && bound.name == name {
			return false, nil
		}
		return false, domain.ErrAlreadyJoined
	}
	c.handles[handle] = handleBinding{code: code, name: name}
	return true, nil
}

func (c *Coordinator) unbindHandle(handle domain.ConnectionHandle) (handleBinding, bool) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	bound, ok := c.handles[handle]
	delete(c.handles, handle)
	return bound, ok
}

func (c *Coordinator) forgetSession(code string) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	for handle, bound := range c.handles {
		if bound.code == code {
			delete(c.handles, handle)
		}
	}
}

// maxResponseSeconds bounds reported response times so their millisecond sum stays exact.
const maxResponseSeconds = 24 * 60 * 60

func validResponseTime(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds >= 0 && seconds <= maxResponseSeconds
}

func participantsChanged(name, action string, snapshot domain.Snapshot) domain.ParticipantsChanged {
	return domain.ParticipantsChanged{
		Name:              name,
		Action:            action,
		Participants:      snapshot.Participants,
		Leaderboard:       snapshot.Leaderboard,
		TotalParticipants: snapshot.TotalParticipants,
	}
}

func sessionClock(session *Session, ok bool) time.Time {
	if ok {
		return session.now()
	}
	return time.Now()
}
