package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks requests rejected before touching session state.
	ErrValidation = errors.New("validation error")
	// ErrStateConflict marks requests that do not fit the current session state.
	ErrStateConflict = errors.New("state conflict")
	// ErrCollaborator marks failures of an external store.
	ErrCollaborator = errors.New("collaborator failure")
)

var (
	ErrMissingSessionCode    = fmt.Errorf("%w: missing session code", ErrValidation)
	ErrMissingDisplayName    = fmt.Errorf("%w: missing display name", ErrValidation)
	ErrMissingQuestion       = fmt.Errorf("%w: missing question", ErrValidation)
	ErrInvalidQuestion       = fmt.Errorf("%w: question needs text and at least two options", ErrValidation)
	ErrCorrectOptionMismatch = fmt.Errorf("%w: correct option does not match any option", ErrValidation)
	ErrInvalidOption         = fmt.Errorf("%w: chosen option out of range", ErrValidation)
	ErrInvalidResponseTime   = fmt.Errorf("%w: response time must be a finite number of seconds within a day", ErrValidation)
	ErrReservedName          = fmt.Errorf("%w: display name is reserved", ErrValidation)
	// ErrQuestionNotFound indicates a question index outside the quiz definition.
	ErrQuestionNotFound = fmt.Errorf("%w: question not found", ErrValidation)
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("%w: quiz not found", ErrValidation)
)

var (
	// ErrSessionNotFound is returned when a live session has not been initialized.
	ErrSessionNotFound = fmt.Errorf("%w: live session not found", ErrStateConflict)
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = fmt.Errorf("%w: participant not found in session", ErrStateConflict)
	ErrNoActiveQuestion    = fmt.Errorf("%w: no active question", ErrStateConflict)
	ErrDuplicateSubmission = fmt.Errorf("%w: answer already recorded for this question", ErrStateConflict)
	ErrSessionNotStarted   = fmt.Errorf("%w: exam has not been started", ErrStateConflict)
	ErrSessionFinalized    = fmt.Errorf("%w: session already finalized", ErrStateConflict)
	// ErrAlreadyJoined is returned when a connection joins a second time under another name or code.
	ErrAlreadyJoined = fmt.Errorf("%w: connection already joined as another participant", ErrStateConflict)
	// ErrSessionOwnedElsewhere is returned when another instance runs the session.
	ErrSessionOwnedElsewhere = fmt.Errorf("%w: session is running on another instance", ErrStateConflict)
)

var (
	ErrStatusUnavailable = fmt.Errorf("%w: exam status unavailable", ErrCollaborator)
	ErrFinalizeFailed    = fmt.Errorf("%w: finalize failed", ErrCollaborator)
	ErrSessionStoreDown  = fmt.Errorf("%w: session store unavailable", ErrCollaborator)
)
