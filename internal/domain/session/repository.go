package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines session persistence operations. Create relies on a
// partial unique index over (participant_id, quiz_id) for non-terminal
// states, so two concurrent starts can never both succeed.
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetActiveByParticipantAndQuiz(ctx context.Context, participantID, quizID uuid.UUID) (*Session, error)
	Update(ctx context.Context, sess *Session) error
	SetFlagged(ctx context.Context, id uuid.UUID) error

	// LockForUpdate acquires a pessimistic lock so a forced termination and a
	// concurrent submit cannot both win.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Session, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrSessionNotFound indicates a missing session
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e ErrSessionNotFound) Error() string {
	return "session not found: " + e.SessionID.String()
}

// Is matches any ErrSessionNotFound when the target carries a nil id
func (e ErrSessionNotFound) Is(target error) bool {
	t, ok := target.(ErrSessionNotFound)
	if !ok {
		return false
	}
	if t.SessionID == uuid.Nil {
		return true
	}
	return e.SessionID == t.SessionID
}

// ErrDuplicateSession indicates a non-terminal session already exists for
// the (participant, quiz) pair
type ErrDuplicateSession struct {
	ParticipantID uuid.UUID
	QuizID        uuid.UUID
}

func (e ErrDuplicateSession) Error() string {
	return "non-terminal session already exists for participant " + e.ParticipantID.String() + " and quiz " + e.QuizID.String()
}

// Is matches any ErrDuplicateSession when the target carries nil ids
func (e ErrDuplicateSession) Is(target error) bool {
	t, ok := target.(ErrDuplicateSession)
	if !ok {
		return false
	}
	if t.ParticipantID == uuid.Nil && t.QuizID == uuid.Nil {
		return true
	}
	return e.ParticipantID == t.ParticipantID && e.QuizID == t.QuizID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	SessionID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for session: " + e.SessionID.String()
}
