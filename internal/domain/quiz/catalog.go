package quiz

import (
	"context"

	"github.com/google/uuid"
)

// Catalog supplies quiz definitions to the session engine. It is read-only
// from this service's perspective; authoring and approval live elsewhere.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Quiz, error)
}

// ErrQuizUnavailable indicates the quiz is missing, unapproved, or outside
// its scheduled window
type ErrQuizUnavailable struct {
	QuizID uuid.UUID
}

func (e ErrQuizUnavailable) Error() string {
	return "quiz not found or not available: " + e.QuizID.String()
}

// Is matches any ErrQuizUnavailable when the target carries a nil id
func (e ErrQuizUnavailable) Is(target error) bool {
	t, ok := target.(ErrQuizUnavailable)
	if !ok {
		return false
	}
	if t.QuizID == uuid.Nil {
		return true
	}
	return e.QuizID == t.QuizID
}
