package quiz

import (
	"time"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

// Status is the catalog publication state of a quiz. Only approved quizzes
// may be attempted; authoring and approval happen outside this service.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusArchived Status = "ARCHIVED"
)

// AntiCheatPolicy holds the per-quiz integrity thresholds consumed by the
// monitor and the risk evaluator.
type AntiCheatPolicy struct {
	AutoEndOnViolation bool                         `json:"auto_end_on_violation"`
	MaxPerKind         map[shared.ViolationKind]int `json:"max_per_kind"`
}

// MaxFor returns the configured per-kind cap, or 0 when the kind is uncapped
func (p AntiCheatPolicy) MaxFor(kind shared.ViolationKind) int {
	if p.MaxPerKind == nil {
		return 0
	}
	return p.MaxPerKind[kind]
}

// Question is one catalog question with its authoritative answer key
type Question struct {
	ID          uuid.UUID          `json:"id"`
	QuizID      uuid.UUID          `json:"quiz_id"`
	Prompt      string             `json:"prompt"`
	Options     []string           `json:"options,omitempty"` // empty for text questions
	Answer      shared.AnswerValue `json:"answer"`
	Explanation string             `json:"explanation,omitempty"`
	Points      int                `json:"points"`
}

// Public returns a copy safe to hand to a participant: the answer key and
// explanation are stripped.
func (q Question) Public() Question {
	q.Answer = shared.AnswerValue{}
	q.Explanation = ""
	return q
}

// Quiz is the read-only catalog record for one assessment
type Quiz struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	CreatorID     uuid.UUID       `json:"creator_id"`
	Status        Status          `json:"status"`
	Price         int64           `json:"price"` // minor units; 0 means free
	Duration      time.Duration   `json:"duration"`
	RevealAnswers bool            `json:"reveal_answers"` // include key+explanations in submit response
	AntiCheat     AntiCheatPolicy `json:"anti_cheat"`
	OpensAt       *time.Time      `json:"opens_at,omitempty"`
	ClosesAt      *time.Time      `json:"closes_at,omitempty"`
	Questions     []Question      `json:"questions"`
}

// Priced reports whether starting a session requires payment
func (q *Quiz) Priced() bool { return q.Price > 0 }

// Available reports whether the quiz can be attempted at the given time
func (q *Quiz) Available(now time.Time) bool {
	if q.Status != StatusApproved {
		return false
	}
	if q.OpensAt != nil && now.Before(*q.OpensAt) {
		return false
	}
	if q.ClosesAt != nil && now.After(*q.ClosesAt) {
		return false
	}
	return true
}

// PublicQuestions returns the question set with correct-answer fields stripped
func (q *Quiz) PublicQuestions() []Question {
	public := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		public[i] = question.Public()
	}
	return public
}

// QuestionByID finds a question in the set, or nil
func (q *Quiz) QuestionByID(id uuid.UUID) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}
