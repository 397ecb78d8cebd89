package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

// Common errors
var (
	ErrSessionTerminal    = errors.New("session is already terminal")
	ErrSessionExpired     = errors.New("session deadline exceeded")
	ErrSessionNotTerminal = errors.New("session has not ended yet")
	ErrInvalidTransition  = errors.New("invalid session state transition")
)

// Answer is one submitted response. Correct is computed at submit time
// against the catalog's answer key; a client-supplied correctness flag is
// never trusted.
type Answer struct {
	QuestionID   uuid.UUID          `json:"question_id"`
	Selected     shared.AnswerValue `json:"selected"`
	TimeSpentSec int                `json:"time_spent_sec"`
	Correct      bool               `json:"correct"`
	Skipped      bool               `json:"skipped"`
}

// Violation is one integrity-rule breach reported during the session
type Violation struct {
	Kind     shared.ViolationKind `json:"kind"`
	Severity shared.Severity      `json:"severity"`
	Detail   string               `json:"detail,omitempty"`
	At       time.Time            `json:"at"`
}

// ClientMeta is the client metadata captured when the session starts.
// Its absence feeds the session-artifact risk finding.
type ClientMeta struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Session is one participant's single attempt at one quiz. It is created by
// the session engine, mutated only through the transitions below, and
// immutable once terminal (only the Flagged annotation may be set once).
type Session struct {
	ID            uuid.UUID `json:"id"`
	QuizID        uuid.UUID `json:"quiz_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	QuestionCount int       `json:"question_count"`

	State   shared.SessionState `json:"state"`
	Flagged bool                `json:"flagged"`

	StartedAt    time.Time  `json:"started_at"`
	Deadline     time.Time  `json:"deadline"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	DurationSecs int        `json:"duration_secs"`

	Answers      []Answer `json:"answers"`
	Score        int      `json:"score"`
	CorrectCount int      `json:"correct_count"`

	Violations []Violation `json:"violations"`

	// Violation-report rate limit state, persisted with the session so the
	// cap survives process restarts and horizontal scaling.
	ReportWindowStart time.Time `json:"report_window_start"`
	ReportsInWindow   int       `json:"reports_in_window"`

	Client ClientMeta `json:"client"`

	// Version is the persisted revision used for optimistic locking. It is
	// advanced by the repository when the row is written, never by the
	// in-memory transitions, so one save may carry any number of mutations.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session in PENDING_PAYMENT. The state is transient: it only
// exists inside the start transaction while escrow is in flight, and either
// activates or is rolled back before commit.
func New(quizID, participantID uuid.UUID, questionCount int, duration time.Duration, client ClientMeta) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.New(),
		QuizID:        quizID,
		ParticipantID: participantID,
		QuestionCount: questionCount,
		State:         shared.SessionStatePendingPayment,
		StartedAt:     now,
		Deadline:      now.Add(duration),
		Client:        client,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsTerminal reports whether the session admits no further transitions
func (s *Session) IsTerminal() bool {
	return s.State.IsTerminal()
}

// Activate moves PENDING_PAYMENT to ACTIVE once escrow has succeeded
// (or immediately for free quizzes). The deadline clock starts here.
func (s *Session) Activate(duration time.Duration) error {
	if s.State != shared.SessionStatePendingPayment {
		return ErrInvalidTransition
	}
	now := time.Now()
	s.State = shared.SessionStateActive
	s.StartedAt = now
	s.Deadline = now.Add(duration)
	s.touch()
	return nil
}

// Expired reports whether now is past the deadline plus the grace period
func (s *Session) Expired(now time.Time, grace time.Duration) bool {
	return now.After(s.Deadline.Add(grace))
}

// TimeRemaining returns the time left before the deadline, never negative
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	if remaining := s.Deadline.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// Complete records the scored answers and ends the session normally
func (s *Session) Complete(answers []Answer, score, correctCount int) error {
	if s.IsTerminal() {
		return ErrSessionTerminal
	}
	if s.State != shared.SessionStateActive {
		return ErrInvalidTransition
	}
	s.Answers = answers
	s.Score = score
	s.CorrectCount = correctCount
	s.end(shared.SessionStateCompleted)
	return nil
}

// ForceEnd terminates the session because of rule violations or an expired
// deadline discovered by a mutating operation.
func (s *Session) ForceEnd() error {
	if s.IsTerminal() {
		return ErrSessionTerminal
	}
	s.end(shared.SessionStateAutoEnded)
	return nil
}

// Abandon marks a session whose deadline passed with no submission and no
// forced termination. Detected lazily on the next read access.
func (s *Session) Abandon() error {
	if s.IsTerminal() {
		return ErrSessionTerminal
	}
	s.end(shared.SessionStateAbandoned)
	return nil
}

// Flag annotates a terminal session as high-risk. The lifecycle state is
// preserved so "ended because of rule violation" and "ended normally then
// found suspicious" stay distinguishable.
func (s *Session) Flag() error {
	if !s.IsTerminal() {
		return ErrSessionNotTerminal
	}
	s.Flagged = true
	s.touch()
	return nil
}

// RecordViolation appends to the violation log. The caller evaluates the
// forced-termination policy afterwards.
func (s *Session) RecordViolation(kind shared.ViolationKind, severity shared.Severity, detail string) error {
	if s.IsTerminal() {
		return ErrSessionTerminal
	}
	s.Violations = append(s.Violations, Violation{
		Kind:     kind,
		Severity: severity,
		Detail:   detail,
		At:       time.Now(),
	})
	s.touch()
	return nil
}

// ViolationCount returns how many violations of the given kind are recorded
func (s *Session) ViolationCount(kind shared.ViolationKind) int {
	count := 0
	for _, v := range s.Violations {
		if v.Kind == kind {
			count++
		}
	}
	return count
}

// HasCriticalViolation reports whether any violation is at the highest tier
func (s *Session) HasCriticalViolation() bool {
	for _, v := range s.Violations {
		if v.Severity == shared.SeverityCritical {
			return true
		}
	}
	return false
}

// AllowReport applies the per-session violation-report rate limit. Reports
// beyond the cap inside the window are dropped silently so flood noise never
// biases the forced-termination thresholds.
func (s *Session) AllowReport(now time.Time, window time.Duration, maxPerWindow int) bool {
	if s.ReportWindowStart.IsZero() || now.Sub(s.ReportWindowStart) >= window {
		s.ReportWindowStart = now
		s.ReportsInWindow = 0
	}
	if s.ReportsInWindow >= maxPerWindow {
		return false
	}
	s.ReportsInWindow++
	return true
}

// Accuracy returns the fraction of questions answered correctly in [0,100]
func (s *Session) Accuracy() float64 {
	if s.QuestionCount == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.QuestionCount) * 100
}

func (s *Session) end(state shared.SessionState) {
	now := time.Now()
	s.State = state
	s.EndedAt = &now
	s.DurationSecs = int(now.Sub(s.StartedAt).Seconds())
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}
