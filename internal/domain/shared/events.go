package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the payload carried by a session event
type EventKind string

const (
	EventSessionStarted   EventKind = "session.started"
	EventSessionFinalized EventKind = "session.finalized"
	EventLedgerTransfer   EventKind = "ledger.transfer"
)

// SessionEvent is the Kafka message emitted through the outbox for every
// session lifecycle change and ledger transfer. The verdict worker consumes
// session.finalized events; the rest form the audit stream.
type SessionEvent struct {
	EventID       uuid.UUID    `json:"event_id"`
	Kind          EventKind    `json:"kind"`
	SessionID     uuid.UUID    `json:"session_id"`
	QuizID        uuid.UUID    `json:"quiz_id,omitempty"`
	ParticipantID uuid.UUID    `json:"participant_id,omitempty"`
	State         SessionState `json:"state,omitempty"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	EmittedAt     time.Time    `json:"emitted_at"`
}

// NewSessionEvent builds an event with a fresh id and timestamp
func NewSessionEvent(kind EventKind, sessionID, quizID, participantID uuid.UUID, state SessionState, correlationID string) *SessionEvent {
	return &SessionEvent{
		EventID:       uuid.New(),
		Kind:          kind,
		SessionID:     sessionID,
		QuizID:        quizID,
		ParticipantID: participantID,
		State:         state,
		CorrelationID: correlationID,
		EmittedAt:     time.Now().UTC(),
	}
}
