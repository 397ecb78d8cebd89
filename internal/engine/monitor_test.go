package engine

import (
	"context"
	"testing"
	"time"

	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/google/uuid"
)

func TestRecordViolation_TabSwitchThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4) // max 3 tab switches
	participantID := uuid.New()
	sess := activeSession(q, participantID)

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)
	f.sessionRepo.On("Update", ctx, sess).Return(nil)
	f.catalog.On("GetByID", ctx, q.ID).Return(q, nil)
	f.outboxRepo.On("WithTx", mock.Anything).Return()
	f.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil)

	// Three tab switches stay within the cap.
	for i := 0; i < 3; i++ {
		outcome, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationTabSwitch, shared.SeverityMedium, "")
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)
		assert.False(t, outcome.Forced)
		assert.Equal(t, shared.SessionStateActive, outcome.State)
	}

	// The fourth forces termination.
	outcome, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationTabSwitch, shared.SeverityMedium, "")
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.Forced)
	assert.Equal(t, shared.SessionStateAutoEnded, outcome.State)
	assert.Equal(t, 4, outcome.Total)
}

func TestRecordViolation_CriticalSeverityForcesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4)
	participantID := uuid.New()
	sess := activeSession(q, participantID)

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)
	f.sessionRepo.On("Update", ctx, sess).Return(nil)
	f.catalog.On("GetByID", ctx, q.ID).Return(q, nil)
	f.outboxRepo.On("WithTx", mock.Anything).Return()
	f.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil)

	outcome, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationDevTools, shared.SeverityCritical, "devtools opened")
	require.NoError(t, err)
	assert.True(t, outcome.Forced)
	assert.Equal(t, shared.SessionStateAutoEnded, outcome.State)
}

func TestRecordViolation_GlobalCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4)
	q.AntiCheat.MaxPerKind = nil // only the global ceiling applies
	participantID := uuid.New()
	sess := activeSession(q, participantID)

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)
	f.sessionRepo.On("Update", ctx, sess).Return(nil)
	f.catalog.On("GetByID", ctx, q.ID).Return(q, nil)
	f.outboxRepo.On("WithTx", mock.Anything).Return()
	f.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil)

	for i := 0; i < 10; i++ {
		outcome, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationCopyPaste, shared.SeverityLow, "")
		require.NoError(t, err)
		assert.False(t, outcome.Forced, "violation %d should not force", i+1)
	}

	outcome, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationCopyPaste, shared.SeverityLow, "")
	require.NoError(t, err)
	assert.True(t, outcome.Forced)
	assert.Equal(t, 11, outcome.Total)
}

func TestRecordViolation_RateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4)
	participantID := uuid.New()
	sess := activeSession(q, participantID)
	sess.ReportWindowStart = time.Now()
	sess.ReportsInWindow = 20 // cap reached

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)
	f.sessionRepo.On("Update", ctx, sess).Return(nil)

	outcome, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationRightClick, shared.SeverityLow, "")
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.False(t, outcome.Forced)
	assert.Empty(t, sess.Violations, "dropped report must not extend the log")
	f.catalog.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRecordViolation_TerminalSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4)
	participantID := uuid.New()
	sess := activeSession(q, participantID)
	require.NoError(t, sess.Complete(nil, 0, 0))

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)

	_, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationTabSwitch, shared.SeverityMedium, "")
	assert.ErrorIs(t, err, session.ErrSessionTerminal)
}

func TestRecordViolation_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4)
	participantID := uuid.New()
	sess := activeSession(q, participantID)
	sess.Deadline = time.Now().Add(-time.Minute)

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)
	f.sessionRepo.On("Update", ctx, sess).Return(nil)
	f.outboxRepo.On("WithTx", mock.Anything).Return()
	f.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil)

	_, err := f.engine.RecordViolation(ctx, sess.ID, participantID, shared.ViolationTabSwitch, shared.SeverityMedium, "")
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.Equal(t, shared.SessionStateAutoEnded, sess.State)
}

func TestRecordViolation_WrongParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	q := approvedQuiz(0, 4)
	sess := activeSession(q, uuid.New())

	f.sessionRepo.On("WithTx", mock.Anything).Return()
	f.sessionRepo.On("LockForUpdate", ctx, sess.ID).Return(sess, nil)

	_, err := f.engine.RecordViolation(ctx, sess.ID, uuid.New(), shared.ViolationTabSwitch, shared.SeverityMedium, "")
	assert.ErrorIs(t, err, session.ErrSessionNotFound{SessionID: sess.ID})
	assert.Empty(t, sess.Violations)
	f.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRecordViolation_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.engine.RecordViolation(ctx, uuid.New(), uuid.New(), "telepathy", shared.SeverityLow, "")
	assert.ErrorIs(t, err, ErrInvalidViolation)

	_, err = f.engine.RecordViolation(ctx, uuid.New(), uuid.New(), shared.ViolationTabSwitch, "catastrophic", "")
	assert.ErrorIs(t, err, ErrInvalidViolation)
}
