package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/platform/persistence"
)

const sessionColumns = `id, quiz_id, participant_id, question_count, state, flagged,
		started_at, deadline, ended_at, duration_secs,
		answers, score, correct_count, violations,
		report_window_start, reports_in_window,
		client_ip, client_user_agent,
		version, created_at, updated_at`

// SessionRepository implements the session.Repository interface for PostgreSQL.
// Answers and violations are stored as JSONB documents: they are only ever
// read and written whole, alongside the row that owns them.
type SessionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(logger *slog.Logger, db *persistence.PostgresDB) session.Repository {
	return &SessionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *SessionRepository) WithTx(tx pgx.Tx) session.Repository {
	return &SessionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a new session. The sessions_one_open_per_quiz partial
// unique index rejects a second non-terminal session for the same
// (participant, quiz) pair; that violation surfaces as ErrDuplicateSession.
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	answers, violations, err := marshalSessionDocs(sess)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = r.querier.Exec(ctx, query,
		sess.ID,
		sess.QuizID,
		sess.ParticipantID,
		sess.QuestionCount,
		sess.State,
		sess.Flagged,
		sess.StartedAt,
		sess.Deadline,
		sess.EndedAt,
		sess.DurationSecs,
		answers,
		sess.Score,
		sess.CorrectCount,
		violations,
		sess.ReportWindowStart,
		sess.ReportsInWindow,
		sess.Client.IPAddress,
		sess.Client.UserAgent,
		sess.Version,
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return session.ErrDuplicateSession{ParticipantID: sess.ParticipantID, QuizID: sess.QuizID}
		}
		r.logger.Error("Failed to create session", "session_id", sess.ID.String(), "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	sess, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound{SessionID: id}
		}
		r.logger.Error("Failed to get session", "session_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return sess, nil
}

// GetActiveByParticipantAndQuiz retrieves the participant's open session for
// a quiz, if any. At most one row can match because of the partial unique
// index that Create relies on.
func (r *SessionRepository) GetActiveByParticipantAndQuiz(ctx context.Context, participantID, quizID uuid.UUID) (*session.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE participant_id = $1 AND quiz_id = $2 AND state IN ('PENDING_PAYMENT', 'ACTIVE')
	`

	sess, err := r.scanOne(r.querier.QueryRow(ctx, query, participantID, quizID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound{}
		}
		r.logger.Error("Failed to get active session",
			"participant_id", participantID.String(), "quiz_id", quizID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return sess, nil
}

// Update saves session changes using optimistic locking. The WHERE clause
// compares against the version the session was loaded with; a matching row is
// written with that version plus one. The in-memory copy is advanced only
// after the write, so a forced termination that both records a violation and
// ends the session still saves in one step.
func (r *SessionRepository) Update(ctx context.Context, sess *session.Session) error {
	answers, violations, err := marshalSessionDocs(sess)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions
		SET state = $1, flagged = $2, started_at = $3, deadline = $4, ended_at = $5,
			duration_secs = $6, answers = $7, score = $8, correct_count = $9,
			violations = $10, report_window_start = $11, reports_in_window = $12,
			version = $13, updated_at = $14
		WHERE id = $15 AND version = $16
	`

	result, err := r.querier.Exec(ctx, query,
		sess.State,
		sess.Flagged,
		sess.StartedAt,
		sess.Deadline,
		sess.EndedAt,
		sess.DurationSecs,
		answers,
		sess.Score,
		sess.CorrectCount,
		violations,
		sess.ReportWindowStart,
		sess.ReportsInWindow,
		sess.Version+1,
		sess.UpdatedAt,
		sess.ID,
		sess.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update session", "session_id", sess.ID.String(), "error", err)
		return fmt.Errorf("failed to update session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return session.ErrConcurrentModification{SessionID: sess.ID}
	}

	sess.Version++
	return nil
}

// SetFlagged marks a terminal session as high-risk. The lifecycle state is
// left untouched.
func (r *SessionRepository) SetFlagged(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET flagged = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to flag session", "session_id", id.String(), "error", err)
		return fmt.Errorf("failed to flag session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return session.ErrSessionNotFound{SessionID: id}
	}

	return nil
}

// LockForUpdate retrieves a session with a row-level lock. Must be called
// within a transaction; the lock holds until commit or rollback.
func (r *SessionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`

	sess, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound{SessionID: id}
		}
		r.logger.Error("Failed to lock session", "session_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	return sess, nil
}

func (r *SessionRepository) scanOne(row pgx.Row) (*session.Session, error) {
	var sess session.Session
	var answers, violations []byte

	err := row.Scan(
		&sess.ID,
		&sess.QuizID,
		&sess.ParticipantID,
		&sess.QuestionCount,
		&sess.State,
		&sess.Flagged,
		&sess.StartedAt,
		&sess.Deadline,
		&sess.EndedAt,
		&sess.DurationSecs,
		&answers,
		&sess.Score,
		&sess.CorrectCount,
		&violations,
		&sess.ReportWindowStart,
		&sess.ReportsInWindow,
		&sess.Client.IPAddress,
		&sess.Client.UserAgent,
		&sess.Version,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &sess.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode session answers: %w", err)
		}
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &sess.Violations); err != nil {
			return nil, fmt.Errorf("failed to decode session violations: %w", err)
		}
	}

	return &sess, nil
}

func marshalSessionDocs(sess *session.Session) (answers, violations []byte, err error) {
	answers, err = json.Marshal(sess.Answers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode session answers: %w", err)
	}
	violations, err = json.Marshal(sess.Violations)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode session violations: %w", err)
	}
	return answers, violations, nil
}
