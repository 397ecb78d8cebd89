// Package engine drives the session lifecycle: starting an attempt (with
// quiz-fee escrow), accepting violation reports, scoring submissions and
// producing risk verdicts. Every state transition goes through a single
// database transaction so a session and its ledger rows always agree.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge-assessment-engine/internal/config"
	"github.com/quizforge-assessment-engine/internal/domain/account"
	"github.com/quizforge-assessment-engine/internal/domain/outbox"
	"github.com/quizforge-assessment-engine/internal/domain/quiz"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/risk"
	"github.com/quizforge-assessment-engine/internal/wallet"
)

// Common errors
var (
	ErrPaymentRequired  = errors.New("insufficient funds to start session")
	ErrUnknownQuestion  = errors.New("answer references a question not in this quiz")
	ErrInvalidViolation = errors.New("unknown violation kind or severity")
)

// SubmittedAnswer is one answer as received from the client. Correctness is
// never taken from the wire; it is computed against the catalog's key.
type SubmittedAnswer struct {
	QuestionID   uuid.UUID
	Selected     shared.AnswerValue
	TimeSpentSec int
	Skipped      bool
}

// StartResult is returned from Start: the (possibly resumed) session plus
// the question set with answer keys stripped.
type StartResult struct {
	Session   *session.Session
	Questions []quiz.Question
	Resumed   bool
}

// SubmitResult carries the scored session, its risk verdict, and the
// question set with keys when the quiz reveals them.
type SubmitResult struct {
	Session   *session.Session
	Verdict   *risk.Verdict
	Questions []quiz.Question
}

// TxRunner runs a function inside a database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Engine orchestrates session lifecycle operations
type Engine struct {
	db          TxRunner
	sessionRepo session.Repository
	outboxRepo  outbox.Repository
	catalog     quiz.Catalog
	wallet      *wallet.Service
	evaluator   *risk.Evaluator

	grace             time.Duration
	rateWindow        time.Duration
	rateMax           int
	globalCeiling     int
	platformAccountID uuid.UUID

	logger *slog.Logger
}

// New creates a session engine
func New(
	db TxRunner,
	sessionRepo session.Repository,
	outboxRepo outbox.Repository,
	catalog quiz.Catalog,
	walletSvc *wallet.Service,
	evaluator *risk.Evaluator,
	cfg *config.SessionConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:                db,
		sessionRepo:       sessionRepo,
		outboxRepo:        outboxRepo,
		catalog:           catalog,
		wallet:            walletSvc,
		evaluator:         evaluator,
		grace:             cfg.GracePeriod,
		rateWindow:        cfg.ViolationRateWindow,
		rateMax:           cfg.ViolationRateMax,
		globalCeiling:     cfg.GlobalViolationCeiling,
		platformAccountID: uuid.MustParse(cfg.PlatformAccountID),
		logger:            logger,
	}
}

// Start begins a session for the participant, charging the quiz fee through
// escrow when the quiz is priced. An existing non-expired open session is
// resumed unchanged; an expired one is abandoned and a fresh attempt begins.
func (e *Engine) Start(ctx context.Context, participantID, quizID uuid.UUID, client session.ClientMeta) (*StartResult, error) {
	q, err := e.catalog.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !q.Available(time.Now()) {
		return nil, quiz.ErrQuizUnavailable{QuizID: quizID}
	}

	existing, err := e.sessionRepo.GetActiveByParticipantAndQuiz(ctx, participantID, quizID)
	if err != nil && !errors.Is(err, session.ErrSessionNotFound{}) {
		return nil, err
	}
	if existing != nil {
		if !existing.Expired(time.Now(), e.grace) {
			return &StartResult{Session: existing, Questions: q.PublicQuestions(), Resumed: true}, nil
		}
		if abandonErr := e.abandon(ctx, existing); abandonErr != nil {
			return nil, abandonErr
		}
	}

	sess := session.New(quizID, participantID, len(q.Questions), q.Duration, client)

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		sessionRepoTx := e.sessionRepo.WithTx(tx)

		if err := sessionRepoTx.Create(ctx, sess); err != nil {
			return err
		}

		if q.Priced() {
			_, escrowErr := e.wallet.EscrowTx(ctx, tx, sess.ID.String(), participantID, q.CreatorID, e.platformAccountID, q.Price)
			if escrowErr != nil {
				if errors.Is(escrowErr, account.ErrInsufficientFunds) {
					return fmt.Errorf("%w: %w", ErrPaymentRequired, escrowErr)
				}
				return escrowErr
			}
		}

		if err := sess.Activate(q.Duration); err != nil {
			return err
		}
		if err := sessionRepoTx.Update(ctx, sess); err != nil {
			return err
		}

		return e.emitEvent(ctx, tx, shared.EventSessionStarted, sess)
	})
	if err != nil {
		// Loser of a concurrent start returns the winner's session.
		if errors.Is(err, session.ErrDuplicateSession{}) {
			winner, findErr := e.sessionRepo.GetActiveByParticipantAndQuiz(ctx, participantID, quizID)
			if findErr != nil {
				return nil, err
			}
			return &StartResult{Session: winner, Questions: q.PublicQuestions(), Resumed: true}, nil
		}
		return nil, err
	}

	e.logger.Info("Session started",
		"session_id", sess.ID.String(),
		"quiz_id", quizID.String(),
		"participant_id", participantID.String(),
		"priced", q.Priced(),
	)
	return &StartResult{Session: sess, Questions: q.PublicQuestions()}, nil
}

// Submit scores the answers and completes the session. A submission past the
// deadline plus grace auto-ends the session and fails with ErrSessionExpired;
// the auto-end is committed even though the submission is rejected. Only the
// owning participant may submit; anyone else sees ErrSessionNotFound.
func (e *Engine) Submit(ctx context.Context, sessionID, participantID uuid.UUID, answers []SubmittedAnswer) (*SubmitResult, error) {
	var sess *session.Session
	var q *quiz.Quiz
	expired := false

	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		sessionRepoTx := e.sessionRepo.WithTx(tx)

		var err error
		sess, err = sessionRepoTx.LockForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		if sess.ParticipantID != participantID {
			return session.ErrSessionNotFound{SessionID: sessionID}
		}

		if sess.IsTerminal() {
			return session.ErrSessionTerminal
		}

		if sess.Expired(time.Now(), e.grace) {
			if err := sess.ForceEnd(); err != nil {
				return err
			}
			expired = true
			if err := sessionRepoTx.Update(ctx, sess); err != nil {
				return err
			}
			return e.emitEvent(ctx, tx, shared.EventSessionFinalized, sess)
		}

		q, err = e.catalog.GetByID(ctx, sess.QuizID)
		if err != nil {
			return err
		}

		scored, score, correctCount, err := scoreAnswers(q, answers)
		if err != nil {
			return err
		}
		if err := sess.Complete(scored, score, correctCount); err != nil {
			return err
		}
		if err := sessionRepoTx.Update(ctx, sess); err != nil {
			return err
		}
		return e.emitEvent(ctx, tx, shared.EventSessionFinalized, sess)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, session.ErrSessionExpired
	}

	result := &SubmitResult{Session: sess}
	if q.RevealAnswers {
		result.Questions = q.Questions
	}

	// Risk evaluation is best effort here: a failure never blocks the
	// score, the verdict worker recomputes the same verdict later.
	verdict := e.evaluator.Evaluate(sess, q)
	result.Verdict = &verdict
	if verdict.Recommendation == shared.RecommendationReject {
		if flagErr := e.sessionRepo.SetFlagged(ctx, sess.ID); flagErr != nil {
			e.logger.Error("Failed to flag session after reject verdict",
				"session_id", sess.ID.String(), "error", flagErr)
		} else {
			sess.Flagged = true
		}
	}

	e.logger.Info("Session submitted",
		"session_id", sess.ID.String(),
		"score", sess.Score,
		"recommendation", string(verdict.Recommendation),
	)
	return result, nil
}

// GetSession retrieves a session. A read that discovers an expired,
// never-submitted session transitions it to ABANDONED first.
func (e *Engine) GetSession(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	sess, err := e.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.State == shared.SessionStateActive && sess.Expired(time.Now(), e.grace) {
		if err := e.abandon(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// GetVerdict recomputes the risk verdict for a terminal session on demand.
// The evaluator is deterministic, so repeated calls agree with each other
// and with the worker's archived copy.
func (e *Engine) GetVerdict(ctx context.Context, sessionID uuid.UUID) (*risk.Verdict, error) {
	sess, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsTerminal() {
		return nil, session.ErrSessionNotTerminal
	}

	q, err := e.catalog.GetByID(ctx, sess.QuizID)
	if err != nil {
		return nil, err
	}

	verdict := e.evaluator.Evaluate(sess, q)
	return &verdict, nil
}

func (e *Engine) abandon(ctx context.Context, sess *session.Session) error {
	if err := sess.Abandon(); err != nil {
		return err
	}
	if err := e.sessionRepo.Update(ctx, sess); err != nil {
		return err
	}
	e.logger.Info("Session abandoned", "session_id", sess.ID.String())
	return nil
}

// emitEvent appends a session event to the outbox inside the transaction
func (e *Engine) emitEvent(ctx context.Context, tx pgx.Tx, kind shared.EventKind, sess *session.Session) error {
	event := shared.NewSessionEvent(kind, sess.ID, sess.QuizID, sess.ParticipantID, sess.State, sess.ID.String())
	message, err := outbox.NewMessage(event)
	if err != nil {
		return err
	}
	return e.outboxRepo.WithTx(tx).Create(ctx, message)
}

// scoreAnswers grades each submitted answer against the catalog key. Unknown
// question ids are rejected; questions without a submitted answer count as
// skipped and are not appended.
func scoreAnswers(q *quiz.Quiz, answers []SubmittedAnswer) ([]session.Answer, int, int, error) {
	scored := make([]session.Answer, 0, len(answers))
	score := 0
	correctCount := 0

	for _, a := range answers {
		question := q.QuestionByID(a.QuestionID)
		if question == nil {
			return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQuestion, a.QuestionID.String())
		}

		skipped := a.Skipped || a.Selected.IsEmpty()
		correct := false
		if !skipped {
			correct = question.Answer.Equal(a.Selected)
		}
		if correct {
			score += question.Points
			correctCount++
		}

		scored = append(scored, session.Answer{
			QuestionID:   a.QuestionID,
			Selected:     a.Selected,
			TimeSpentSec: a.TimeSpentSec,
			Correct:      correct,
			Skipped:      skipped,
		})
	}

	return scored, score, correctCount, nil
}
