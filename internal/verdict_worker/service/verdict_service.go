package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizforge-assessment-engine/internal/domain/quiz"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/risk"
)

// VerdictServiceImpl evaluates finalized sessions and archives the verdict.
// Evaluation is deterministic, so reprocessing the same event after a crash
// produces the same verdict and the archive upsert keeps the worker idempotent.
type VerdictServiceImpl struct {
	sessionRepo session.Repository
	catalog     quiz.Catalog
	archive     VerdictArchive
	evaluator   *risk.Evaluator
	logger      *slog.Logger
}

func NewVerdictService(
	logger *slog.Logger,
	sessionRepo session.Repository,
	catalog quiz.Catalog,
	archive VerdictArchive,
	evaluator *risk.Evaluator,
) *VerdictServiceImpl {
	return &VerdictServiceImpl{
		sessionRepo: sessionRepo,
		catalog:     catalog,
		archive:     archive,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// ProcessSessionEvent handles one session event. Non-finalization events are
// acknowledged without work; they belong to the audit stream, not this worker.
func (s *VerdictServiceImpl) ProcessSessionEvent(ctx context.Context, event *shared.SessionEvent) error {
	logger := s.logger.With("session_id", event.SessionID.String(), "event_id", event.EventID.String())

	if event.Kind != shared.EventSessionFinalized {
		logger.Debug("Skipping non-finalization event", "kind", event.Kind)
		return nil
	}

	sess, err := s.sessionRepo.GetByID(ctx, event.SessionID)
	if err != nil {
		logger.Error("Failed to load session for verdict evaluation", "error", err)
		return fmt.Errorf("load session %s: %w", event.SessionID, err)
	}

	// The outbox only publishes after the terminal transition commits, but a
	// replayed or reordered event could still arrive for a session that was
	// corrected since. Never evaluate an open session.
	if !sess.State.IsTerminal() {
		logger.Warn("Received finalization event for non-terminal session, skipping", "state", sess.State)
		return nil
	}

	q, err := s.catalog.GetByID(ctx, sess.QuizID)
	if err != nil {
		logger.Error("Failed to load quiz for verdict evaluation", "quiz_id", sess.QuizID.String(), "error", err)
		return fmt.Errorf("load quiz %s: %w", sess.QuizID, err)
	}

	verdict := s.evaluator.Evaluate(sess, q)

	if err := s.archive.Archive(ctx, sess, &verdict); err != nil {
		logger.Error("Failed to archive verdict", "error", err)
		return fmt.Errorf("archive verdict for session %s: %w", sess.ID, err)
	}

	logger.Info("Archived session verdict",
		"recommendation", verdict.Recommendation,
		"score", verdict.Score,
		"findings", len(verdict.Findings),
	)

	if verdict.Recommendation == shared.RecommendationReject && !sess.Flagged {
		// The verdict is already durable; failing the whole event over the
		// flag would re-archive for nothing. Log and move on.
		if err := s.sessionRepo.SetFlagged(ctx, sess.ID); err != nil {
			logger.Error("Failed to flag session after reject verdict", "error", err)
		}
	}

	return nil
}
