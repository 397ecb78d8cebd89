package service

import (
	"context"

	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/risk"
)

// VerdictService processes finalized session events into archived verdicts.
type VerdictService interface {
	ProcessSessionEvent(ctx context.Context, event *shared.SessionEvent) error
}

// VerdictArchive persists verdicts to the archive store
type VerdictArchive interface {
	Archive(ctx context.Context, sess *session.Session, verdict *risk.Verdict) error
}
