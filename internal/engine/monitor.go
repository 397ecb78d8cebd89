package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

// ViolationOutcome reports what happened to a violation report. A dropped
// report (rate limited) has Accepted false and no error; a report that
// tripped a termination rule has Forced true.
type ViolationOutcome struct {
	Accepted bool
	Forced   bool
	State    shared.SessionState
	Total    int
}

// RecordViolation appends an integrity violation to the session and applies
// the forced-termination rules. The session row is locked for the duration so
// a concurrent submit and a forced termination cannot both win.
//
// Three independent rules, evaluated on every accepted report:
//  1. the per-kind count exceeds the quiz's cap for that kind,
//  2. the violation carries CRITICAL severity,
//  3. the total count exceeds the global ceiling.
//
// The rules depend only on the recorded history, so replaying the same
// reports always forces at the same point. Only the owning participant may
// report; anyone else sees ErrSessionNotFound.
func (e *Engine) RecordViolation(ctx context.Context, sessionID, participantID uuid.UUID, kind shared.ViolationKind, severity shared.Severity, detail string) (*ViolationOutcome, error) {
	if !knownViolationKind(kind) || !severity.Valid() {
		return nil, ErrInvalidViolation
	}

	var outcome *ViolationOutcome
	var sess *session.Session
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

		// Reports beyond the rate limit are dropped without extending the
		// log, so a flood cannot push the session over a threshold. The
		// window counters still persist.
		if !sess.AllowReport(time.Now(), e.rateWindow, e.rateMax) {
			outcome = &ViolationOutcome{Accepted: false, State: sess.State, Total: len(sess.Violations)}
			return sessionRepoTx.Update(ctx, sess)
		}

		if err := sess.RecordViolation(kind, severity, detail); err != nil {
			return err
		}

		q, err := e.catalog.GetByID(ctx, sess.QuizID)
		if err != nil {
			return err
		}

		// The per-kind cap is a quiz policy knob; the critical and global
		// ceiling rules always apply.
		forced := false
		if max := q.AntiCheat.MaxFor(kind); q.AntiCheat.AutoEndOnViolation && max > 0 && sess.ViolationCount(kind) > max {
			forced = true
		}
		if severity == shared.SeverityCritical || len(sess.Violations) > e.globalCeiling {
			forced = true
		}

		if forced {
			if err := sess.ForceEnd(); err != nil {
				return err
			}
		}
		if err := sessionRepoTx.Update(ctx, sess); err != nil {
			return err
		}
		if forced {
			if err := e.emitEvent(ctx, tx, shared.EventSessionFinalized, sess); err != nil {
				return err
			}
		}

		outcome = &ViolationOutcome{Accepted: true, Forced: forced, State: sess.State, Total: len(sess.Violations)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, session.ErrSessionExpired
	}

	if outcome.Forced {
		e.logger.Warn("Session force-ended by integrity rule",
			"session_id", sessionID.String(),
			"kind", string(kind),
			"severity", string(severity),
			"total_violations", outcome.Total,
		)
	}
	return outcome, nil
}

func knownViolationKind(kind shared.ViolationKind) bool {
	for _, k := range shared.KnownViolationKinds {
		if k == kind {
			return true
		}
	}
	return false
}
