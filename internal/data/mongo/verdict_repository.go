// Package mongo provides the MongoDB verdict archive. Archived verdicts are
// derived data: the evaluator can always recompute them from the session, so
// the archive serves audits and reviewer tooling rather than correctness.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/risk"
)

const (
	// VerdictCollectionName is the name of the verdict collection in MongoDB
	VerdictCollectionName = "risk_verdicts"
)

// ErrVerdictNotFound indicates no archived verdict for the session
type ErrVerdictNotFound struct {
	SessionID uuid.UUID
}

func (e ErrVerdictNotFound) Error() string {
	return "verdict not found for session: " + e.SessionID.String()
}

// Is matches any ErrVerdictNotFound when the target carries a nil id
func (e ErrVerdictNotFound) Is(target error) bool {
	t, ok := target.(ErrVerdictNotFound)
	if !ok {
		return false
	}
	if t.SessionID == uuid.Nil {
		return true
	}
	return e.SessionID == t.SessionID
}

// VerdictDocument is the archived verdict with a snapshot of the session it
// was computed from.
type VerdictDocument struct {
	SessionID      uuid.UUID             `bson:"session_id"`
	QuizID         uuid.UUID             `bson:"quiz_id"`
	ParticipantID  uuid.UUID             `bson:"participant_id"`
	State          shared.SessionState   `bson:"state"`
	Flagged        bool                  `bson:"flagged"`
	Score          float64               `bson:"score"`
	Recommendation shared.Recommendation `bson:"recommendation"`
	Findings       []risk.Finding        `bson:"findings"`
	QuizScore      int                   `bson:"quiz_score"`
	ViolationCount int                   `bson:"violation_count"`
	EvaluatedAt    time.Time             `bson:"evaluated_at"`
	ArchivedAt     time.Time             `bson:"archived_at"`
}

// VerdictRepository archives risk verdicts in MongoDB
type VerdictRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewVerdictRepository creates a new MongoDB verdict repository
func NewVerdictRepository(logger *slog.Logger, db *mongo.Database) *VerdictRepository {
	return &VerdictRepository{
		db:     db,
		logger: logger,
	}
}

// Archive upserts the verdict document keyed by session id. The evaluator is
// deterministic, so a reprocessed event writes the same verdict and the
// upsert keeps the archive idempotent.
func (r *VerdictRepository) Archive(ctx context.Context, sess *session.Session, verdict *risk.Verdict) error {
	collection := r.db.Collection(VerdictCollectionName)

	doc := VerdictDocument{
		SessionID:      sess.ID,
		QuizID:         sess.QuizID,
		ParticipantID:  sess.ParticipantID,
		State:          sess.State,
		Flagged:        sess.Flagged,
		Score:          verdict.Score,
		Recommendation: verdict.Recommendation,
		Findings:       verdict.Findings,
		QuizScore:      sess.Score,
		ViolationCount: len(sess.Violations),
		EvaluatedAt:    verdict.EvaluatedAt,
		ArchivedAt:     time.Now().UTC(),
	}

	filter := bson.M{"session_id": sess.ID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
		r.logger.Error("Failed to archive verdict",
			"session_id", sess.ID.String(),
			"error", err)
		return fmt.Errorf("failed to archive verdict: %w", err)
	}

	return nil
}

// GetBySessionID retrieves the archived verdict for a session.
// Returns ErrVerdictNotFound if the worker has not processed it yet.
func (r *VerdictRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*VerdictDocument, error) {
	collection := r.db.Collection(VerdictCollectionName)

	filter := bson.M{"session_id": sessionID}
	var doc VerdictDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVerdictNotFound{SessionID: sessionID}
		}
		r.logger.Error("Failed to get verdict",
			"session_id", sessionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get verdict: %w", err)
	}

	return &doc, nil
}

// GetFlagged retrieves paginated reject-recommendation verdicts for reviewer
// tooling, newest first.
func (r *VerdictRepository) GetFlagged(ctx context.Context, limit, offset int) ([]*VerdictDocument, error) {
	collection := r.db.Collection(VerdictCollectionName)

	filter := bson.M{"recommendation": shared.RecommendationReject}
	opts := options.Find().
		SetSort(bson.M{"archived_at": -1}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list flagged verdicts", "error", err)
		return nil, fmt.Errorf("failed to list flagged verdicts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*VerdictDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode flagged verdicts", "error", err)
		return nil, fmt.Errorf("failed to decode flagged verdicts: %w", err)
	}

	return docs, nil
}
