package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge-assessment-engine/internal/domain/quiz"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/platform/persistence"
)

// QuizRepository implements the quiz.Catalog interface for PostgreSQL. The
// catalog is read-only here; quizzes are authored and approved elsewhere.
type QuizRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewQuizRepository creates a new PostgreSQL quiz catalog
func NewQuizRepository(logger *slog.Logger, db *persistence.PostgresDB) quiz.Catalog {
	return &QuizRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a quiz with its full question set, answer keys included.
// Callers strip the keys before anything leaves the service.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*quiz.Quiz, error) {
	query := `
		SELECT id, title, creator_id, status, price, duration_secs, reveal_answers, anti_cheat, opens_at, closes_at
		FROM quizzes
		WHERE id = $1
	`

	var q quiz.Quiz
	var durationSecs int
	var antiCheat []byte
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.Title,
		&q.CreatorID,
		&q.Status,
		&q.Price,
		&durationSecs,
		&q.RevealAnswers,
		&antiCheat,
		&q.OpensAt,
		&q.ClosesAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quiz.ErrQuizUnavailable{QuizID: id}
		}
		r.logger.Error("Failed to get quiz", "quiz_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	q.Duration = time.Duration(durationSecs) * time.Second
	if len(antiCheat) > 0 {
		if err := json.Unmarshal(antiCheat, &q.AntiCheat); err != nil {
			return nil, fmt.Errorf("failed to decode anti-cheat policy: %w", err)
		}
	}

	questions, err := r.getQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Questions = questions

	return &q, nil
}

func (r *QuizRepository) getQuestions(ctx context.Context, quizID uuid.UUID) ([]quiz.Question, error) {
	query := `
		SELECT id, quiz_id, prompt, options, answer, explanation, points
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position ASC
	`

	rows, err := r.querier.Query(ctx, query, quizID)
	if err != nil {
		r.logger.Error("Failed to get quiz questions", "quiz_id", quizID.String(), "error", err)
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	defer rows.Close()

	var questions []quiz.Question
	for rows.Next() {
		var question quiz.Question
		var options, answer []byte
		err := rows.Scan(
			&question.ID,
			&question.QuizID,
			&question.Prompt,
			&options,
			&answer,
			&question.Explanation,
			&question.Points,
		)
		if err != nil {
			r.logger.Error("Failed to scan question", "quiz_id", quizID.String(), "error", err)
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		if len(options) > 0 {
			if err := json.Unmarshal(options, &question.Options); err != nil {
				return nil, fmt.Errorf("failed to decode question options: %w", err)
			}
		}
		var key shared.AnswerValue
		if err := json.Unmarshal(answer, &key); err != nil {
			return nil, fmt.Errorf("failed to decode answer key: %w", err)
		}
		question.Answer = key

		questions = append(questions, question)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over questions", "quiz_id", quizID.String(), "error", err)
		return nil, fmt.Errorf("error iterating over questions: %w", err)
	}

	return questions, nil
}
