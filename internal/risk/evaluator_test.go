package risk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/quiz"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator() *Evaluator {
	return NewEvaluator(3, 300, 10)
}

func testQuiz() *quiz.Quiz {
	return &quiz.Quiz{
		ID: uuid.New(),
		AntiCheat: quiz.AntiCheatPolicy{
			AutoEndOnViolation: true,
			MaxPerKind: map[shared.ViolationKind]int{
				shared.ViolationTabSwitch: 3,
			},
		},
	}
}

func testSession(answers []session.Answer) *session.Session {
	sess := session.New(uuid.New(), uuid.New(), len(answers), 20*time.Minute, session.ClientMeta{
		IPAddress: "10.1.2.3",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
	})
	sess.Answers = answers
	return sess
}

func choiceAnswers(timeSpentSec int, choices ...int) []session.Answer {
	answers := make([]session.Answer, len(choices))
	for i, c := range choices {
		answers[i] = session.Answer{
			QuestionID:   uuid.New(),
			Selected:     shared.ChoiceAnswer(c),
			TimeSpentSec: timeSpentSec,
		}
	}
	return answers
}

func TestEvaluate_CleanSession(t *testing.T) {
	sess := testSession(choiceAnswers(30, 0, 2, 1, 3, 0, 2))

	verdict := newEvaluator().Evaluate(sess, testQuiz())

	assert.Empty(t, verdict.Findings)
	assert.Zero(t, verdict.Score)
	assert.Equal(t, shared.RecommendationAccept, verdict.Recommendation)
}

func TestEvaluate_AllIdenticalAnswersRejected(t *testing.T) {
	sess := testSession(choiceAnswers(30, 2, 2, 2, 2, 2, 2))

	verdict := newEvaluator().Evaluate(sess, testQuiz())

	require.Len(t, verdict.Findings, 1)
	assert.Equal(t, FindingDegeneratePattern, verdict.Findings[0].Kind)
	assert.Equal(t, shared.SeverityHigh, verdict.Findings[0].Severity)
	assert.InDelta(t, 0.85, verdict.Score, 1e-9)
	assert.Equal(t, shared.RecommendationReject, verdict.Recommendation)
}

func TestEvaluate_DegeneratePatterns(t *testing.T) {
	tests := []struct {
		name    string
		choices []int
		fires   bool
	}{
		{"sequential rotation", []int{0, 1, 2, 3, 0, 1}, true},
		{"alternation", []int{0, 3, 0, 3, 0, 3}, true},
		{"too few answers", []int{1, 1, 1}, false},
		{"varied answers", []int{0, 2, 2, 1, 3, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := testSession(choiceAnswers(30, tt.choices...))
			verdict := newEvaluator().Evaluate(sess, testQuiz())

			found := false
			for _, f := range verdict.Findings {
				if f.Kind == FindingDegeneratePattern {
					found = true
				}
			}
			assert.Equal(t, tt.fires, found)
		})
	}
}

func TestEvaluate_TimingAnomaly(t *testing.T) {
	t.Run("over half implausible is high", func(t *testing.T) {
		answers := choiceAnswers(1, 0, 2, 1, 3)
		answers = append(answers, choiceAnswers(30, 3, 0, 2)...)
		sess := testSession(answers)

		verdict := newEvaluator().Evaluate(sess, testQuiz())

		require.Len(t, verdict.Findings, 1)
		assert.Equal(t, FindingTimingAnomaly, verdict.Findings[0].Kind)
		assert.Equal(t, shared.SeverityHigh, verdict.Findings[0].Severity)
	})

	t.Run("over thirty percent implausible is medium", func(t *testing.T) {
		answers := choiceAnswers(400, 0, 2)
		answers = append(answers, choiceAnswers(30, 2, 3, 0)...)
		sess := testSession(answers)

		verdict := newEvaluator().Evaluate(sess, testQuiz())

		require.Len(t, verdict.Findings, 1)
		assert.Equal(t, shared.SeverityMedium, verdict.Findings[0].Severity)
		assert.Equal(t, shared.RecommendationReview, verdict.Recommendation)
	})

	t.Run("skipped answers carry no timing signal", func(t *testing.T) {
		answers := choiceAnswers(30, 0, 1, 2)
		answers = append(answers, session.Answer{QuestionID: uuid.New(), Skipped: true})
		sess := testSession(answers)

		verdict := newEvaluator().Evaluate(sess, testQuiz())
		assert.Empty(t, verdict.Findings)
	})
}

func TestEvaluate_ExcessiveViolations(t *testing.T) {
	t.Run("critical violation", func(t *testing.T) {
		sess := testSession(choiceAnswers(30, 0, 1, 2, 1, 0))
		require.NoError(t, sess.RecordViolation(shared.ViolationDevTools, shared.SeverityCritical, ""))

		verdict := newEvaluator().Evaluate(sess, testQuiz())

		require.Len(t, verdict.Findings, 1)
		assert.Equal(t, FindingExcessiveViolations, verdict.Findings[0].Kind)
		assert.Equal(t, shared.SeverityCritical, verdict.Findings[0].Severity)
		assert.Equal(t, shared.RecommendationReject, verdict.Recommendation)
	})

	t.Run("per-kind threshold exceeded", func(t *testing.T) {
		sess := testSession(choiceAnswers(30, 0, 1, 2, 1, 0))
		for i := 0; i < 4; i++ {
			require.NoError(t, sess.RecordViolation(shared.ViolationTabSwitch, shared.SeverityMedium, ""))
		}

		verdict := newEvaluator().Evaluate(sess, testQuiz())

		require.Len(t, verdict.Findings, 1)
		assert.Equal(t, FindingExcessiveViolations, verdict.Findings[0].Kind)
	})

	t.Run("at threshold does not fire", func(t *testing.T) {
		sess := testSession(choiceAnswers(30, 0, 1, 2, 1, 0))
		for i := 0; i < 3; i++ {
			require.NoError(t, sess.RecordViolation(shared.ViolationTabSwitch, shared.SeverityMedium, ""))
		}

		verdict := newEvaluator().Evaluate(sess, testQuiz())
		assert.Empty(t, verdict.Findings)
	})

	t.Run("global ceiling exceeded", func(t *testing.T) {
		sess := testSession(choiceAnswers(30, 0, 1, 2, 1, 0))
		for i := 0; i < 11; i++ {
			require.NoError(t, sess.RecordViolation(shared.ViolationCopyPaste, shared.SeverityLow, ""))
		}

		verdict := newEvaluator().Evaluate(sess, testQuiz())

		require.Len(t, verdict.Findings, 1)
		assert.Equal(t, FindingExcessiveViolations, verdict.Findings[0].Kind)
	})
}

func TestEvaluate_SessionArtifactAnomaly(t *testing.T) {
	sess := testSession(choiceAnswers(30, 0, 1, 2, 1, 0))
	sess.Client = session.ClientMeta{}

	verdict := newEvaluator().Evaluate(sess, testQuiz())

	require.Len(t, verdict.Findings, 1)
	assert.Equal(t, FindingSessionArtifact, verdict.Findings[0].Kind)
	assert.InDelta(t, 0.25, verdict.Score, 1e-9)
	assert.Equal(t, shared.RecommendationAccept, verdict.Recommendation)
}

func TestEvaluate_Deterministic(t *testing.T) {
	sess := testSession(choiceAnswers(1, 2, 2, 2, 2, 2))
	require.NoError(t, sess.RecordViolation(shared.ViolationTabSwitch, shared.SeverityMedium, ""))
	ended := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	sess.EndedAt = &ended
	q := testQuiz()

	e := newEvaluator()
	first := e.Evaluate(sess, q)
	second := e.Evaluate(sess, q)

	assert.Equal(t, first, second, "repeated evaluation of an ended session is byte-for-byte identical")
	assert.Equal(t, ended, first.EvaluatedAt, "the verdict timestamp comes from the session, not the clock")
}
