// Package risk evaluates terminal sessions for cheating signals. The
// evaluator is a pure function of the session and the quiz policy: the same
// inputs always produce the same verdict, so the API gateway and the verdict
// worker can both run it and agree.
package risk

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/quiz"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

// FindingKind identifies one category of suspicious signal
type FindingKind string

const (
	FindingTimingAnomaly       FindingKind = "timing_anomaly"
	FindingDegeneratePattern   FindingKind = "degenerate_answer_pattern"
	FindingExcessiveViolations FindingKind = "excessive_violations"
	FindingSessionArtifact     FindingKind = "session_artifact_anomaly"
)

// Severity weights. A finding contributes its weight to the score; the score
// is the capped average over triggered findings only, so a single critical
// finding is never diluted by categories that stayed quiet.
var severityWeights = map[shared.Severity]float64{
	shared.SeverityLow:      0.25,
	shared.SeverityMedium:   0.5,
	shared.SeverityHigh:     0.85,
	shared.SeverityCritical: 1.0,
}

// Recommendation thresholds
const (
	rejectThreshold = 0.8
	reviewThreshold = 0.4
)

// Timing anomaly ratios: the share of answers outside the plausible range
// that escalates the finding.
const (
	timingMediumRatio = 0.30
	timingHighRatio   = 0.50
)

// Minimum number of choice answers before the pattern finding applies.
// Shorter runs match the degenerate shapes too often by chance.
const minPatternAnswers = 4

// Finding is one triggered signal with its evidence
type Finding struct {
	Kind     FindingKind     `json:"kind" bson:"kind"`
	Severity shared.Severity `json:"severity" bson:"severity"`
	Detail   string          `json:"detail" bson:"detail"`
}

// Verdict is the full risk assessment for one terminal session
type Verdict struct {
	SessionID      uuid.UUID             `json:"session_id" bson:"session_id"`
	Score          float64               `json:"score" bson:"score"`
	Recommendation shared.Recommendation `json:"recommendation" bson:"recommendation"`
	Findings       []Finding             `json:"findings" bson:"findings"`
	EvaluatedAt    time.Time             `json:"evaluated_at" bson:"evaluated_at"`
}

// Evaluator computes risk verdicts for terminal sessions
type Evaluator struct {
	minPlausibleSecs int
	maxPlausibleSecs int
	globalCeiling    int
}

// NewEvaluator creates an evaluator with the given timing plausibility range
// and global violation ceiling.
func NewEvaluator(minPlausibleSecs, maxPlausibleSecs, globalCeiling int) *Evaluator {
	return &Evaluator{
		minPlausibleSecs: minPlausibleSecs,
		maxPlausibleSecs: maxPlausibleSecs,
		globalCeiling:    globalCeiling,
	}
}

// Evaluate assesses a terminal session against the quiz's anti-cheat policy.
// It never mutates the session and performs no I/O.
func (e *Evaluator) Evaluate(sess *session.Session, q *quiz.Quiz) Verdict {
	var findings []Finding

	if f, ok := e.timingFinding(sess); ok {
		findings = append(findings, f)
	}
	if f, ok := e.patternFinding(sess); ok {
		findings = append(findings, f)
	}
	if f, ok := e.violationFinding(sess, q); ok {
		findings = append(findings, f)
	}
	if f, ok := e.artifactFinding(sess); ok {
		findings = append(findings, f)
	}

	score := 0.0
	if len(findings) > 0 {
		sum := 0.0
		for _, f := range findings {
			sum += severityWeights[f.Severity]
		}
		score = sum / float64(len(findings))
		if score > 1 {
			score = 1
		}
	}

	// Pinned to the session's end time rather than the wall clock, so
	// re-evaluations of the same session produce identical verdicts.
	evaluatedAt := time.Now().UTC()
	if sess.EndedAt != nil {
		evaluatedAt = sess.EndedAt.UTC()
	}

	return Verdict{
		SessionID:      sess.ID,
		Score:          score,
		Recommendation: recommend(score),
		Findings:       findings,
		EvaluatedAt:    evaluatedAt,
	}
}

func recommend(score float64) shared.Recommendation {
	switch {
	case score >= rejectThreshold:
		return shared.RecommendationReject
	case score >= reviewThreshold:
		return shared.RecommendationReview
	default:
		return shared.RecommendationAccept
	}
}

// timingFinding fires when too many answers fall outside the plausible
// per-question time range. Skipped answers carry no timing signal.
func (e *Evaluator) timingFinding(sess *session.Session) (Finding, bool) {
	timed := 0
	implausible := 0
	for _, a := range sess.Answers {
		if a.Skipped {
			continue
		}
		timed++
		if a.TimeSpentSec < e.minPlausibleSecs || a.TimeSpentSec > e.maxPlausibleSecs {
			implausible++
		}
	}
	if timed == 0 {
		return Finding{}, false
	}

	ratio := float64(implausible) / float64(timed)
	switch {
	case ratio > timingHighRatio:
		return Finding{
			Kind:     FindingTimingAnomaly,
			Severity: shared.SeverityHigh,
			Detail:   timingDetail(implausible, timed),
		}, true
	case ratio > timingMediumRatio:
		return Finding{
			Kind:     FindingTimingAnomaly,
			Severity: shared.SeverityMedium,
			Detail:   timingDetail(implausible, timed),
		}, true
	}
	return Finding{}, false
}

func timingDetail(implausible, timed int) string {
	return strconv.Itoa(implausible) + " of " + strconv.Itoa(timed) + " answers outside plausible time range"
}

// patternFinding detects mechanical answer sequences over choice answers:
// every answer identical, a sequential rotation through option indices, or a
// two-value alternation.
func (e *Evaluator) patternFinding(sess *session.Session) (Finding, bool) {
	var choices []int
	for _, a := range sess.Answers {
		if a.Skipped || a.Selected.Choice == nil {
			continue
		}
		choices = append(choices, *a.Selected.Choice)
	}
	if len(choices) < minPatternAnswers {
		return Finding{}, false
	}

	var detail string
	switch {
	case allIdentical(choices):
		detail = "all answers identical"
	case sequentialRotation(choices):
		detail = "answers rotate sequentially through options"
	case alternating(choices):
		detail = "answers alternate between two options"
	default:
		return Finding{}, false
	}

	return Finding{
		Kind:     FindingDegeneratePattern,
		Severity: shared.SeverityHigh,
		Detail:   detail,
	}, true
}

// violationFinding fires on an over-threshold kind, any critical violation,
// or a total above the global ceiling. Mirrors the monitor's forced
// termination rules so that a forced session always carries the finding.
func (e *Evaluator) violationFinding(sess *session.Session, q *quiz.Quiz) (Finding, bool) {
	if sess.HasCriticalViolation() {
		return Finding{
			Kind:     FindingExcessiveViolations,
			Severity: shared.SeverityCritical,
			Detail:   "critical-severity violation recorded",
		}, true
	}

	counts := make(map[shared.ViolationKind]int)
	for _, v := range sess.Violations {
		counts[v.Kind]++
	}
	for kind, count := range counts {
		if max := q.AntiCheat.MaxFor(kind); max > 0 && count > max {
			return Finding{
				Kind:     FindingExcessiveViolations,
				Severity: shared.SeverityCritical,
				Detail:   string(kind) + " violations exceeded quiz threshold",
			}, true
		}
	}
	if len(sess.Violations) > e.globalCeiling {
		return Finding{
			Kind:     FindingExcessiveViolations,
			Severity: shared.SeverityCritical,
			Detail:   "total violations exceeded global ceiling",
		}, true
	}
	return Finding{}, false
}

// artifactFinding fires on missing or implausibly short client metadata.
// A weak signal on its own, hence the low severity.
func (e *Evaluator) artifactFinding(sess *session.Session) (Finding, bool) {
	if sess.Client.IPAddress == "" || len(sess.Client.UserAgent) < 10 {
		return Finding{
			Kind:     FindingSessionArtifact,
			Severity: shared.SeverityLow,
			Detail:   "missing or implausible client metadata",
		}, true
	}
	return Finding{}, false
}

func allIdentical(choices []int) bool {
	for _, c := range choices[1:] {
		if c != choices[0] {
			return false
		}
	}
	return true
}

// sequentialRotation reports whether each answer is the previous one plus
// one, wrapping modulo the observed option range (a, a+1, a+2, ...).
func sequentialRotation(choices []int) bool {
	max := choices[0]
	for _, c := range choices {
		if c > max {
			max = c
		}
	}
	modulus := max + 1
	for i := 1; i < len(choices); i++ {
		if choices[i] != (choices[i-1]+1)%modulus {
			return false
		}
	}
	return true
}

// alternating reports a strict two-value alternation (a, b, a, b, ...)
// with a != b.
func alternating(choices []int) bool {
	if choices[0] == choices[1] {
		return false
	}
	for i := 2; i < len(choices); i++ {
		if choices[i] != choices[i-2] {
			return false
		}
	}
	return true
}
