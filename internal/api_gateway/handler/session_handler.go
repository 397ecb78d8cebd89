package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/api_gateway/service"
	"github.com/quizforge-assessment-engine/internal/domain/account"
	"github.com/quizforge-assessment-engine/internal/domain/quiz"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/engine"
)

// ParticipantHeader carries the caller's participant identity. The gateway
// trusts it; authentication happens upstream.
const ParticipantHeader = "X-Participant-ID"

// SessionHandler handles HTTP requests for assessment session operations
type SessionHandler struct {
	sessionService service.SessionService
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(logger *slog.Logger, sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// Start opens (or resumes) a session for the quiz in the path. The caller's
// identity comes from the participant header; client metadata is captured
// from the connection for the risk evaluator.
func (h *SessionHandler) Start(c *gin.Context) {
	quizIDParam := c.Param("id")
	quizID, err := uuid.Parse(quizIDParam)
	if err != nil {
		h.logger.Error("Invalid quiz ID", "id", quizIDParam, "error", err)
		RespondBadRequest(c, "Invalid quiz ID")
		return
	}

	participantID, ok := h.participantID(c)
	if !ok {
		return
	}

	client := session.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.sessionService.Start(c.Request.Context(), participantID, quizID, client)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrQuizUnavailable{}):
			RespondNotFound(c, "Quiz is not available")
		case errors.Is(err, engine.ErrPaymentRequired):
			RespondWithError(c, http.StatusPaymentRequired, "PAYMENT_REQUIRED", err.Error())
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondWithError(c, http.StatusPaymentRequired, "PAYMENT_REQUIRED", "No wallet account for participant")
		default:
			h.logger.Error("Failed to start session", "quiz_id", quizIDParam, "participant_id", participantID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	response := StartSessionResponse{
		Session:   mapSessionToResponse(result.Session),
		Questions: mapQuestionsToResponse(result.Questions),
		Resumed:   result.Resumed,
	}

	if result.Resumed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// ReportViolation records one integrity violation against a session owned by
// the caller
func (h *SessionHandler) ReportViolation(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	participantID, ok := h.participantID(c)
	if !ok {
		return
	}

	var req ReportViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	outcome, err := h.sessionService.RecordViolation(
		c.Request.Context(),
		sessionID,
		participantID,
		shared.ViolationKind(req.Kind),
		shared.Severity(req.Severity),
		req.Detail,
	)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidViolation):
			RespondBadRequest(c, err.Error())
		case errors.Is(err, session.ErrSessionNotFound{}):
			RespondNotFound(c, "Session not found")
		case errors.Is(err, session.ErrSessionExpired):
			RespondWithError(c, http.StatusConflict, "SESSION_EXPIRED", "Session deadline has passed")
		case errors.Is(err, session.ErrSessionTerminal):
			RespondConflict(c, "Session has already ended")
		default:
			h.logger.Error("Failed to record violation", "session_id", sessionID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, ViolationOutcomeResponse{
		Accepted:        outcome.Accepted,
		Forced:          outcome.Forced,
		State:           string(outcome.State),
		TotalViolations: outcome.Total,
	})
}

// Submit scores a full answer sheet and ends the session. Only the owning
// participant can submit.
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	participantID, ok := h.participantID(c)
	if !ok {
		return
	}

	var req SubmitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	answers := make([]engine.SubmittedAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		questionID, err := uuid.Parse(a.QuestionID)
		if err != nil {
			RespondBadRequest(c, "Invalid question ID: "+a.QuestionID)
			return
		}
		answers = append(answers, engine.SubmittedAnswer{
			QuestionID:   questionID,
			Selected:     a.Selected,
			TimeSpentSec: a.TimeSpentSec,
			Skipped:      a.Skipped,
		})
	}

	result, err := h.sessionService.Submit(c.Request.Context(), sessionID, participantID, answers)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound{}):
			RespondNotFound(c, "Session not found")
		case errors.Is(err, session.ErrSessionExpired):
			RespondWithError(c, http.StatusConflict, "SESSION_EXPIRED", "Deadline passed, session was auto-ended without scoring")
		case errors.Is(err, session.ErrSessionTerminal):
			RespondConflict(c, "Session has already ended")
		case errors.Is(err, engine.ErrUnknownQuestion):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to submit session", "session_id", sessionID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, SubmitSessionResponse{
		Session:   mapSessionToResponse(result.Session),
		Verdict:   result.Verdict,
		Questions: mapQuestionsToResponse(result.Questions),
	})
}

// Get returns the current state of a session owned by the caller
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	participantID, ok := h.participantID(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound{}) {
			RespondNotFound(c, "Session not found")
			return
		}
		h.logger.Error("Failed to get session", "session_id", sessionID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	// Sessions are only visible to their participant
	if sess.ParticipantID != participantID {
		RespondNotFound(c, "Session not found")
		return
	}

	RespondOK(c, mapSessionToResponse(sess))
}

// GetVerdict recomputes the risk verdict for a terminal session
func (h *SessionHandler) GetVerdict(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	verdict, err := h.sessionService.GetVerdict(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound{}):
			RespondNotFound(c, "Session not found")
		case errors.Is(err, session.ErrSessionNotTerminal):
			RespondConflict(c, "Session has not ended yet")
		default:
			h.logger.Error("Failed to get verdict", "session_id", sessionID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, verdict)
}

func (h *SessionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid session ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) participantID(c *gin.Context) (uuid.UUID, bool) {
	header := c.GetHeader(ParticipantHeader)
	if header == "" {
		RespondUnauthorized(c, "Missing "+ParticipantHeader+" header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(header)
	if err != nil {
		RespondUnauthorized(c, "Invalid "+ParticipantHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}

// mapSessionToResponse maps a session entity to its response DTO
func mapSessionToResponse(sess *session.Session) SessionResponse {
	response := SessionResponse{
		ID:                sess.ID.String(),
		QuizID:            sess.QuizID.String(),
		ParticipantID:     sess.ParticipantID.String(),
		State:             string(sess.State),
		Flagged:           sess.Flagged,
		QuestionCount:     sess.QuestionCount,
		StartedAt:         sess.StartedAt.Format(time.RFC3339),
		Deadline:          sess.Deadline.Format(time.RFC3339),
		TimeRemainingSecs: int(sess.TimeRemaining(time.Now()).Seconds()),
		DurationSecs:      sess.DurationSecs,
		Score:             sess.Score,
		CorrectCount:      sess.CorrectCount,
		Accuracy:          sess.Accuracy(),
	}
	if sess.EndedAt != nil {
		response.EndedAt = sess.EndedAt.Format(time.RFC3339)
	}
	return response
}

// mapQuestionsToResponse maps catalog questions to response DTOs. Questions
// arrive already stripped unless the quiz reveals its key.
func mapQuestionsToResponse(questions []quiz.Question) []QuestionResponse {
	if len(questions) == 0 {
		return nil
	}
	responses := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		response := QuestionResponse{
			ID:          q.ID.String(),
			Prompt:      q.Prompt,
			Options:     q.Options,
			Explanation: q.Explanation,
			Points:      q.Points,
		}
		if !q.Answer.IsEmpty() {
			answer := q.Answer
			response.Answer = &answer
		}
		responses = append(responses, response)
	}
	return responses
}
