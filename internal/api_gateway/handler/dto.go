package handler

import (
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/risk"
)

// CreateAccountRequest represents a request to open a wallet account
type CreateAccountRequest struct {
	OwnerName      string `json:"owner_name" binding:"required"`
	InitialBalance int64  `json:"initial_balance" binding:"min=0"`
}

// AccountResponse represents a wallet account in API responses
type AccountResponse struct {
	ID          string `json:"id"`
	OwnerName   string `json:"owner_name"`
	Balance     int64  `json:"balance"`
	TotalEarned int64  `json:"total_earned"`
	TotalSpent  int64  `json:"total_spent"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// WithdrawRequest represents a withdrawal from a wallet account
type WithdrawRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// AdjustRequest represents a manual balance correction. Delta is signed:
// positive credits, negative debits.
type AdjustRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// RefundRequest represents a request to reverse a completed charge
type RefundRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Kind          string `json:"kind"`
	Direction     string `json:"direction"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	Reverses      string `json:"reverses,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
	ProcessedAt   string `json:"processed_at,omitempty"`
}

// TransactionListResponse represents a list of ledger transactions
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// SubmittedAnswerRequest is one answer in a submit request. Selected is a
// bare option index for choice questions or a string for text questions.
type SubmittedAnswerRequest struct {
	QuestionID   string             `json:"question_id" binding:"required,uuid"`
	Selected     shared.AnswerValue `json:"selected"`
	TimeSpentSec int                `json:"time_spent_sec" binding:"min=0"`
	Skipped      bool               `json:"skipped,omitempty"`
}

// SubmitSessionRequest represents a full answer sheet submission
type SubmitSessionRequest struct {
	Answers []SubmittedAnswerRequest `json:"answers" binding:"required"`
}

// ReportViolationRequest represents one integrity violation report
type ReportViolationRequest struct {
	Kind     string `json:"kind" binding:"required"`
	Severity string `json:"severity" binding:"required"`
	Detail   string `json:"detail,omitempty"`
}

// ViolationOutcomeResponse reports what happened to a violation report
type ViolationOutcomeResponse struct {
	Accepted        bool   `json:"accepted"`
	Forced          bool   `json:"forced"`
	State           string `json:"state"`
	TotalViolations int    `json:"total_violations"`
}

// QuestionResponse represents a question in API responses. Answer and
// Explanation are present only when the quiz reveals its key.
type QuestionResponse struct {
	ID          string              `json:"id"`
	Prompt      string              `json:"prompt"`
	Options     []string            `json:"options,omitempty"`
	Answer      *shared.AnswerValue `json:"answer,omitempty"`
	Explanation string              `json:"explanation,omitempty"`
	Points      int                 `json:"points"`
}

// SessionResponse represents an assessment session in API responses
type SessionResponse struct {
	ID                string  `json:"id"`
	QuizID            string  `json:"quiz_id"`
	ParticipantID     string  `json:"participant_id"`
	State             string  `json:"state"`
	Flagged           bool    `json:"flagged"`
	QuestionCount     int     `json:"question_count"`
	StartedAt         string  `json:"started_at"`
	Deadline          string  `json:"deadline"`
	TimeRemainingSecs int     `json:"time_remaining_secs"`
	EndedAt           string  `json:"ended_at,omitempty"`
	DurationSecs      int     `json:"duration_secs,omitempty"`
	Score             int     `json:"score"`
	CorrectCount      int     `json:"correct_count"`
	Accuracy          float64 `json:"accuracy"`
}

// StartSessionResponse is returned from session start
type StartSessionResponse struct {
	Session   SessionResponse    `json:"session"`
	Questions []QuestionResponse `json:"questions"`
	Resumed   bool               `json:"resumed"`
}

// SubmitSessionResponse is returned from a scored submission
type SubmitSessionResponse struct {
	Session   SessionResponse    `json:"session"`
	Verdict   *risk.Verdict      `json:"verdict,omitempty"`
	Questions []QuestionResponse `json:"questions,omitempty"`
}
