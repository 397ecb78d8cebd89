package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/account"
	"github.com/quizforge-assessment-engine/internal/domain/ledger"
	"github.com/quizforge-assessment-engine/internal/domain/session"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/engine"
	"github.com/quizforge-assessment-engine/internal/risk"
)

// AccountService defines the interface for wallet account operations
type AccountService interface {
	// CreateAccount opens a wallet account with the given opening balance
	CreateAccount(ctx context.Context, ownerName string, initialBalance int64) (*account.Account, error)

	// GetAccountByID retrieves an account by its ID
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// WalletService defines the interface for ledger transaction operations
type WalletService interface {
	// GetTransactionByID retrieves a ledger transaction by its ID
	// Returns ErrTransactionNotFound if no row exists
	GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*ledger.Transaction, error)

	// GetTransactionsByAccountID retrieves the paginated ledger history for
	// an account, newest first, with the total row count
	GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Transaction, int64, error)

	// Withdraw debits the account, enforcing the minimum withdrawal amount
	Withdraw(ctx context.Context, accountID uuid.UUID, amount int64) (*ledger.Transaction, error)

	// Adjust applies a signed manual correction to the account
	Adjust(ctx context.Context, accountID uuid.UUID, delta int64, reason string) (*ledger.Transaction, error)

	// Refund reverses a completed charge and its sibling payout rows
	Refund(ctx context.Context, transactionID uuid.UUID, reason string) ([]*ledger.Transaction, error)
}

// SessionService is the session engine surface the gateway depends on.
// Implemented by engine.Engine. Mutating operations take the caller's
// participant id and fail with ErrSessionNotFound when it does not own the
// session, so session ids alone grant nothing.
type SessionService interface {
	Start(ctx context.Context, participantID, quizID uuid.UUID, client session.ClientMeta) (*engine.StartResult, error)
	Submit(ctx context.Context, sessionID, participantID uuid.UUID, answers []engine.SubmittedAnswer) (*engine.SubmitResult, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
	GetVerdict(ctx context.Context, sessionID uuid.UUID) (*risk.Verdict, error)
	RecordViolation(ctx context.Context, sessionID, participantID uuid.UUID, kind shared.ViolationKind, severity shared.Severity, detail string) (*engine.ViolationOutcome, error)
}
