package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

// Repository manages ledger transaction persistence with pagination support
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByCorrelationID(ctx context.Context, correlationID string) ([]*Transaction, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.TransactionStatus) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing ledger transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "ledger transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries a nil id
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrNotRefundable indicates the transaction is not a completed, unreversed charge
type ErrNotRefundable struct {
	TransactionID uuid.UUID
	Reason        string
}

func (e ErrNotRefundable) Error() string {
	return "transaction not refundable: " + e.TransactionID.String() + ": " + e.Reason
}

// Is matches any ErrNotRefundable regardless of the reason text
func (e ErrNotRefundable) Is(target error) bool {
	t, ok := target.(ErrNotRefundable)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
