package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

var ErrInvalidTransactionAmount = errors.New("transaction amount must be positive")

// Transaction is one immutable record of a balance change. Every transfer
// appends one row per account touched; all rows of a transfer share a
// correlation id. Rows are never deleted — a refund appends compensating
// rows and marks the originals REVERSED.
type Transaction struct {
	ID            uuid.UUID                `json:"id"`
	AccountID     uuid.UUID                `json:"account_id"`
	Kind          shared.TransactionKind   `json:"kind"`
	Direction     shared.Direction         `json:"direction"`
	Amount        int64                    `json:"amount"` // minor units, always positive
	BalanceBefore int64                    `json:"balance_before"`
	BalanceAfter  int64                    `json:"balance_after"`
	Status        shared.TransactionStatus `json:"status"`
	CorrelationID string                   `json:"correlation_id"`
	Reverses      *uuid.UUID               `json:"reverses,omitempty"` // original row a refund compensates
	Description   string                   `json:"description,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	ProcessedAt   *time.Time               `json:"processed_at,omitempty"`
}

// NewTransaction builds a COMPLETED transaction row. Transfers record their
// rows inside the same database transaction that moves the balances, so a
// persisted row is by definition completed.
func NewTransaction(accountID uuid.UUID, kind shared.TransactionKind, direction shared.Direction, amount, balanceBefore, balanceAfter int64, correlationID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidTransactionAmount
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          kind,
		Direction:     direction,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Status:        shared.TransactionStatusCompleted,
		CorrelationID: correlationID,
		Description:   description,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}, nil
}

// Refundable reports whether a refund may reverse this row
func (t *Transaction) Refundable() bool {
	return t.Status == shared.TransactionStatusCompleted && t.Kind == shared.TransactionKindCharge
}
