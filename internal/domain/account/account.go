package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrEmptyOwnerName    = errors.New("owner name cannot be empty")
)

// Account holds one user's wallet balance. Balances are stored in integer
// minor currency units and are mutated only through ledger transfers, never
// by direct write.
type Account struct {
	ID          uuid.UUID `json:"id"`
	OwnerName   string    `json:"owner_name"`
	Balance     int64 `json:"balance"`      // minor units, never negative
	TotalEarned int64 `json:"total_earned"` // lifetime credits from payout shares
	TotalSpent  int64 `json:"total_spent"`  // lifetime debits from charges

	// Version is the persisted revision used for optimistic locking. The
	// repository advances it on write; Credit and Debit leave it alone, so a
	// transfer may apply several operations to one account before saving.
	Version int `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAccount creates a new account with the given opening balance
func NewAccount(ownerName string, openingBalance int64) (*Account, error) {
	if ownerName == "" {
		return nil, ErrEmptyOwnerName
	}
	if openingBalance < 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		OwnerName: ownerName,
		Balance:   openingBalance,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Credit adds the amount to the balance. Earning marks the credit as income
// (payout shares) so lifetime earnings track creator revenue.
func (a *Account) Credit(amount int64, earning bool) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	if earning {
		a.TotalEarned += amount
	}
	a.UpdatedAt = time.Now()
	return nil
}

// Debit subtracts the amount from the balance. Spending marks the debit as
// expenditure (quiz charges) rather than a withdrawal of held funds.
func (a *Account) Debit(amount int64, spending bool) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	if spending {
		a.TotalSpent += amount
	}
	a.UpdatedAt = time.Now()
	return nil
}

// CanDebit checks if the account has sufficient funds for a debit
func (a *Account) CanDebit(amount int64) bool {
	return a.Balance >= amount
}
