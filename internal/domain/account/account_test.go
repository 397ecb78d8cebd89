package account

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		ownerName := "John Doe"
		openingBalance := int64(10000) // 100.00

		beforeCreation := time.Now()
		account, err := NewAccount(ownerName, openingBalance)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, account)

		assert.NotEqual(t, uuid.Nil, account.ID, "Account ID should not be nil")
		assert.Equal(t, ownerName, account.OwnerName)
		assert.Equal(t, openingBalance, account.Balance)
		assert.Zero(t, account.TotalEarned)
		assert.Zero(t, account.TotalSpent)
		assert.Equal(t, 1, account.Version, "Initial version should be 1")

		assert.WithinDuration(t, beforeCreation, account.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)
		assert.WithinDuration(t, account.CreatedAt, account.UpdatedAt, time.Millisecond, "CreatedAt and UpdatedAt should be very close on creation")
	})

	t.Run("EmptyOwnerName", func(t *testing.T) {
		account, err := NewAccount("", 100)
		assert.ErrorIs(t, err, ErrEmptyOwnerName)
		assert.Nil(t, account)
	})

	t.Run("NegativeOpeningBalance", func(t *testing.T) {
		account, err := NewAccount("Jane Doe", -1)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Nil(t, account)
	})

	t.Run("ZeroOpeningBalanceIsAllowed", func(t *testing.T) {
		account, err := NewAccount("Jane Doe", 0)
		require.NoError(t, err)
		assert.Zero(t, account.Balance)
	})
}

func TestAccount_Credit(t *testing.T) {
	newAccount := func() *Account {
		return &Account{
			ID:        uuid.New(),
			OwnerName: "Jane Doe",
			Balance:   5000,
			Version:   1,
			CreatedAt: time.Now().Add(-time.Hour),
			UpdatedAt: time.Now().Add(-time.Hour),
		}
	}

	t.Run("PlainCredit", func(t *testing.T) {
		acc := newAccount()

		err := acc.Credit(2000, false)

		require.NoError(t, err)
		assert.Equal(t, int64(7000), acc.Balance)
		assert.Zero(t, acc.TotalEarned, "a refund credit is not income")
		assert.Equal(t, 1, acc.Version, "the repository owns the version, not the mutation")
		assert.True(t, acc.UpdatedAt.After(acc.CreatedAt))
	})

	t.Run("EarningCreditTracksLifetimeIncome", func(t *testing.T) {
		acc := newAccount()

		require.NoError(t, acc.Credit(700, true))
		require.NoError(t, acc.Credit(700, true))

		assert.Equal(t, int64(6400), acc.Balance)
		assert.Equal(t, int64(1400), acc.TotalEarned)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		acc := newAccount()
		assert.ErrorIs(t, acc.Credit(0, false), ErrInvalidAmount)
		assert.ErrorIs(t, acc.Credit(-5, true), ErrInvalidAmount)
		assert.Equal(t, int64(5000), acc.Balance, "balance must be untouched on error")
	})
}

func TestAccount_Debit(t *testing.T) {
	newAccount := func() *Account {
		return &Account{
			ID:        uuid.New(),
			OwnerName: "Peter Pan",
			Balance:   10000,
			Version:   2,
			CreatedAt: time.Now().Add(-2 * time.Hour),
			UpdatedAt: time.Now().Add(-time.Minute),
		}
	}

	t.Run("PlainDebit", func(t *testing.T) {
		acc := newAccount()

		err := acc.Debit(3000, false)

		require.NoError(t, err)
		assert.Equal(t, int64(7000), acc.Balance)
		assert.Zero(t, acc.TotalSpent, "a withdrawal is not spending")
		assert.Equal(t, 2, acc.Version, "the repository owns the version, not the mutation")
	})

	t.Run("SpendingDebitTracksLifetimeSpend", func(t *testing.T) {
		acc := newAccount()

		require.NoError(t, acc.Debit(1000, true))

		assert.Equal(t, int64(9000), acc.Balance)
		assert.Equal(t, int64(1000), acc.TotalSpent)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		acc := newAccount()
		err := acc.Debit(10001, true)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, int64(10000), acc.Balance)
		assert.Equal(t, 2, acc.Version)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		acc := newAccount()
		assert.ErrorIs(t, acc.Debit(0, false), ErrInvalidAmount)
	})
}

func TestAccount_CanDebit(t *testing.T) {
	acc := &Account{Balance: 1000}
	assert.True(t, acc.CanDebit(500))
	assert.True(t, acc.CanDebit(1000))
	assert.False(t, acc.CanDebit(1001))
}
