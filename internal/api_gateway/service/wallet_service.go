package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/ledger"
	"github.com/quizforge-assessment-engine/internal/wallet"
)

// WalletServiceImpl implements WalletService on top of the wallet transfer
// engine for mutations and the ledger repository for reads.
type WalletServiceImpl struct {
	wallet     *wallet.Service
	ledgerRepo ledger.Repository
}

// NewWalletService creates a new wallet service
func NewWalletService(walletSvc *wallet.Service, ledgerRepo ledger.Repository) WalletService {
	return &WalletServiceImpl{
		wallet:     walletSvc,
		ledgerRepo: ledgerRepo,
	}
}

// GetTransactionByID retrieves a ledger transaction by its ID
func (s *WalletServiceImpl) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*ledger.Transaction, error) {
	return s.ledgerRepo.GetByID(ctx, transactionID)
}

// GetTransactionsByAccountID returns one page of ledger history plus the
// total row count for pagination metadata.
func (s *WalletServiceImpl) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Transaction, int64, error) {
	offset := (page - 1) * perPage

	transactions, err := s.ledgerRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// Withdraw debits the account, enforcing the minimum withdrawal amount
func (s *WalletServiceImpl) Withdraw(ctx context.Context, accountID uuid.UUID, amount int64) (*ledger.Transaction, error) {
	return s.wallet.Withdraw(ctx, accountID, amount)
}

// Adjust applies a signed manual correction to the account
func (s *WalletServiceImpl) Adjust(ctx context.Context, accountID uuid.UUID, delta int64, reason string) (*ledger.Transaction, error) {
	return s.wallet.Adjust(ctx, accountID, delta, reason)
}

// Refund reverses a completed charge and its sibling payout rows
func (s *WalletServiceImpl) Refund(ctx context.Context, transactionID uuid.UUID, reason string) ([]*ledger.Transaction, error) {
	return s.wallet.Refund(ctx, transactionID, reason)
}
