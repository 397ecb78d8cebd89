// Package wallet implements the money-handling service: atomic multi-account
// transfers, quiz-fee escrow, refunds, withdrawals and admin corrections.
// Balances only ever change through a transfer here, so the ledger stays the
// complete record of every movement.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge-assessment-engine/internal/domain/account"
	"github.com/quizforge-assessment-engine/internal/domain/ledger"
	"github.com/quizforge-assessment-engine/internal/domain/outbox"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

const bpsDenominator = 10000

// ErrWithdrawalBelowMinimum rejects withdrawals under the configured floor
type ErrWithdrawalBelowMinimum struct {
	Amount  int64
	Minimum int64
}

func (e ErrWithdrawalBelowMinimum) Error() string {
	return fmt.Sprintf("withdrawal amount %d below minimum %d", e.Amount, e.Minimum)
}

// Is matches any ErrWithdrawalBelowMinimum regardless of amounts
func (e ErrWithdrawalBelowMinimum) Is(target error) bool {
	_, ok := target.(ErrWithdrawalBelowMinimum)
	return ok
}

// Operation is one leg of a transfer: a single debit or credit against one
// account. A transfer applies all its operations or none.
type Operation struct {
	AccountID   uuid.UUID
	Kind        shared.TransactionKind
	Direction   shared.Direction
	Amount      int64
	Description string
	Reverses    *uuid.UUID
}

// TxRunner runs a function inside a database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Service executes balanced ledger transfers
type Service struct {
	db              TxRunner
	accountRepo     account.Repository
	ledgerRepo      ledger.Repository
	outboxRepo      outbox.Repository
	creatorShareBps int
	minWithdrawal   int64
	logger          *slog.Logger
}

// NewService creates a wallet service
func NewService(
	db TxRunner,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	creatorShareBps int,
	minWithdrawal int64,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:              db,
		accountRepo:     accountRepo,
		ledgerRepo:      ledgerRepo,
		outboxRepo:      outboxRepo,
		creatorShareBps: creatorShareBps,
		minWithdrawal:   minWithdrawal,
		logger:          logger,
	}
}

// Split divides a price between creator and platform in basis points. The
// platform share is the remainder, so the two always sum to the price and
// rounding never mints or burns a unit.
func (s *Service) Split(price int64) (creatorShare, platformShare int64) {
	creatorShare = price * int64(s.creatorShareBps) / bpsDenominator
	platformShare = price - creatorShare
	return creatorShare, platformShare
}

// Transfer applies the operations atomically in a fresh transaction
func (s *Service) Transfer(ctx context.Context, correlationID string, ops []Operation) ([]*ledger.Transaction, error) {
	var txns []*ledger.Transaction
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		txns, txErr = s.TransferTx(ctx, tx, correlationID, ops)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// TransferTx applies the operations inside the caller's transaction. The
// session engine uses this to make escrow atomic with session creation.
//
// All touched accounts are locked FOR UPDATE in ascending id order so two
// concurrent transfers over the same accounts can never deadlock. Every
// resulting balance is checked before any row is written.
func (s *Service) TransferTx(ctx context.Context, tx pgx.Tx, correlationID string, ops []Operation) ([]*ledger.Transaction, error) {
	if len(ops) == 0 {
		return nil, errors.New("transfer requires at least one operation")
	}
	for _, op := range ops {
		if op.Amount <= 0 {
			return nil, ledger.ErrInvalidTransactionAmount
		}
	}

	accountRepoTx := s.accountRepo.WithTx(tx)
	ledgerRepoTx := s.ledgerRepo.WithTx(tx)
	outboxRepoTx := s.outboxRepo.WithTx(tx)

	accounts, err := s.lockAccounts(ctx, accountRepoTx, ops)
	if err != nil {
		return nil, err
	}

	// Operations apply in the given order; each ledger row records the
	// account balance immediately around its own operation.
	txns := make([]*ledger.Transaction, 0, len(ops))
	for _, op := range ops {
		acc := accounts[op.AccountID]
		balanceBefore := acc.Balance

		switch op.Direction {
		case shared.DirectionDebit:
			spending := op.Kind == shared.TransactionKindCharge
			if err := acc.Debit(op.Amount, spending); err != nil {
				s.logger.Warn("Transfer operation rejected",
					"correlation_id", correlationID,
					"account_id", op.AccountID.String(),
					"amount", op.Amount,
					"error", err,
				)
				return nil, err
			}
		case shared.DirectionCredit:
			earning := op.Kind == shared.TransactionKindPayoutShare
			if err := acc.Credit(op.Amount, earning); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown transfer direction: %s", op.Direction)
		}

		txn, err := ledger.NewTransaction(op.AccountID, op.Kind, op.Direction, op.Amount, balanceBefore, acc.Balance, correlationID, op.Description)
		if err != nil {
			return nil, err
		}
		txn.Reverses = op.Reverses

		if err := ledgerRepoTx.Create(ctx, txn); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	for _, acc := range accounts {
		if err := accountRepoTx.Update(ctx, acc); err != nil {
			return nil, err
		}
	}

	event := shared.NewSessionEvent(shared.EventLedgerTransfer, uuid.Nil, uuid.Nil, uuid.Nil, "", correlationID)
	message, err := outbox.NewMessage(event)
	if err != nil {
		return nil, err
	}
	if err := outboxRepoTx.Create(ctx, message); err != nil {
		return nil, err
	}

	s.logger.Info("Transfer applied",
		"correlation_id", correlationID,
		"operations", len(ops),
	)
	return txns, nil
}

// EscrowTx charges the participant and splits the price between creator and
// platform inside the caller's transaction. Three ledger rows, one
// correlation id.
func (s *Service) EscrowTx(ctx context.Context, tx pgx.Tx, correlationID string, participantID, creatorID, platformID uuid.UUID, price int64) ([]*ledger.Transaction, error) {
	creatorShare, platformShare := s.Split(price)

	ops := []Operation{
		{AccountID: participantID, Kind: shared.TransactionKindCharge, Direction: shared.DirectionDebit, Amount: price, Description: "quiz fee"},
		{AccountID: creatorID, Kind: shared.TransactionKindPayoutShare, Direction: shared.DirectionCredit, Amount: creatorShare, Description: "creator share"},
		{AccountID: platformID, Kind: shared.TransactionKindPayoutShare, Direction: shared.DirectionCredit, Amount: platformShare, Description: "platform share"},
	}

	return s.TransferTx(ctx, tx, correlationID, ops)
}

// Refund reverses a completed charge. Every row sharing the original's
// correlation id is inverted under a fresh correlation id, and the originals
// are marked REVERSED, all in one transaction. A second refund attempt finds
// the original REVERSED and fails with ErrNotRefundable.
func (s *Service) Refund(ctx context.Context, originalTransactionID uuid.UUID, reason string) ([]*ledger.Transaction, error) {
	var refunds []*ledger.Transaction

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)

		original, err := ledgerRepoTx.GetByID(ctx, originalTransactionID)
		if err != nil {
			return err
		}
		if !original.Refundable() {
			return ledger.ErrNotRefundable{TransactionID: originalTransactionID, Reason: "transaction is not a completed charge"}
		}

		siblings, err := ledgerRepoTx.GetByCorrelationID(ctx, original.CorrelationID)
		if err != nil {
			return err
		}

		refundCorrelationID := uuid.New().String()
		ops := make([]Operation, 0, len(siblings))
		for _, sib := range siblings {
			if sib.Status != shared.TransactionStatusCompleted {
				return ledger.ErrNotRefundable{TransactionID: originalTransactionID, Reason: "transfer already reversed"}
			}
			id := sib.ID
			ops = append(ops, Operation{
				AccountID:   sib.AccountID,
				Kind:        shared.TransactionKindRefund,
				Direction:   invert(sib.Direction),
				Amount:      sib.Amount,
				Description: "refund: " + reason,
				Reverses:    &id,
			})
		}

		refunds, err = s.TransferTx(ctx, tx, refundCorrelationID, ops)
		if err != nil {
			return err
		}

		for _, sib := range siblings {
			if err := ledgerRepoTx.UpdateStatus(ctx, sib.ID, shared.TransactionStatusReversed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Refund applied", "original_transaction_id", originalTransactionID.String())
	return refunds, nil
}

// Withdraw debits held funds from an account (creator payout)
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount int64) (*ledger.Transaction, error) {
	if amount < s.minWithdrawal {
		return nil, ErrWithdrawalBelowMinimum{Amount: amount, Minimum: s.minWithdrawal}
	}

	txns, err := s.Transfer(ctx, uuid.New().String(), []Operation{{
		AccountID:   accountID,
		Kind:        shared.TransactionKindWithdrawal,
		Direction:   shared.DirectionDebit,
		Amount:      amount,
		Description: "withdrawal",
	}})
	if err != nil {
		return nil, err
	}
	return txns[0], nil
}

// Adjust applies a signed admin correction. A positive delta credits the
// account, a negative one debits it.
func (s *Service) Adjust(ctx context.Context, accountID uuid.UUID, delta int64, reason string) (*ledger.Transaction, error) {
	if delta == 0 {
		return nil, ledger.ErrInvalidTransactionAmount
	}

	op := Operation{
		AccountID:   accountID,
		Kind:        shared.TransactionKindCorrection,
		Direction:   shared.DirectionCredit,
		Amount:      delta,
		Description: "correction: " + reason,
	}
	if delta < 0 {
		op.Direction = shared.DirectionDebit
		op.Amount = -delta
	}

	txns, err := s.Transfer(ctx, uuid.New().String(), []Operation{op})
	if err != nil {
		return nil, err
	}
	return txns[0], nil
}

// lockAccounts acquires row locks on every distinct account in ascending id
// order and returns them keyed by id.
func (s *Service) lockAccounts(ctx context.Context, repo account.Repository, ops []Operation) (map[uuid.UUID]*account.Account, error) {
	ids := make([]uuid.UUID, 0, len(ops))
	seen := make(map[uuid.UUID]bool, len(ops))
	for _, op := range ops {
		if !seen[op.AccountID] {
			seen[op.AccountID] = true
			ids = append(ids, op.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	accounts := make(map[uuid.UUID]*account.Account, len(ids))
	for _, id := range ids {
		acc, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = acc
	}
	return accounts, nil
}

func invert(d shared.Direction) shared.Direction {
	if d == shared.DirectionDebit {
		return shared.DirectionCredit
	}
	return shared.DirectionDebit
}
