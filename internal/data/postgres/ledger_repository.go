package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge-assessment-engine/internal/domain/ledger"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/platform/persistence"
)

const ledgerColumns = "id, account_id, kind, direction, amount, balance_before, balance_after, status, correlation_id, reverses, description, created_at, processed_at"

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// Rows live in the same database as the accounts they describe so a transfer
// and its journal entries commit or roll back as one unit.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a transaction row. Rows are immutable after insert; only
// the status column ever changes, and only forward.
func (r *LedgerRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.AccountID,
		txn.Kind,
		txn.Direction,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Status,
		txn.CorrelationID,
		txn.Reverses,
		txn.Description,
		txn.CreatedAt,
		txn.ProcessedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create ledger transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger transaction by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_transactions WHERE id = $1`

	txn, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get ledger transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger transaction: %w", err)
	}

	return txn, nil
}

// GetByCorrelationID retrieves every row of one logical transfer, in insert order
func (r *LedgerRepository) GetByCorrelationID(ctx context.Context, correlationID string) ([]*ledger.Transaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_transactions WHERE correlation_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.querier.Query(ctx, query, correlationID)
	if err != nil {
		r.logger.Error("Failed to get ledger transactions by correlation", "correlation_id", correlationID, "error", err)
		return nil, fmt.Errorf("failed to get ledger transactions by correlation: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// GetByAccountID retrieves paginated ledger transactions for an account,
// newest first.
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ledger transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger transactions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountByAccountID returns the total number of transactions for an account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_transactions WHERE account_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger transactions: %w", err)
	}

	return count, nil
}

// UpdateStatus moves a transaction's status forward (e.g. COMPLETED ->
// REVERSED on refund). Returns ErrTransactionNotFound if the row is missing.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.TransactionStatus) error {
	query := `
		UPDATE ledger_transactions
		SET status = $1, processed_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update ledger transaction status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update ledger transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

func (r *LedgerRepository) scanOne(row pgx.Row) (*ledger.Transaction, error) {
	var txn ledger.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Kind,
		&txn.Direction,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&txn.Status,
		&txn.CorrelationID,
		&txn.Reverses,
		&txn.Description,
		&txn.CreatedAt,
		&txn.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *LedgerRepository) scanAll(rows pgx.Rows) ([]*ledger.Transaction, error) {
	var txns []*ledger.Transaction
	for rows.Next() {
		txn, err := r.scanOne(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger transaction", "error", err)
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger transactions", "error", err)
		return nil, fmt.Errorf("error iterating over ledger transactions: %w", err)
	}

	return txns, nil
}
