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
	"github.com/quizforge-assessment-engine/internal/domain/ledger"
	"github.com/quizforge-assessment-engine/internal/wallet"
)

// WalletHandler handles HTTP requests for ledger transaction operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// GetByID retrieves a ledger transaction by its ID, returns 404 if not found
func (h *WalletHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.walletService.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound{}) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to get transaction", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// GetByAccountID retrieves paginated ledger history for an account
func (h *WalletHandler) GetByAccountID(c *gin.Context) {
	accountIDParam := c.Param("id")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", accountIDParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	transactions, total, err := h.walletService.GetTransactionsByAccountID(c.Request.Context(), accountID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to get transactions", "account_id", accountIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := TransactionListResponse{
		Transactions: make([]TransactionResponse, 0, len(transactions)),
	}
	for _, txn := range transactions {
		response.Transactions = append(response.Transactions, mapTransactionToResponse(txn))
	}

	RespondWithPaginatedData(c, http.StatusOK, response, params.Page, params.PerPage, int(total))
}

// Withdraw debits an account, enforcing the minimum withdrawal amount
func (h *WalletHandler) Withdraw(c *gin.Context) {
	accountIDParam := c.Param("id")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", accountIDParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txn, err := h.walletService.Withdraw(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, wallet.ErrWithdrawalBelowMinimum{}):
			RespondWithError(c, http.StatusUnprocessableEntity, "BELOW_MINIMUM", err.Error())
		case errors.Is(err, account.ErrInsufficientFunds):
			RespondWithError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Account balance is too low for this withdrawal")
		default:
			h.logger.Error("Failed to process withdrawal", "account_id", accountIDParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// Adjust applies a signed manual correction to an account balance
func (h *WalletHandler) Adjust(c *gin.Context) {
	accountIDParam := c.Param("id")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", accountIDParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txn, err := h.walletService.Adjust(c.Request.Context(), accountID, req.Delta, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, err.Error())
		case errors.Is(err, account.ErrInsufficientFunds):
			RespondWithError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Account balance is too low for this correction")
		default:
			h.logger.Error("Failed to apply adjustment", "account_id", accountIDParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// Refund reverses a completed charge and its sibling payout rows
func (h *WalletHandler) Refund(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	// Body is optional, a refund needs no reason
	var req RefundRequest
	_ = c.ShouldBindJSON(&req)

	transactions, err := h.walletService.Refund(c.Request.Context(), id, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrTransactionNotFound{}):
			RespondNotFound(c, "Transaction not found")
		case errors.Is(err, ledger.ErrNotRefundable{}):
			RespondConflict(c, err.Error())
		default:
			h.logger.Error("Failed to refund transaction", "id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	response := TransactionListResponse{
		Transactions: make([]TransactionResponse, 0, len(transactions)),
	}
	for _, txn := range transactions {
		response.Transactions = append(response.Transactions, mapTransactionToResponse(txn))
	}

	RespondCreated(c, response)
}

// mapTransactionToResponse maps a ledger transaction to its response DTO
func mapTransactionToResponse(txn *ledger.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:            txn.ID.String(),
		AccountID:     txn.AccountID.String(),
		Kind:          string(txn.Kind),
		Direction:     string(txn.Direction),
		Amount:        txn.Amount,
		BalanceBefore: txn.BalanceBefore,
		BalanceAfter:  txn.BalanceAfter,
		Status:        string(txn.Status),
		CorrelationID: txn.CorrelationID,
		Description:   txn.Description,
		CreatedAt:     txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.Reverses != nil {
		response.Reverses = txn.Reverses.String()
	}
	if txn.ProcessedAt != nil {
		response.ProcessedAt = txn.ProcessedAt.Format(time.RFC3339)
	}
	return response
}
