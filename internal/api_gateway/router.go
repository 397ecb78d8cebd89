package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizforge-assessment-engine/internal/api_gateway/handler"
	"github.com/quizforge-assessment-engine/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	walletHandler *handler.WalletHandler,
	sessionHandler *handler.SessionHandler,
) {
	// CorrelationID must run before Logger so request lines carry the ID
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/transactions", walletHandler.GetByAccountID)
			accounts.POST("/:id/withdrawals", walletHandler.Withdraw)
			accounts.POST("/:id/adjustments", walletHandler.Adjust)
		}

		// Ledger transaction operations
		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:id", walletHandler.GetByID)
			transactions.POST("/:id/refund", walletHandler.Refund)
		}

		// Session start is scoped under the quiz being attempted
		v1.POST("/quizzes/:id/sessions", sessionHandler.Start)

		// Session lifecycle operations
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id", sessionHandler.Get)
			sessions.POST("/:id/violations", sessionHandler.ReportViolation)
			sessions.POST("/:id/submit", sessionHandler.Submit)
			sessions.GET("/:id/verdict", sessionHandler.GetVerdict)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
