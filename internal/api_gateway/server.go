package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge-assessment-engine/internal/api_gateway/handler"
	"github.com/quizforge-assessment-engine/internal/api_gateway/service"
	"github.com/quizforge-assessment-engine/internal/config"
)

// Server owns the HTTP listener for the assessment gateway
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer builds the gin router, mounts the account, wallet and session
// handlers on it, and wraps everything in a configured http.Server.
func NewServer(log *slog.Logger, cfg *config.Config, accountService service.AccountService, walletService service.WalletService, sessionService service.SessionService) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	setupRouter(log, router,
		handler.NewAccountHandler(log, accountService),
		handler.NewWalletHandler(log, walletService),
		handler.NewSessionHandler(log, sessionService),
	)

	return &Server{
		logger: log,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

// Start blocks serving HTTP until the listener is closed
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests, bounded by the server's write timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
