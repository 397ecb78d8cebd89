package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quizforge-assessment-engine/internal/api_gateway"
	"github.com/quizforge-assessment-engine/internal/api_gateway/service"
	"github.com/quizforge-assessment-engine/internal/config"
	"github.com/quizforge-assessment-engine/internal/data/postgres"
	"github.com/quizforge-assessment-engine/internal/engine"
	"github.com/quizforge-assessment-engine/internal/logger"
	"github.com/quizforge-assessment-engine/internal/outbox_poller"
	"github.com/quizforge-assessment-engine/internal/platform/messaging/producers"
	"github.com/quizforge-assessment-engine/internal/platform/persistence"
	"github.com/quizforge-assessment-engine/internal/risk"
	"github.com/quizforge-assessment-engine/internal/wallet"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize PostgreSQL with app context (runs migrations)
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the session event stream
	eventProducer, err := producers.NewSessionEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize session event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	sessionRepo := postgres.NewSessionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	catalog := postgres.NewQuizRepository(log, postgresDB)

	// Initialize domain services
	walletSvc := wallet.NewService(postgresDB, accountRepo, ledgerRepo, outboxRepo,
		cfg.Session.CreatorShareBps, cfg.Session.MinWithdrawal, log)
	evaluator := risk.NewEvaluator(cfg.Risk.MinPlausibleAnswerSecs,
		cfg.Risk.MaxPlausibleAnswerSecs, cfg.Session.GlobalViolationCeiling)
	sessionEngine := engine.New(postgresDB, sessionRepo, outboxRepo, catalog,
		walletSvc, evaluator, &cfg.Session, log)

	// Initialize gateway services
	accountService := service.NewAccountService(accountRepo)
	walletService := service.NewWalletService(walletSvc, ledgerRepo)

	// Start the outbox poller next to the engine that writes the rows
	eventPublisher := outbox_poller.NewKafkaEventPublisher(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)
	go poller.Start(appCtx)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, accountService, walletService, sessionEngine)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context, stopping the outbox poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
