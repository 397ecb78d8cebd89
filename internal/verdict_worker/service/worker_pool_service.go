package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
)

// WorkerPoolVerdictService fans session events out to a bounded goroutine
// pool while keeping the per-message error contract of VerdictService: the
// caller blocks until its event has been processed so the consumer only
// commits offsets for finished work.
type WorkerPoolVerdictService struct {
	baseService VerdictService
	pool        *ants.Pool
	logger      *slog.Logger

	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolVerdictService(
	baseService VerdictService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolVerdictService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolVerdictService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessSessionEvent submits an event to the pool and waits for its result.
func (s *WorkerPoolVerdictService) ProcessSessionEvent(ctx context.Context, event *shared.SessionEvent) error {
	logger := s.logger.With("session_id", event.SessionID.String(), "event_id", event.EventID.String())
	logger.Debug("Submitting session event to worker pool")

	resultChan := make(chan error, 1)

	eventID := event.EventID.String()
	s.mu.Lock()
	s.results[eventID] = resultChan
	s.mu.Unlock()

	// Copy the event so the worker never shares memory with the caller
	eventCopy := *event

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessSessionEvent(ctx, &eventCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, eventID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, eventID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit session event to worker pool", "error", err)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolVerdictService) Shutdown() {
	s.logger.Info("Shutting down verdict worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolVerdictService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolVerdictService) Capacity() int {
	return s.pool.Cap()
}
