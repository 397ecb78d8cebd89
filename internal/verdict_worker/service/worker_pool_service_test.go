package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBaseVerdictService mocks the VerdictService interface
type MockBaseVerdictService struct {
	mock.Mock
}

func (m *MockBaseVerdictService) ProcessSessionEvent(ctx context.Context, event *shared.SessionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolVerdictService_ProcessSessionEvent(t *testing.T) {
	logger := slog.Default()

	event := shared.NewSessionEvent(
		shared.EventSessionFinalized,
		uuid.New(),
		uuid.New(),
		uuid.New(),
		shared.SessionStateCompleted,
		"corr1",
	)

	tests := []struct {
		name          string
		setupMocks    func(m *MockBaseVerdictService)
		expectedError error
	}{
		{
			name: "successful processing",
			setupMocks: func(m *MockBaseVerdictService) {
				m.On("ProcessSessionEvent", mock.Anything, mock.MatchedBy(func(e *shared.SessionEvent) bool {
					return e.EventID == event.EventID
				})).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "processing error",
			setupMocks: func(m *MockBaseVerdictService) {
				m.On("ProcessSessionEvent", mock.Anything, mock.Anything).Return(errors.New("processing error")).Once()
			},
			expectedError: errors.New("processing error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseService := &MockBaseVerdictService{}

			workerPoolService, err := NewWorkerPoolVerdictService(
				mockBaseService,
				WorkerPoolConfig{
					Size: 2,
				},
				logger,
			)
			assert.NoError(t, err)
			defer workerPoolService.Shutdown()

			tt.setupMocks(mockBaseService)
			ctx := context.Background()

			err = workerPoolService.ProcessSessionEvent(ctx, event)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolVerdictService_Concurrency(t *testing.T) {
	mockBaseService := &MockBaseVerdictService{}
	logger := slog.Default()

	workerPoolService, err := NewWorkerPoolVerdictService(
		mockBaseService,
		WorkerPoolConfig{
			Size: 5,
		},
		logger,
	)
	assert.NoError(t, err)
	defer workerPoolService.Shutdown()

	var mu sync.Mutex
	counter := 0

	mockBaseService.On("ProcessSessionEvent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// Simulate some work
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		counter++
		mu.Unlock()
	}).Return(nil)

	numEvents := 10
	var wg sync.WaitGroup
	wg.Add(numEvents)

	for i := 0; i < numEvents; i++ {
		go func() {
			defer wg.Done()

			event := shared.NewSessionEvent(
				shared.EventSessionFinalized,
				uuid.New(),
				uuid.New(),
				uuid.New(),
				shared.SessionStateCompleted,
				uuid.NewString(),
			)

			ctx := context.Background()
			err := workerPoolService.ProcessSessionEvent(ctx, event)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, numEvents, counter)

	assert.True(t, workerPoolService.Running() > 0)
	assert.Equal(t, 5, workerPoolService.Capacity())
}
