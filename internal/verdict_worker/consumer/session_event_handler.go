package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/platform/messaging/producers"
	"github.com/quizforge-assessment-engine/internal/verdict_worker/service"
)

// SessionEventHandler handles incoming session event messages from Kafka
type SessionEventHandler struct {
	verdictService service.VerdictService
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

func NewSessionEventHandler(
	logger *slog.Logger,
	verdictService service.VerdictService,
	producer producers.DeadLetterPublisher,
) *SessionEventHandler {
	return &SessionEventHandler{
		verdictService: verdictService,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage processes Kafka messages. Malformed payloads go to the DLQ
// so they never poison the partition; processing failures are returned so
// the offset stays uncommitted and the event is retried.
func (h *SessionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.SessionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal session event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received session event",
		"event_id", event.EventID.String(),
		"session_id", event.SessionID.String(),
		"kind", event.Kind,
		"state", event.State,
	)

	if err := h.verdictService.ProcessSessionEvent(ctx, &event); err != nil {
		logger.Error("Failed to process session event",
			"event_id", event.EventID.String(),
			"session_id", event.SessionID.String(),
			"error", err,
		)
		return fmt.Errorf("processing session event %s failed: %w", event.EventID.String(), err)
	}

	logger.Info("Successfully processed session event", "event_id", event.EventID.String())
	return nil
}
