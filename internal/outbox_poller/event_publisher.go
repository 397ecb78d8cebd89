package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quizforge-assessment-engine/internal/domain/outbox"
	"github.com/quizforge-assessment-engine/internal/domain/shared"
	"github.com/quizforge-assessment-engine/internal/platform/messaging/producers"
)

// EventPublisher pushes one outbox message onto the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher implements EventPublisher on top of the session event
// topic. The payload is forwarded verbatim: the engine already serialized the
// event when it wrote the outbox row, and re-encoding here could silently
// drift from what was committed.
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes a message and marks it processed. A payload that no
// longer parses is a bug in the writer, not a transient fault, so it is
// parked as FAILED_TO_PUBLISH instead of being retried forever.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal session event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Publishing outbox message to session event topic",
		"outbox_id", message.ID, "event_id", message.EventID, "kind", event.Kind,
	)

	// Key by session id so all events of a session share a partition
	if err := p.producer.Publish(ctx, event.SessionID.String(), json.RawMessage(message.Payload)); err != nil {
		logger.Error("Failed to publish outbox message to Kafka", "outbox_id", message.ID, "event_id", message.EventID, "error", err)
		return fmt.Errorf("publish outbox message %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		// The consumer side is idempotent, so a re-publish after this
		// failure is harmless.
		return fmt.Errorf("publish for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.EventID, message.ID, err)
	}

	logger.Info("Outbox message published and marked as PROCESSED", "outbox_id", message.ID, "event_id", message.EventID, "kind", event.Kind)
	return nil
}
