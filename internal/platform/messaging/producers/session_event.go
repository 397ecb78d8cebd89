package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quizforge-assessment-engine/internal/config"
	"github.com/segmentio/kafka-go"
)

// SessionEventProducer publishes session events to the session event topic.
// It sits behind the outbox poller: a write is only acknowledged after the
// broker accepts it, so the poller can safely mark the outbox row processed.
type SessionEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewSessionEventProducer creates the producer and ensures the topic exists
func NewSessionEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SessionEventProducer, error) {
	if cfg.SessionEventTopic == "" {
		return nil, fmt.Errorf("kafka session event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for session event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.SessionEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session event topic %s exists: %w", cfg.SessionEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SessionEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false, // The outbox poller needs the broker's ack before marking rows processed
		WriteTimeout: cfg.MaxWait,
	}

	return &SessionEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SessionEventTopic,
	}, nil
}

// Publish writes one message keyed by session id so every event for a
// session lands on the same partition, preserving per-session ordering.
func (p *SessionEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for session event producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish session event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via session event producer: %w", p.topic, err)
	}

	p.logger.Debug("Published session event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *SessionEventProducer) Close() error {
	p.logger.Info("Closing session event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
