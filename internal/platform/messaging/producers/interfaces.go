package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes session events to the primary stream.
// Implemented by SessionEventProducer.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages that cannot be decoded so they never
// poison a consumer group. Implemented by DLQProducer.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers use; tests swap in
// a mock
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
