package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/config"
)

// EventTypeHeader carries the routing key of a Kafka message.
const EventTypeHeader = "event_type"

// Kafka publishes events to a single topic keyed by routing key.
type Kafka struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafka(cfg config.KafkaConfig, logger *zap.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	logger.Info("Kafka writer ready", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return &Kafka{writer: writer, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(routingKey),
		Value: body,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(routingKey)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	k.logger.Debug("Message published", zap.String("routing_key", routingKey))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// MessageReader is the consuming side of a Kafka topic. Offsets are
// committed explicitly once a message has been handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader joins the configured consumer group.
func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// RoutingKey returns the event type of a Kafka message.
func RoutingKey(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == EventTypeHeader {
			return string(h.Value)
		}
	}
	return string(msg.Key)
}
