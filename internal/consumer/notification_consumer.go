package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/messaging"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// ErrMalformed marks events that can never be processed.
var ErrMalformed = errors.New("malformed event")

// Sink stores rendered notifications.
type Sink interface {
	Create(ctx context.Context, notifications ...models.Notification) error
}

// NotificationConsumer turns bus events into per-user notifications.
type NotificationConsumer struct {
	sink   Sink
	logger *zap.Logger
	now    func() time.Time

	retryBackoff time.Duration
}

func NewNotificationConsumer(sink Sink, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{
		sink:   sink,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },

		retryBackoff: time.Second,
	}
}

// Handle renders one event body and stores the result.
func (c *NotificationConsumer) Handle(ctx context.Context, body []byte) error {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	notifications, err := Render(env)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		c.logger.Debug("Event has no recipients", zap.String("event_type", env.EventType))
		return nil
	}

	now := c.now()
	for i := range notifications {
		notifications[i].ID = uuid.New().String()
		notifications[i].CreatedAt = now
	}
	if err := c.sink.Create(ctx, notifications...); err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}

	c.logger.Info("Notifications created",
		zap.String("event_type", env.EventType),
		zap.String("event_id", env.EventID),
		zap.Int("count", len(notifications)),
	)
	return nil
}

// ProcessDeliveries handles RabbitMQ deliveries until the channel closes.
// Malformed events are dropped, anything else is requeued.
func (c *NotificationConsumer) ProcessDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for msg := range deliveries {
		err := c.Handle(ctx, msg.Body)
		switch {
		case err == nil:
			msg.Ack(false)
		case errors.Is(err, ErrMalformed):
			c.logger.Error("Dropping event", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
			msg.Nack(false, false)
		default:
			c.logger.Error("Failed to process event, requeued", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
			msg.Nack(false, true)
		}
	}
}

// Start reads Kafka messages until ctx is cancelled. An offset is committed
// only after its message was stored or found malformed. Other failures are
// retried in place, so a message is never skipped while the sink is down.
func (c *NotificationConsumer) Start(ctx context.Context, reader messaging.MessageReader) {
	c.logger.Info("Starting notification Kafka listener")
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping notification Kafka listener")
				return
			}
			c.logger.Error("Failed to fetch kafka message", zap.Error(err))
			if !c.wait(ctx) {
				return
			}
			continue
		}

		if !c.handleKafka(ctx, msg) {
			c.logger.Info("Stopping notification Kafka listener")
			return
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to commit kafka offset",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleKafka returns false when ctx ended before msg could be handled.
func (c *NotificationConsumer) handleKafka(ctx context.Context, msg kafka.Message) bool {
	for {
		err := c.Handle(ctx, msg.Value)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrMalformed) {
			c.logger.Error("Dropping event",
				zap.String("routing_key", messaging.RoutingKey(msg)),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return true
		}
		c.logger.Error("Failed to process event, retrying",
			zap.String("routing_key", messaging.RoutingKey(msg)),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		if !c.wait(ctx) {
			return false
		}
	}
}

func (c *NotificationConsumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryBackoff):
		return true
	}
}
