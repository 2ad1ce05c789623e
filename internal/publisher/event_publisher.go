package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/messaging"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const publishTimeout = 5 * time.Second

// EventPublisher puts workflow events on the message bus. Delivery is
// best effort: failures are logged and never reach the caller.
type EventPublisher struct {
	broker messaging.Broker
	logger *zap.Logger
	now    func() time.Time
}

func NewEventPublisher(broker messaging.Broker, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		broker: broker,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OrderEvent publishes an order lifecycle event under its type.
func (p *EventPublisher) OrderEvent(ctx context.Context, event models.OrderEvent) {
	p.publish(ctx, event.Type, event,
		zap.String("order_number", event.OrderNumber),
		zap.Int("recipients", len(event.Recipients)),
	)
}

// LowStock publishes an inventory.low_stock event.
func (p *EventPublisher) LowStock(ctx context.Context, event models.LowStockEvent) {
	p.publish(ctx, models.EventLowStock, event, zap.String("product_id", event.ProductID))
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, payload interface{}, fields ...zap.Field) {
	fields = append(fields, zap.String("event_type", eventType))

	body, err := encode(eventType, payload, p.now())
	if err != nil {
		p.logger.Error("Failed to encode event", append(fields, zap.Error(err))...)
		return
	}

	// the request context may already be done once the handler returns
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.broker.Publish(ctx, eventType, body); err != nil {
		p.logger.Error("Failed to publish event", append(fields, zap.Error(err))...)
		return
	}
	p.logger.Info("Event published", fields...)
}

func encode(eventType string, payload interface{}, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	env := models.Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload:   raw,
		Timestamp: at,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}
