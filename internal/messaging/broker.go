package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/config"
)

// Broker publishes event bodies under a routing key.
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// RoutingKeys lists every event the notification service subscribes to.
var RoutingKeys = []string{"order.*", "inventory.low_stock", "account.status"}

// NewBroker connects the publisher selected by broker.kind.
func NewBroker(cfg *config.Config, logger *zap.Logger) (Broker, error) {
	switch cfg.Broker.Kind {
	case "rabbitmq", "":
		return NewRabbitMQ(cfg.RabbitMQ, logger)
	case "kafka":
		return NewKafka(cfg.Kafka, logger), nil
	}
	return nil, fmt.Errorf("unknown broker kind %q", cfg.Broker.Kind)
}
