package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/config"
	"github.com/prudhivi99/oil-wholesale/internal/consumer"
	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/handlers"
	"github.com/prudhivi99/oil-wholesale/internal/logger"
	"github.com/prudhivi99/oil-wholesale/internal/messaging"
	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/server"
)

const serviceName = "notification-service"

func main() {
	if err := run(); err != nil {
		log.Fatalf("%s failed: %v", serviceName, err)
	}
}

func run() error {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return err
	}
	zapLogger, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewPostgresDB(ctx, cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer database.Close()
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	notifications := db.NewNotificationRepository(database)
	eventConsumer := consumer.NewNotificationConsumer(notifications, zapLogger)

	stopConsumer, err := startEventConsumer(ctx, cfg, eventConsumer, zapLogger)
	if err != nil {
		return err
	}
	defer stopConsumer()

	notificationHandler := handlers.NewNotificationHandler(notifications, zapLogger)

	router := server.NewRouter(cfg, zapLogger)
	router.GET("/health", notificationHandler.HealthCheck)
	notificationHandler.RegisterRoutes(router.Group("", middleware.JWTAuth(cfg.JWT.Secret)))

	consul := server.ConnectConsul(cfg.Consul, zapLogger)
	return server.Run(ctx, cfg, serviceName, router, consul, zapLogger)
}

// startEventConsumer subscribes to every event the service renders and
// returns a function closing the subscription.
func startEventConsumer(ctx context.Context, cfg *config.Config, c *consumer.NotificationConsumer, logger *zap.Logger) (func(), error) {
	switch cfg.Broker.Kind {
	case "kafka":
		reader := messaging.NewKafkaReader(cfg.Kafka)
		go c.Start(ctx, reader)
		return func() { reader.Close() }, nil

	case "rabbitmq", "":
		mq, err := messaging.NewRabbitMQ(cfg.RabbitMQ, logger)
		if err != nil {
			return nil, err
		}
		if err := mq.DeclareQueue(cfg.RabbitMQ.Queue, messaging.RoutingKeys...); err != nil {
			mq.Close()
			return nil, err
		}
		deliveries, err := mq.Consume(cfg.RabbitMQ.Queue)
		if err != nil {
			mq.Close()
			return nil, err
		}
		go c.ProcessDeliveries(ctx, deliveries)
		return func() { mq.Close() }, nil
	}
	return nil, fmt.Errorf("unknown broker kind %q", cfg.Broker.Kind)
}
