package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/cache"
	"github.com/prudhivi99/oil-wholesale/internal/client"
	"github.com/prudhivi99/oil-wholesale/internal/config"
	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/handlers"
	"github.com/prudhivi99/oil-wholesale/internal/logger"
	"github.com/prudhivi99/oil-wholesale/internal/messaging"
	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/observability"
	"github.com/prudhivi99/oil-wholesale/internal/publisher"
	"github.com/prudhivi99/oil-wholesale/internal/server"
	"github.com/prudhivi99/oil-wholesale/internal/service"
)

const serviceName = "order-service"

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

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var (
		store    db.Store
		products service.ProductLookup
		admins   service.AdminDirectory
	)
	switch cfg.Database.Driver {
	case "memory":
		zapLogger.Warn("Using in-memory store, data is lost on restart")
		mem := db.NewMemoryStore()
		store, products, admins = mem, mem, mem
	default:
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
		store = db.NewPostgresStore(database, cfg.Database.TxRetries, zapLogger)
		admins = db.NewUserDirectory(database)
		products = catalog(ctx, cfg, database, zapLogger)
	}

	consul := server.ConnectConsul(cfg.Consul, zapLogger)

	if cfg.Services.ProductLookup == "http" {
		var resolver client.Resolver
		if consul != nil {
			resolver = consul
		}
		products = client.NewProductClient(cfg.Services.ProductURL, resolver, func() (string, error) {
			return middleware.SignServiceToken(cfg.JWT.Secret, serviceName, time.Minute)
		}, zapLogger)
	}

	var notifier service.Notifier = service.NopNotifier{}
	broker, err := messaging.NewBroker(cfg, zapLogger)
	if err != nil {
		zapLogger.Warn("Event broker unavailable, notifications disabled", zap.Error(err))
	} else {
		defer broker.Close()
		notifier = publisher.NewEventPublisher(broker, zapLogger)
	}

	orders := service.NewOrderService(store, products, admins, notifier, zapLogger)
	inventory := service.NewInventoryService(store, products, admins, notifier, cfg.Inventory.LowStockThreshold, zapLogger)

	orderHandler := handlers.NewOrderHandler(orders)
	inventoryHandler := handlers.NewInventoryHandler(inventory)

	router := server.NewRouter(cfg, zapLogger)
	router.GET("/health", orderHandler.HealthCheck)
	api := router.Group("", middleware.JWTAuth(cfg.JWT.Secret))
	orderHandler.RegisterRoutes(api)
	inventoryHandler.RegisterRoutes(api)

	return server.Run(ctx, cfg, serviceName, router, consul, zapLogger)
}

// catalog reads products from Postgres, through Redis when it is reachable.
func catalog(ctx context.Context, cfg *config.Config, database *db.PostgresDB, logger *zap.Logger) service.ProductLookup {
	repo := db.NewProductRepository(database)
	if !cfg.Redis.Enabled {
		return repo
	}
	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis unavailable, product lookups go to the database", zap.Error(err))
		return repo
	}
	return db.NewCachedProductRepository(repo, redisCache, logger)
}
