package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/cache"
	"github.com/prudhivi99/oil-wholesale/internal/config"
	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/handlers"
	"github.com/prudhivi99/oil-wholesale/internal/logger"
	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/observability"
	"github.com/prudhivi99/oil-wholesale/internal/server"
)

const serviceName = "product-service"

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

	var products db.ProductStore = db.NewProductRepository(database)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable, serving the catalog uncached", zap.Error(err))
		} else {
			defer redisCache.Close()
			products = db.NewCachedProductRepository(products, redisCache, zapLogger)
		}
	}

	productHandler := handlers.NewProductHandler(products, cfg.Inventory.LowStockThreshold, zapLogger)

	router := server.NewRouter(cfg, zapLogger)
	router.GET("/health", productHandler.HealthCheck)
	productHandler.RegisterRoutes(router.Group("", middleware.JWTAuth(cfg.JWT.Secret)))

	consul := server.ConnectConsul(cfg.Consul, zapLogger)
	return server.Run(ctx, cfg, serviceName, router, consul, zapLogger)
}
