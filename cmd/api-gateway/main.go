package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prudhivi99/oil-wholesale/internal/config"
	"github.com/prudhivi99/oil-wholesale/internal/gateway"
	"github.com/prudhivi99/oil-wholesale/internal/logger"
	"github.com/prudhivi99/oil-wholesale/internal/server"
)

const serviceName = "api-gateway"

var routes = []gateway.Route{
	{Prefix: "/products", Service: "product-service"},
	{Prefix: "/orders", Service: "order-service"},
	{Prefix: "/inventory", Service: "order-service"},
	{Prefix: "/notifications", Service: "notification-service"},
}

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

	var resolver gateway.Resolver
	if consul := server.ConnectConsul(cfg.Consul, zapLogger); consul != nil {
		resolver = consul
	}

	gw := gateway.New(resolver, map[string]string{
		"product-service":      cfg.Services.ProductURL,
		"order-service":        cfg.Services.OrderURL,
		"notification-service": cfg.Services.NotificationURL,
	}, zapLogger)
	if resolver != nil {
		go gw.Watch(ctx, 10*time.Second)
	}

	router := server.NewEdgeRouter(cfg, zapLogger)
	gw.RegisterRoutes(router, routes)

	return server.Run(ctx, cfg, serviceName, router, nil, zapLogger)
}
