package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/config"
	"github.com/prudhivi99/oil-wholesale/internal/discovery"
	"github.com/prudhivi99/oil-wholesale/internal/middleware"
)

func baseRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	return router
}

// NewRouter returns the engine of a backend service, which gzips responses.
func NewRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := baseRouter(cfg, logger)
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	return router
}

// NewEdgeRouter returns the engine of the gateway. Proxied responses keep
// the encoding chosen by the backend.
func NewEdgeRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := baseRouter(cfg, logger)
	router.Use(middleware.CORS())
	return router
}

// ConnectConsul returns nil when discovery is disabled or unreachable.
func ConnectConsul(cfg config.ConsulConfig, logger *zap.Logger) *discovery.ConsulClient {
	if !cfg.Enabled {
		return nil
	}
	consul, err := discovery.NewConsulClient(cfg, logger)
	if err != nil {
		logger.Warn("Failed to connect to Consul, using static service URLs", zap.Error(err))
		return nil
	}
	return consul
}

// Run serves handler until ctx is cancelled, then drains in-flight requests.
// When consul is non-nil the service is registered for the lifetime of the
// server.
func Run(ctx context.Context, cfg *config.Config, name string, handler http.Handler, consul *discovery.ConsulClient, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serviceID := fmt.Sprintf("%s-%d", name, cfg.Server.Port)
	if host, err := os.Hostname(); err == nil {
		serviceID = fmt.Sprintf("%s-%s", name, host)
	}
	if consul != nil {
		err := consul.Register(discovery.ServiceConfig{
			Name: name,
			ID:   serviceID,
			Port: cfg.Server.Port,
			Tags: []string{"api"},
		})
		if err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
			consul = nil
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("service", name), zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	if consul != nil {
		if err := consul.Deregister(serviceID); err != nil {
			logger.Warn("Failed to deregister service", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
