package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prudhivi99/oil-wholesale/internal/config"
)

// New builds the service logger. Development environments get a colored
// console encoder at debug level.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if cfg.Log.Encoding != "" {
			zc.Encoding = cfg.Log.Encoding
		}
		if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			zc.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	l, err := zc.Build(zap.Fields(zap.String("service", cfg.Tracing.ServiceName)))
	if err != nil {
		return nil, err
	}
	return l, nil
}
