package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scrollkit/cardfeed/pkg/config"
)

// Logger is the application logger
var Logger *zap.Logger

// InitLogger initializes the logger with the given configuration
func InitLogger(cfg *config.LoggingConfig) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.Format == "text" {
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(level)
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

		logger, err := zapConfig.Build(zap.AddCaller())
		if err != nil {
			return err
		}
		Logger = logger
		return nil
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	if cfg.FlatJSON {
		encoderConfig := zapConfig.EncoderConfig
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

		Logger = zap.New(
			zapcore.NewCore(NewFlatEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		return nil
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	if Logger == nil {
		Logger, _ = zap.NewProduction()
	}
	return Logger
}

// WithComponent adds component name to logger
func WithComponent(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}

// WithUser adds the acting user to logger; anonymous callers log as "anonymous"
func WithUser(logger *zap.Logger, userID string) *zap.Logger {
	if userID == "" {
		userID = "anonymous"
	}
	return logger.With(zap.String("user_id", userID))
}
