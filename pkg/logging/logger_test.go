package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scrollkit/cardfeed/pkg/config"
)

func TestInitLogger(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	for _, format := range []string{"json", "text"} {
		cfg := &config.LoggingConfig{Level: "DEBUG", Format: format, FlatJSON: true}
		if err := InitLogger(cfg); err != nil {
			t.Fatalf("InitLogger(%s) failed: %v", format, err)
		}
		if Logger == nil {
			t.Fatalf("InitLogger(%s) left Logger nil", format)
		}
	}
}

func TestFlatEncoder(t *testing.T) {
	var buf bytes.Buffer

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		MessageKey:    "message",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(NewFlatEncoder(encoderConfig), zapcore.AddSync(&buf), zapcore.InfoLevel)
	logger := zap.New(core).With(zap.String("component", "cache"))

	logger.Warn("provider failed",
		zap.String("provider", "nasa"),
		zap.Int("limit", 3),
		zap.Error(errors.New("timeout")),
	)

	var logObj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logObj); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	expected := map[string]interface{}{
		"message":   "provider failed",
		"level":     "warn",
		"component": "cache",
		"provider":  "nasa",
		"limit":     float64(3),
		"error":     "timeout",
	}
	for key, want := range expected {
		if logObj[key] != want {
			t.Errorf("field %q = %v, want %v", key, logObj[key], want)
		}
	}
	if _, ok := logObj["timestamp"]; !ok {
		t.Error("Expected 'timestamp' field in log output")
	}
}
