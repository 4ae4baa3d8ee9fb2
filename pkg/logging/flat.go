package logging

import (
	"encoding/json"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var flatPool = buffer.NewPool()

// FlatEncoder writes one JSON object per entry with every field at the top
// level, including fields attached through logger.With.
type FlatEncoder struct {
	*zapcore.MapObjectEncoder
	config zapcore.EncoderConfig
}

// NewFlatEncoder creates a flat JSON encoder
func NewFlatEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return &FlatEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		config:           config,
	}
}

// Clone creates a copy of the encoder
func (e *FlatEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &FlatEncoder{MapObjectEncoder: clone, config: e.config}
}

// EncodeEntry encodes a log entry
func (e *FlatEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	obj := make(map[string]interface{}, len(e.Fields)+len(fields)+6)
	for k, v := range e.Fields {
		obj[k] = v
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		obj[k] = v
	}

	obj[keyOr(e.config.TimeKey, "timestamp")] = entry.Time.Format(time.RFC3339Nano)
	obj[keyOr(e.config.LevelKey, "level")] = entry.Level.String()
	obj[keyOr(e.config.MessageKey, "message")] = entry.Message
	if entry.LoggerName != "" {
		obj["logger"] = entry.LoggerName
	}
	if entry.Caller.Defined {
		obj["caller"] = entry.Caller.TrimmedPath()
	}
	if entry.Stack != "" {
		obj["stack"] = entry.Stack
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	buf := flatPool.Get()
	buf.AppendBytes(data)
	buf.AppendByte('\n')
	return buf, nil
}

func keyOr(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}
