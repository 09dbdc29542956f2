package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. json switches console output to JSON lines,
// debug lowers the level to debug.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			NameKey: "logger",
		},
	}
	return cfg.Build()
}

// Timing logs the start of an operation at debug level and returns a func
// that logs its completion with the elapsed time.
func Timing(log *zap.Logger, operation string, fields ...zap.Field) func() {
	if !log.Core().Enabled(zapcore.DebugLevel) {
		return func() {}
	}

	start := time.Now()
	log.Debug("starting "+operation, fields...)

	return func() {
		log.Debug("completed "+operation, append(fields, zap.Duration("took", time.Since(start)))...)
	}
}
