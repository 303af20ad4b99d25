// Package logging configures the shared file logger. The interactive
// UI owns stdout, so all diagnostics go to a rotating JSON log under
// the state directory. Swallowed failures (malformed protocol blocks,
// cache faults) are recorded here and nowhere else.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a file-only logger writing to logPath.
func New(logPath string) *zap.Logger {
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zap.InfoLevel,
	)

	return zap.New(core, zap.AddCaller())
}

// Nop returns a logger that discards everything. Used by tests and as
// the default when no logger is injected.
func Nop() *zap.Logger {
	return zap.NewNop()
}
