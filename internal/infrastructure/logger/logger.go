// Package logger holds the process-wide zap logger.
//
// The global Logger is a no-op until Initialize is called, so packages can
// log unconditionally. Components that need their own logger take a
// *zap.SugaredLogger option and default to Named(component) of the global.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// JSONOutput tracks whether JSON output is enabled
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Standard field names for structured logging
const (
	FieldEntityType = "entity_type"
	FieldAttribute  = "attribute"
	FieldOperation  = "operation"
	FieldCount      = "count"
	FieldBatchSize  = "batch_size"
	FieldDurationMS = "duration_ms"
	FieldSQL        = "sql"
	FieldError      = "error"
	FieldChannel    = "channel"
)

// ParseLevel parses a level name such as "debug" or "WARN"; unknown names
// map to info.
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Initialize sets up the global logger at the given level, writing JSON
// when jsonOutput is set and console output otherwise
func Initialize(level string, jsonOutput bool) error {
	JSONOutput = jsonOutput

	zapLogger, err := newLogger(ParseLevel(level), jsonOutput)
	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

func newLogger(level zapcore.Level, jsonOutput bool) (*zap.Logger, error) {
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stderr"}
		return config.Build()
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		),
	), nil
}

// Named returns a child of the global logger for a component
func Named(component string) *zap.SugaredLogger {
	return Logger.Named(component)
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
