// Package logger builds the zap loggers used by the server, the worker and the CLI,
// and sanitizes values before they reach a log entry.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service names attached to server-side log entries
const (
	ServiceAPI    = "todoms-api"
	ServiceWorker = "todoms-worker"
)

// NewServiceLogger creates the JSON logger for a long-running service.
// Every entry carries the service name; debug mode lowers the level and disables sampling.
func NewServiceLogger(service string, debugMode bool) (*zap.Logger, error) {
	return serviceConfig(debugMode).Build(zap.Fields(zap.String("service", service)))
}

func serviceConfig(debugMode bool) zap.Config {
	config := zap.NewProductionConfig()
	config.Encoding = "json"
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debugMode {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.Sampling = nil
	}
	return config
}

// NewCLILogger returns a console logger on stderr in debug mode and a no-op logger otherwise,
// so diagnostics never mix with command output.
func NewCLILogger(debugMode bool) (*zap.Logger, error) {
	if !debugMode {
		return zap.NewNop(), nil
	}
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	return config.Build()
}

// Sync flushes buffered entries. It tolerates a nil logger.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}
