// Package logger holds the process-wide zap logger. Console output is JSON
// so headless runs can be piped into other tools; the optional file sink
// rotates through lumberjack.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pthm-cable/trail/config"
)

// Log is the global logger. It discards everything until FromConfig runs.
var Log = zap.NewNop()

// FromConfig replaces Log using the logging section of the config. An empty
// File disables the file sink; consoleOutput false silences stdout, which
// tests rely on.
func FromConfig(cfg config.LoggingConfig, consoleOutput bool) error {
	lvl := parseLevel(cfg.Level)

	var cores []zapcore.Core
	if consoleOutput {
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(os.Stdout), lvl))
	}
	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.AddSync(rotating(cfg)), lvl))
	}

	if len(cores) == 0 {
		Log = zap.NewNop()
		return nil
	}
	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}

func rotating(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
}

// fileEncoder writes one space-separated line per entry with upper-case levels.
func fileEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeDuration:   zapcore.MillisDurationEncoder,
		ConsoleSeparator: " ",
	})
}

// parseLevel maps a config level name to zap; unknown names mean info.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { Log.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { Log.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }
