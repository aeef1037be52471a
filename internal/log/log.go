// Package log provides structured logging for seascape.
// It wraps zap with defaults suited to a small service.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *zap.SugaredLogger
	// helper skips one frame so the package functions report their caller.
	helper *zap.SugaredLogger
	once   sync.Once
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error".
// A non-empty file sends output to a rotated log file instead of stdout.
func Init(level, file string) {
	once.Do(func() {
		use(New(level, file))
	})
}

func use(l *zap.SugaredLogger) {
	logger = l
	helper = l.WithOptions(zap.AddCallerSkip(1))
}

// New builds a standalone logger; most callers want Init and the package helpers.
func New(level, file string) *zap.SugaredLogger {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if os.Getenv("GO_ENV") == "production" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	out := zapcore.AddSync(os.Stdout)
	if file != "" {
		out = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	core := zapcore.NewCore(encoder, out, lvl)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// L returns the global logger instance.
func L() *zap.SugaredLogger {
	Init("info", "")
	return logger
}

func h() *zap.SugaredLogger {
	Init("info", "")
	return helper
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	h().Debugw(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	h().Infow(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	h().Warnw(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	h().Errorw(msg, args...)
}

// Fatal logs at fatal level and exits.
func Fatal(msg string, args ...any) {
	h().Fatalw(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *zap.SugaredLogger {
	return L().With(args...)
}

// Sync flushes buffered output.
func Sync() {
	_ = L().Sync()
}
