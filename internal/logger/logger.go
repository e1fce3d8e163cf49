package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

// New wraps a slog handler; exposed so tests can point the package
// logger at a buffer.
func New(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func NewJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}

// Set replaces the package logger. Tests use it to capture output.
func Set(logger *slog.Logger) {
	log = logger
}

func Init() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	log = New(NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func l() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

func Info(msg string, args ...interface{}) {
	l().Info(msg, args...)
}

func Infof(format string, v ...interface{}) {
	l().Info(fmt.Sprintf(format, v...))
}

func Error(msg string, args ...interface{}) {
	l().Error(msg, args...)
}

func Errorf(format string, v ...interface{}) {
	l().Error(fmt.Sprintf(format, v...))
}

func Debug(msg string, args ...interface{}) {
	l().Debug(msg, args...)
}

func Debugf(format string, v ...interface{}) {
	l().Debug(fmt.Sprintf(format, v...))
}

func Fatal(msg string, args ...interface{}) {
	l().Error(msg, args...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	l().Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func WithError(err error) *slog.Logger {
	return l().With("error", err)
}

func WithFields(fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l().With(args...)
}
