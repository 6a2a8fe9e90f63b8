package logger

import (
	"io"
	"log/slog"
	"os"

	"manuals-backend/internal/config"
)

var Logger *slog.Logger

// InitLogger initializes structured JSON logging. Debug mode lowers the
// level and adds source locations.
func InitLogger(cfg *config.Config) {
	Logger = New(os.Stdout, cfg.GinMode)
	Logger.Info("Structured logging initialized", "mode", cfg.GinMode)
}

// New builds a JSON logger writing to w.
func New(w io.Writer, mode string) *slog.Logger {
	level := slog.LevelInfo
	if mode == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: mode == "debug",
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// With returns a child logger carrying args, or a discard logger before init.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return Logger.With(args...)
}

func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
