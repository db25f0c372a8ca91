package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(os.Stdout, cfg.LogLevel, cfg.Production())

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w: JSON for production, text otherwise.
// Terminal programs pass os.Stderr so log lines stay out of the UI.
func New(w io.Writer, level slog.Level, production bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}

// WithSession adds the game session ID to logger context
func WithSession(logger *slog.Logger, id uuid.UUID) *slog.Logger {
	return logger.With("session_id", id.String())
}
