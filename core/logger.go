package core

import (
	"context"
	"log/slog"
)

// Logger is the interface for statement echo logging.
type Logger interface {
	Log(ctx context.Context, query string, args ...any)
}

// LoggerFunc adapts a plain function to Logger.
type LoggerFunc func(ctx context.Context, query string, args ...any)

func (f LoggerFunc) Log(ctx context.Context, query string, args ...any) { f(ctx, query, args...) }

// SlogLogger echoes statements to a *slog.Logger at info level.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger returns a Logger writing to l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Log(ctx context.Context, query string, args ...any) {
	if len(args) == 0 {
		s.l.InfoContext(ctx, query)
		return
	}
	s.l.InfoContext(ctx, query, slog.Any("params", args))
}
