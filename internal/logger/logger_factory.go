package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"

	"github.com/mickamy/ormtour/internal/config"
)

var (
	loggerInstance *slog.Logger
	loggerErr      error
	loggerOnce     sync.Once
)

// ErrNotInitialized is returned by GetLogger before InitLogger succeeds.
var ErrNotInitialized = errors.New("logger not initialized: call InitLogger first")

// InitLogger initializes the singleton logger. Later calls are no-ops and
// return the first call's error.
func InitLogger(settings *config.LoggerSettings) error {
	loggerOnce.Do(func() {
		loggerInstance, loggerErr = newLogger(settings, os.Stderr)
	})
	return loggerErr
}

// GetLogger returns the initialized logger instance.
func GetLogger() (*slog.Logger, error) {
	if loggerInstance == nil {
		return nil, ErrNotInitialized
	}
	return loggerInstance, nil
}

// New builds a logger without touching the singleton. Console output goes
// to w.
func New(settings *config.LoggerSettings, w io.Writer) (*slog.Logger, error) {
	return newLogger(settings, w)
}

func newLogger(c *config.LoggerSettings, w io.Writer) (*slog.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	switch c.LogType {
	case config.LogTypeConsole:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case config.LogTypeFile:
		out := &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAge,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log type: %s", c.LogType)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError, config.LogLevelCritical:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
