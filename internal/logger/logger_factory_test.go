package logger_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/ormtour/internal/config"
	"github.com/mickamy/ormtour/internal/logger"
)

// The singleton tests share package state and do not run in parallel.

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name     string
		settings *config.LoggerSettings
		wantErr  bool
		logFile  bool
	}{
		{
			name:     "console logger",
			settings: &config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: config.LogTypeConsole},
		},
		{
			name: "file logger with rotation",
			settings: &config.LoggerSettings{
				LogLevel:   config.LogLevelInfo,
				LogType:    config.LogTypeFile,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
			logFile: true,
		},
		{
			name:     "invalid log level",
			settings: &config.LoggerSettings{LogLevel: "loud", LogType: config.LogTypeConsole},
			wantErr:  true,
		},
		{
			name:     "file logger missing rotation settings",
			settings: &config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: config.LogTypeFile, FilePath: "/tmp/ormtour.log"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(logger.ResetLoggerSingleton)

			if tt.logFile {
				tt.settings.FilePath = filepath.Join(t.TempDir(), "ormtour.log")
			}

			err := logger.InitLogger(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				l, getErr := logger.GetLogger()
				assert.ErrorIs(t, getErr, logger.ErrNotInitialized)
				assert.Nil(t, l)
				return
			}
			require.NoError(t, err)

			l, err := logger.GetLogger()
			require.NoError(t, err)
			require.NotNil(t, l)

			if tt.logFile {
				l.Info("SELECT 1")
				_, err := os.Stat(tt.settings.FilePath)
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitLogger_Singleton(t *testing.T) {
	t.Cleanup(logger.ResetLoggerSingleton)

	require.NoError(t, logger.InitLogger(&config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: config.LogTypeConsole}))
	require.NoError(t, logger.InitLogger(&config.LoggerSettings{LogLevel: config.LogLevelDebug, LogType: config.LogTypeConsole}))

	l1, err := logger.GetLogger()
	require.NoError(t, err)
	l2, err := logger.GetLogger()
	require.NoError(t, err)
	assert.Same(t, l1, l2)
	assert.False(t, l1.Enabled(t.Context(), slog.LevelDebug))
}

func TestGetLogger_BeforeInit(t *testing.T) {
	t.Cleanup(logger.ResetLoggerSingleton)

	l, err := logger.GetLogger()
	assert.ErrorIs(t, err, logger.ErrNotInitialized)
	assert.Nil(t, l)
}

func TestNew_ConsoleWritesToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := logger.New(&config.LoggerSettings{LogLevel: config.LogLevelWarning, LogType: config.LogTypeConsole}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("COMMIT")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "COMMIT")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{config.LogLevelDebug, slog.LevelDebug},
		{config.LogLevelInfo, slog.LevelInfo},
		{config.LogLevelWarning, slog.LevelWarn},
		{config.LogLevelError, slog.LevelError},
		{config.LogLevelCritical, slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logger.ParseLevel(tt.level))
		})
	}
}
