package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/mickamy/ormtour/core"
)

// Environment variables read by FromEnv.
const (
	EnvURL  = "ORMTOUR_URL"
	EnvEcho = "ORMTOUR_ECHO"
)

// DefaultURL is the in-memory SQLite database the tour runs against.
const DefaultURL = "sqlite+pysqlite:///:memory:"

// Settings configures one ormtour invocation.
type Settings struct {
	URL    string         `mapstructure:"url" validate:"required"`
	Echo   bool           `mapstructure:"echo"`
	Logger LoggerSettings `mapstructure:"logger"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		URL:  DefaultURL,
		Echo: false,
		Logger: LoggerSettings{
			LogLevel: LogLevelInfo,
			LogType:  LogTypeConsole,
		},
	}
}

// FromEnv overrides s with ORMTOUR_URL and ORMTOUR_ECHO when they are set.
func (s *Settings) FromEnv() error {
	if v, ok := os.LookupEnv(EnvURL); ok && v != "" {
		s.URL = v
	}
	if v, ok := os.LookupEnv(EnvEcho); ok && v != "" {
		echo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvEcho, v, err)
		}
		s.Echo = echo
	}
	return nil
}

// Validate checks the settings, including that URL names a supported
// database.
func (s *Settings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for Settings: %w", err)
	}
	if err := s.Logger.Validate(); err != nil {
		return err
	}
	if _, err := core.ParseURL(s.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	return nil
}
