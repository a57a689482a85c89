package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/internal/config"
	"github.com/mickamy/ormtour/internal/logger"
)

// CommandHandler carries the settings resolved for one invocation.
type CommandHandler struct {
	settings *config.Settings
}

// NewRootCommand returns the ormtour command with every sub-command
// registered.
func NewRootCommand(version string) *cobra.Command {
	handler := &CommandHandler{settings: config.Default()}

	rootCmd := &cobra.Command{
		Use:   "ormtour",
		Short: "A guided tour of engines, connections, tables and sessions",
		Long: `ormtour walks through a relational mapping API one step at a time:
textual SQL, bound parameters, transactions, row access, table metadata,
and mapped objects persisted through a session.

The database defaults to an in-memory SQLite database. Set --url or
` + config.EnvURL + ` to run against PostgreSQL or MySQL, and --echo or
` + config.EnvEcho + `=true to log every statement.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: handler.loadSettings,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("url", config.DefaultURL, "database URL")
	flags.Bool("echo", false, "log every statement")
	flags.String("log-level", config.LogLevelInfo, "log level: debug, info, warning, error or critical")
	flags.String("log-type", config.LogTypeConsole, "log output: console or file")
	flags.String("log-file", "", "log file path when --log-type=file")

	InitTourCommands(rootCmd, handler)
	InitSchemaCommands(rootCmd)
	rootCmd.AddCommand(newVersionCmd(version))
	return rootCmd
}

// loadSettings resolves defaults, then environment, then flags set on the
// command line.
func (h *CommandHandler) loadSettings(cmd *cobra.Command, _ []string) error {
	s := config.Default()
	if err := s.FromEnv(); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		s.URL, _ = flags.GetString("url")
	}
	if flags.Changed("echo") {
		s.Echo, _ = flags.GetBool("echo")
	}
	if flags.Changed("log-level") {
		s.Logger.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-type") {
		s.Logger.LogType, _ = flags.GetString("log-type")
	}
	if flags.Changed("log-file") {
		s.Logger.FilePath, _ = flags.GetString("log-file")
	}
	if s.Logger.LogType == config.LogTypeFile {
		s.Logger.MaxSize = 10
		s.Logger.MaxBackups = 3
		s.Logger.MaxAge = 28
	}

	if err := s.Validate(); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	h.settings = s
	return nil
}

// engine creates the engine named by the settings. Echoed statements go
// to the configured logger; a console logger writes to stderr.
func (h *CommandHandler) engine(stderr io.Writer) (*core.Engine, error) {
	var opts []core.Option
	if h.settings.Echo {
		l, err := logger.New(&h.settings.Logger, stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to setup logger: %w", err)
		}
		opts = append(opts, core.WithEcho(core.NewSlogLogger(l)))
	}
	return core.Create(h.settings.URL, opts...) //nolint:wrapcheck // already descriptive
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ormtour", version)
		},
	}
}
