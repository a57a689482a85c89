package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mickamy/ormtour/internal/tour"
)

// RunTourCmd runs the named steps, or the whole walkthrough.
func (h *CommandHandler) RunTourCmd(cmd *cobra.Command, args []string) (err error) {
	engine, err := h.engine(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, engine.Dispose())
	}()

	env := tour.NewEnv(engine, cmd.OutOrStdout())
	return tour.Run(cmd.Context(), env, args...) //nolint:wrapcheck // already names the step
}

// ListStepsCmd prints every step with what it requires.
func (h *CommandHandler) ListStepsCmd(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, s := range tour.Steps() {
		requires := "-"
		if len(s.Requires) > 0 {
			requires = fmt.Sprint(s.Requires)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, requires, s.Summary)
	}
	return w.Flush() //nolint:wrapcheck // stdout
}

// InitTourCommands registers run and steps.
func InitTourCommands(rootCmd *cobra.Command, handler *CommandHandler) {
	runCmd := &cobra.Command{
		Use:   "run [step...]",
		Short: "Run the walkthrough, or the named steps and the steps they require",
		RunE:  handler.RunTourCmd,
	}
	stepsCmd := &cobra.Command{
		Use:   "steps",
		Short: "List the walkthrough steps in order",
		Args:  cobra.NoArgs,
		RunE:  handler.ListStepsCmd,
	}
	rootCmd.AddCommand(runCmd, stepsCmd)
}
