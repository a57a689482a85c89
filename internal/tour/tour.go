package tour

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/orm"
	"github.com/mickamy/ormtour/schema"
)

// ErrUnknownStep is returned by Run for a step name that does not exist.
var ErrUnknownStep = errors.New("tour: unknown step")

// Step is one stage of the walkthrough.
type Step struct {
	Name    string
	Summary string
	// Requires names the steps whose rows or tables this one reads.
	Requires []string
	run      func(ctx context.Context, env *Env) error
}

var steps = []Step{
	{Name: "hello", Summary: "execute select 'hello world' and print the result", run: hello},
	{Name: "commit-as-you-go", Summary: "create some_table, insert two rows, commit on the connection", run: commitAsYouGo},
	{Name: "begin-once", Summary: "insert two rows in a block that commits on success", Requires: []string{"commit-as-you-go"}, run: beginOnce},
	{Name: "fetch-rows", Summary: "iterate rows by column name", Requires: []string{"begin-once"}, run: fetchRows},
	{Name: "row-access", Summary: "read rows by tuple, index, name and mapping", Requires: []string{"begin-once"}, run: rowAccess},
	{Name: "send-params", Summary: "bind :y at execution time", Requires: []string{"begin-once"}, run: sendParams},
	{Name: "send-multiple-params", Summary: "insert with a list of parameter sets", Requires: []string{"begin-once"}, run: sendMultipleParams},
	{Name: "bind-params", Summary: "bind :y on the statement itself", Requires: []string{"send-multiple-params"}, run: bindParams},
	{Name: "session-execute", Summary: "run a bound statement through a session", Requires: []string{"send-multiple-params"}, run: sessionExecute},
	{Name: "session-commit", Summary: "update rows through a session and commit", Requires: []string{"send-multiple-params"}, run: sessionCommit},
	{Name: "metadata", Summary: "declare user_account and address tables and emit DDL", run: metadata},
	{Name: "declarative", Summary: "map User and Address, persist and reload them", Requires: []string{"metadata"}, run: declarative},
}

// Steps returns every step in the order Run executes them.
func Steps() []Step {
	return slices.Clone(steps)
}

func lookup(name string) (Step, bool) {
	i := slices.IndexFunc(steps, func(s Step) bool { return s.Name == name })
	if i < 0 {
		return Step{}, false
	}
	return steps[i], true
}

// Env is the state the steps share: one engine, the output, and what
// earlier steps declared.
type Env struct {
	Engine *core.Engine
	Out    io.Writer

	// MetaData is set by the metadata step.
	MetaData *schema.MetaData
	// Registry is set by the declarative step.
	Registry *orm.Registry

	done map[string]bool
}

// NewEnv returns an Env printing to out.
func NewEnv(engine *core.Engine, out io.Writer) *Env {
	return &Env{Engine: engine, Out: out, done: make(map[string]bool)}
}

// Done reports whether the named step has completed on env.
func (env *Env) Done(name string) bool { return env.done[name] }

func (env *Env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(env.Out, format, args...)
}

// query runs fn on a fresh connection and closes it afterwards, rolling
// back the implicit transaction.
func (env *Env) query(ctx context.Context, fn func(conn *core.Connection) error) error {
	conn, err := env.Engine.Connect(ctx)
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	defer conn.Close()
	return fn(conn)
}

// Run executes the named steps, or every step when names is empty. Steps
// a named step requires run first. Steps run in walkthrough order, each
// at most once per Env.
func Run(ctx context.Context, env *Env, names ...string) error {
	want := make(map[string]bool)
	if len(names) == 0 {
		for _, s := range steps {
			want[s.Name] = true
		}
	}
	for _, name := range names {
		if err := require(name, want); err != nil {
			return err
		}
	}

	for _, s := range steps {
		if !want[s.Name] || env.done[s.Name] {
			continue
		}
		if err := s.run(ctx, env); err != nil {
			return fmt.Errorf("tour: %s: %w", s.Name, err)
		}
		env.done[s.Name] = true
	}
	return nil
}

func require(name string, want map[string]bool) error {
	if want[name] {
		return nil
	}
	s, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownStep, name)
	}
	want[name] = true
	for _, dep := range s.Requires {
		if err := require(dep, want); err != nil {
			return err
		}
	}
	return nil
}
