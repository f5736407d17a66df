package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dice/internal/dice"
)

// UsageError reports a command invoked with the wrong arguments.
type UsageError struct {
	Command *Command
	Msg     string
}

func (e *UsageError) Error() string {
	if e.Command == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s\n\nUsage: %s", e.Msg, e.Command.Syntax)
}

// Options carries per-invocation command flags.
type Options struct {
	// Faces is the face count for dice created by "new".
	Faces int
}

// App executes dice commands against a repository.
type App struct {
	repo     *dice.Repository
	registry *Registry
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	logger   *zap.Logger
}

// NewApp creates an App that reads interactive input from in, writes results to out, and
// writes warnings to errOut.
//
// Precondition: all arguments must be non-nil.
func NewApp(repo *dice.Repository, registry *Registry, in io.Reader, out, errOut io.Writer, logger *zap.Logger) *App {
	return &App{repo: repo, registry: registry, in: in, out: out, errOut: errOut, logger: logger}
}

// Execute resolves name and runs the matching command with args.
// An empty name runs DefaultCommand.
//
// Postcondition: Returns nil on success, a *UsageError for bad invocations, or the
// command's error.
func (a *App) Execute(name string, args []string, opts Options) error {
	if name == "" {
		name = DefaultCommand
	}
	cmd, ok := a.registry.Resolve(name)
	if !ok {
		return &UsageError{Msg: fmt.Sprintf("unknown command %q, see 'dice help'", name)}
	}

	switch cmd.Handler {
	case HandlerList:
		return a.List()
	case HandlerNew:
		if len(args) == 0 {
			return &UsageError{Command: cmd, Msg: "You must specify at least one <name>."}
		}
		return a.New(args, opts.Faces)
	case HandlerThrow:
		throws, err := dice.ParseThrows(args)
		if errors.Is(err, dice.ErrUnpairedArgs) {
			return &UsageError{Command: cmd, Msg: "You must pass one <value> for each <name>."}
		}
		if err != nil {
			return err
		}
		return a.Throw(throws)
	case HandlerRun:
		if len(args) == 0 {
			return &UsageError{Command: cmd, Msg: "You must pass at least one <name>."}
		}
		return a.Run(args)
	case HandlerStats:
		return a.Stats(args)
	case HandlerHelp:
		return a.Help()
	default:
		return fmt.Errorf("command %q has no handler %q", cmd.Name, cmd.Handler)
	}
}

// List prints every die with its summary statistics.
func (a *App) List() error {
	all, err := a.repo.ListAll()
	if err != nil {
		return err
	}
	for _, d := range all {
		fmt.Fprintf(a.out, "%s\t%s\n", d.Name, summary(d))
	}
	return nil
}

// New creates one die per name. A taken name only produces a warning; other failures are
// collected and returned after every name has been attempted.
func (a *App) New(names []string, faces int) error {
	var errs error
	for _, name := range names {
		_, err := a.repo.Create(name, faces)
		switch {
		case err == nil:
		case errors.Is(err, dice.ErrAlreadyExists):
			a.logger.Info("die name taken", zap.String("name", name))
			fmt.Fprintf(a.errOut, "A dice named %s already exists, pick a different name.\n", name)
		default:
			errs = multierr.Append(errs, fmt.Errorf("creating %s: %w", name, err))
		}
	}
	return errs
}

// Throw records a batch of throws, all or nothing.
func (a *App) Throw(throws []dice.Throw) error {
	return a.repo.ThrowBatch(throws)
}

// Run interactively records rounds of throws for the named dice until input ends.
// Every die must exist before the first prompt. Each complete round is recorded
// immediately; a line with the wrong number of values is rejected and the round repeated.
func (a *App) Run(names []string) error {
	for _, name := range names {
		_, ok, err := a.repo.Find(name)
		if err != nil && !errors.Is(err, dice.ErrInvalidName) {
			return err
		}
		if !ok {
			return fmt.Errorf("%w %s", dice.ErrUnknownDie, name)
		}
	}

	scanner := bufio.NewScanner(a.in)
	prompt := strings.Join(names, " ")
	for round := 1; ; {
		fmt.Fprintf(a.out, "%s ?  (throw #%d) ", prompt, round)
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		values := ParseValues(scanner.Text())
		if len(values) != len(names) {
			fmt.Fprintln(a.errOut, "Wrong number of values!")
			continue
		}
		for i, name := range names {
			if _, err := a.repo.RecordThrow(name, values[i]); err != nil {
				return err
			}
		}
		round++
	}
}

// Stats prints the per-face histogram of the named dice, or of every die when names is
// empty.
func (a *App) Stats(names []string) error {
	var all []dice.Die
	if len(names) == 0 {
		var err error
		if all, err = a.repo.ListAll(); err != nil {
			return err
		}
	}
	for _, name := range names {
		d, ok, err := a.repo.Find(name)
		if err != nil && !errors.Is(err, dice.ErrInvalidName) {
			return err
		}
		if !ok {
			return fmt.Errorf("%w %s", dice.ErrUnknownDie, name)
		}
		all = append(all, d)
	}

	for _, d := range all {
		fmt.Fprintf(a.out, "%s (%d faces)\t%s\n", d.Name, d.Faces, summary(d))
		for face := 1; face <= d.Faces; face++ {
			fmt.Fprintf(a.out, "  %d\t%d\t%5.1f%%\n", face, d.Histogram[face-1], 100*d.Share(face))
		}
	}
	return nil
}

// Help prints every command with its syntax, summary and aliases, grouped by category.
func (a *App) Help() error {
	byCategory := a.registry.CommandsByCategory()
	first := true
	for _, section := range helpSections {
		cmds := byCategory[section.category]
		if len(cmds) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(a.out)
		}
		first = false
		fmt.Fprintf(a.out, "%s:\n", section.label)
		for _, cmd := range cmds {
			aliases := ""
			if len(cmd.Aliases) > 0 {
				aliases = " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			fmt.Fprintf(a.out, "  %-34s %s%s\n", cmd.Syntax, cmd.Help, aliases)
		}
	}
	return nil
}

func summary(d dice.Die) string {
	avg, err := d.Average()
	if errors.Is(err, dice.ErrNoData) {
		return "-- (no stats yet)"
	}
	return fmt.Sprintf("averaging %0.1f over %d throws", avg, d.TotalThrows())
}
