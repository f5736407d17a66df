// Package command provides the command registry, the run-loop input parser, and the
// handlers behind each dice command.
package command

// Categories for organizing commands.
const (
	CategoryRecord = "record"
	CategoryReport = "report"
	CategorySystem = "system"
)

// helpSections orders the categories in help output.
var helpSections = []struct {
	category string
	label    string
}{
	{CategoryRecord, "Recording"},
	{CategoryReport, "Reports"},
	{CategorySystem, "System"},
}

// Handler identifiers mapping commands to App handlers.
const (
	HandlerList  = "list"
	HandlerNew   = "new"
	HandlerThrow = "throw"
	HandlerRun   = "run"
	HandlerStats = "stats"
	HandlerHelp  = "help"
)

// DefaultCommand is the command executed when none is given.
const DefaultCommand = "list"

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Syntax is the usage line shown with usage errors.
	Syntax string
	// Help is the short help text.
	Help string
	// Category groups the command (record, report, system).
	Category string
	// Handler maps to the App handler that executes the command.
	Handler string
}

// BuiltinCommands returns all built-in dice commands.
func BuiltinCommands() []Command {
	return []Command{
		// Report commands
		{Name: "list", Aliases: []string{"ls"}, Syntax: "dice list", Help: "List known dice.", Category: CategoryReport, Handler: HandlerList},
		{Name: "stats", Aliases: nil, Syntax: "dice stats [<name> ...]", Help: "Show the per-face histogram of dice.", Category: CategoryReport, Handler: HandlerStats},

		// Record commands
		{Name: "new", Aliases: []string{"add"}, Syntax: "dice new [-f <faces>] <name> ...", Help: "Make a new dice to record data for.", Category: CategoryRecord, Handler: HandlerNew},
		{Name: "throw", Aliases: []string{"t"}, Syntax: "dice throw <name> <value> ...", Help: "Record thrown values for each of the given dice.", Category: CategoryRecord, Handler: HandlerThrow},
		{Name: "run", Aliases: nil, Syntax: "dice run <name> ...", Help: "Record a series of throws of one or more dice.", Category: CategoryRecord, Handler: HandlerRun},

		// System commands
		{Name: "help", Aliases: []string{"?"}, Syntax: "dice help", Help: "Show available commands.", Category: CategorySystem, Handler: HandlerHelp},
	}
}
