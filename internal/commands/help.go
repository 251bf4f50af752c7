package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/backend"
	"todo/internal/config"
	"todo/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	registry *Registry
}

// SetRegistry sets the registry whose commands are listed (for testing).
func (c *HelpCmd) SetRegistry(r *Registry) {
	c.registry = r
}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "todo help" }
func (c *HelpCmd) NeedsBackend() bool { return false }
func (c *HelpCmd) NeedsAuth() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)

	reg := c.registry
	if reg == nil {
		reg = DefaultRegistry
	}
	fmt.Fprintln(out, "\nCommands:")
	for _, e := range reg.Entries() {
		fmt.Fprintf(out, "  %-18s %s\n", e.Names(), e.Command.Synopsis())
	}
	return exitcode.Success
}

const helpText = `Usage:
  todo                                               List tasks of the default category
  todo list [common flags] [--category <c>] [--all]  List tasks
  todo add [common flags] [--category <c>] <description...>
  todo toggle [common flags] [--category <c>] <ref...>
  todo done [common flags] [--category <c>] <ref...>
  todo edit [common flags] [--category <c>] <ref> <description...>
  todo rm [common flags] [--category <c>] <ref...>
  todo clear [common flags] [--category <c>]
  todo translate [common flags] [--lang <code>] [--category <c>] (--all | <ref>)
  todo ui [common flags] [--category <c>]
  todo login [common flags] [--email <e>]
  todo signup [common flags] [--first-name <n>] [--surname <n>] [--email <e>] [--phone <p>]
  todo logout [common flags]
  todo whoami [common flags]
  todo init [common flags]
  todo help
  todo version

Categories: personal, professional
A <ref> is a task number from 'todo list' or @<id>.
Passwords are read from stdin.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
