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
	Register(&InitCmd{})
}

// InitCmd writes the example config.toml.
type InitCmd struct{}

func (c *InitCmd) Name() string       { return "init" }
func (c *InitCmd) Aliases() []string  { return nil }
func (c *InitCmd) Synopsis() string   { return "Create config.toml" }
func (c *InitCmd) Usage() string      { return "todo init [common flags]" }
func (c *InitCmd) NeedsBackend() bool { return false }
func (c *InitCmd) NeedsAuth() bool    { return false }

func (c *InitCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *InitCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	if err := cfg.WriteExample(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, cfg.SettingsPath())
	}
	return exitcode.Success
}
