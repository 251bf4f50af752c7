package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/backend"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/output"
)

func init() {
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Sign out and remove stored credentials" }
func (c *LogoutCmd) Usage() string      { return "todo logout [common flags]" }
func (c *LogoutCmd) NeedsBackend() bool { return true }
func (c *LogoutCmd) NeedsAuth() bool    { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	if _, err := b.Auth.Current(ctx); err != nil {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if err := b.Auth.Logout(ctx); err != nil {
		fmt.Fprintf(errOut, "error: logout failed: %v\n", err)
		return exitcode.AuthError
	}
	return ok(cfg, out)
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Print the signed-in account" }
func (c *WhoamiCmd) Usage() string      { return "todo whoami [common flags]" }
func (c *WhoamiCmd) NeedsBackend() bool { return true }
func (c *WhoamiCmd) NeedsAuth() bool    { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	s, err := b.Auth.Current(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return codeFor(err)
	}
	output.FormatSession(out, s)
	return exitcode.Success
}
