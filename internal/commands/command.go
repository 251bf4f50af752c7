// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"os"

	"todo/internal/backend"
	"todo/internal/config"
)

// Stdin is read by commands that prompt for credentials.
var Stdin io.Reader = os.Stdin

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsBackend returns true if the command talks to the configured backend.
	// Commands like help, version and init return false.
	NeedsBackend() bool

	// NeedsAuth returns true if the command requires a signed-in session.
	// Commands like login, signup and logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// b is nil if NeedsBackend() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int
}
