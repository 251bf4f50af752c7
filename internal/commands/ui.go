package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/backend"
	"todo/internal/board"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/ui"
)

func init() {
	Register(&UICmd{})
}

// UICmd implements the ui command.
type UICmd struct {
	category string
}

func (c *UICmd) Name() string       { return "ui" }
func (c *UICmd) Aliases() []string  { return []string{"tui"} }
func (c *UICmd) Synopsis() string   { return "Open the interactive board" }
func (c *UICmd) Usage() string      { return "todo ui [--category <c>]" }
func (c *UICmd) NeedsBackend() bool { return true }
func (c *UICmd) NeedsAuth() bool    { return true }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *UICmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	cat, err := parseCategory(cfg, c.category)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	st := board.New(cat)
	if s, err := b.Auth.Current(ctx); err == nil {
		st.Apply(board.Result{Kind: board.KindSession, Op: "session", Session: &s})
	}

	err = ui.Run(ctx, st, newEngine(b), ui.Options{
		Language:     b.Language,
		Watcher:      b.Watcher,
		PollInterval: b.PollInterval,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
