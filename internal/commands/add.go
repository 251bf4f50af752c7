package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todo/internal/backend"
	"todo/internal/board"
	"todo/internal/config"
	"todo/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *AddCmd) SetCategory(category string) {
	c.category = category
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "todo add [--category <c>] <description...>" }
func (c *AddCmd) NeedsBackend() bool { return true }
func (c *AddCmd) NeedsAuth() bool    { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	cat, err := parseCategory(cfg, c.category)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	r := newEngine(b).Do(ctx, board.Create{
		Description: strings.Join(args, " "),
		Category:    cat,
	})
	if r.Err != nil {
		return report(errOut, r)
	}
	return ok(cfg, out)
}
