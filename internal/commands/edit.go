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
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *EditCmd) SetCategory(category string) {
	c.category = category
}

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return nil }
func (c *EditCmd) Synopsis() string   { return "Change a task description" }
func (c *EditCmd) Usage() string      { return "todo edit [--category <c>] <ref> <description...>" }
func (c *EditCmd) NeedsBackend() bool { return true }
func (c *EditCmd) NeedsAuth() bool    { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(errOut, "error: %v\n", ErrTaskRefRequired)
		return exitcode.UserError
	}

	st, e, code := loadBoard(ctx, cfg, b, c.category, errOut)
	if code != exitcode.Success {
		return code
	}

	items, code := resolveRefs(st, args[:1], errOut)
	if code != exitcode.Success {
		return code
	}

	r := e.Run(ctx, st, board.Edit{
		ID:          items[0].Task.ID,
		Description: strings.Join(args[1:], " "),
	})
	if r.Err != nil {
		return report(errOut, r)
	}
	return ok(cfg, out)
}
