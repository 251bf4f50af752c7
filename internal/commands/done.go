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
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command: completed tasks are reopened,
// open tasks are completed.
type ToggleCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *ToggleCmd) SetCategory(category string) {
	c.category = category
}

func (c *ToggleCmd) Name() string       { return "toggle" }
func (c *ToggleCmd) Aliases() []string  { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string   { return "Check or uncheck a task" }
func (c *ToggleCmd) Usage() string      { return "todo toggle [--category <c>] <ref...>" }
func (c *ToggleCmd) NeedsBackend() bool { return true }
func (c *ToggleCmd) NeedsAuth() bool    { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	st, e, code := loadBoard(ctx, cfg, b, c.category, errOut)
	if code != exitcode.Success {
		return code
	}

	items, code := resolveRefs(st, args, errOut)
	if code != exitcode.Success {
		return code
	}

	for _, it := range items {
		a, found := st.ToggleOf(it.Task.ID)
		if !found {
			fmt.Fprintf(errOut, "error: task not found: @%s\n", it.Task.ID)
			return exitcode.UserError
		}
		if r := e.Run(ctx, st, a); r.Err != nil {
			return report(errOut, r)
		}
	}
	return ok(cfg, out)
}
