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
	"todo/internal/output"
	"todo/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todo` (no args) and `todo list`.
type ListCmd struct {
	category string
	all      bool
}

// SetCategory sets the category (for testing).
func (c *ListCmd) SetCategory(category string) {
	c.category = category
}

// SetAll shows every category (for testing).
func (c *ListCmd) SetAll(all bool) {
	c.all = all
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "todo list [--category <c>] [--all]" }
func (c *ListCmd) NeedsBackend() bool { return true }
func (c *ListCmd) NeedsAuth() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	st, _, code := loadBoard(ctx, cfg, b, c.category, errOut)
	if code != exitcode.Success {
		return code
	}

	if c.all {
		return listAll(cfg, st, out)
	}

	if st.Empty() {
		if !cfg.Quiet {
			output.FormatEmpty(out)
		}
		return exitcode.Success
	}
	for i, it := range st.Visible() {
		output.FormatTask(out, i+1, it)
	}
	return exitcode.Success
}

// listAll prints one section per category; numbers restart in each section.
func listAll(cfg *config.Config, st *board.State, out io.Writer) int {
	if len(st.Items) == 0 {
		if !cfg.Quiet {
			output.FormatEmpty(out)
		}
		return exitcode.Success
	}

	for _, cat := range service.Categories {
		st.Apply(board.Result{Kind: board.KindCategory, Category: cat})
		visible := st.Visible()
		if len(visible) == 0 {
			continue
		}
		output.FormatCategoryHeader(out, cat, len(visible))
		for i, it := range visible {
			output.FormatTask(out, i+1, it)
		}
	}
	return exitcode.Success
}
