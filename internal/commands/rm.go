package commands

import (
	"context"
	"flag"
	"io"

	"todo/internal/backend"
	"todo/internal/board"
	"todo/internal/config"
	"todo/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
	Register(&ClearCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *RmCmd) SetCategory(category string) {
	c.category = category
}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete tasks" }
func (c *RmCmd) Usage() string      { return "todo rm [--category <c>] <ref...>" }
func (c *RmCmd) NeedsBackend() bool { return true }
func (c *RmCmd) NeedsAuth() bool    { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	st, e, code := loadBoard(ctx, cfg, b, c.category, errOut)
	if code != exitcode.Success {
		return code
	}

	// Resolve every reference before deleting so numbers refer to the listing.
	items, code := resolveRefs(st, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if len(items) == 1 {
		if r := e.Run(ctx, st, board.Delete{ID: items[0].Task.ID}); r.Err != nil {
			return report(errOut, r)
		}
		return ok(cfg, out)
	}

	a := board.Clear{}
	seen := make(map[string]bool)
	for _, it := range items {
		if !seen[it.Task.ID] {
			seen[it.Task.ID] = true
			a.IDs = append(a.IDs, it.Task.ID)
		}
	}
	if r := e.Run(ctx, st, a); r.Err != nil {
		return report(errOut, r)
	}
	return ok(cfg, out)
}

// ClearCmd implements the clear command: delete every task of a category.
type ClearCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *ClearCmd) SetCategory(category string) {
	c.category = category
}

func (c *ClearCmd) Name() string       { return "clear" }
func (c *ClearCmd) Aliases() []string  { return nil }
func (c *ClearCmd) Synopsis() string   { return "Delete every task in a category" }
func (c *ClearCmd) Usage() string      { return "todo clear [--category <c>]" }
func (c *ClearCmd) NeedsBackend() bool { return true }
func (c *ClearCmd) NeedsAuth() bool    { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	st, e, code := loadBoard(ctx, cfg, b, c.category, errOut)
	if code != exitcode.Success {
		return code
	}

	if r := e.Run(ctx, st, st.ClearVisible()); r.Err != nil {
		return report(errOut, r)
	}
	return ok(cfg, out)
}
