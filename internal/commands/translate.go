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
)

func init() {
	Register(&TranslateCmd{})
}

// TranslateCmd implements the translate command.
type TranslateCmd struct {
	category string
	lang     string
	all      bool
}

// SetCategory sets the category (for testing).
func (c *TranslateCmd) SetCategory(category string) {
	c.category = category
}

// SetLang sets the target language (for testing).
func (c *TranslateCmd) SetLang(lang string) {
	c.lang = lang
}

// SetAll translates every visible task (for testing).
func (c *TranslateCmd) SetAll(all bool) {
	c.all = all
}

func (c *TranslateCmd) Name() string      { return "translate" }
func (c *TranslateCmd) Aliases() []string { return nil }
func (c *TranslateCmd) Synopsis() string  { return "Translate task descriptions" }
func (c *TranslateCmd) Usage() string {
	return "todo translate [--lang <code>] [--category <c>] (--all | <ref>)"
}
func (c *TranslateCmd) NeedsBackend() bool { return true }
func (c *TranslateCmd) NeedsAuth() bool    { return true }

func (c *TranslateCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
	fs.StringVar(&c.lang, "lang", "", "")
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *TranslateCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	if c.all == (len(args) > 0) {
		fmt.Fprintln(errOut, "error: specify either --all or one task reference")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	lang := c.lang
	if lang == "" {
		lang = b.Language
	}
	if lang == "" {
		fmt.Fprintln(errOut, "error: target language required (--lang)")
		return exitcode.UserError
	}

	st, e, code := loadBoard(ctx, cfg, b, c.category, errOut)
	if code != exitcode.Success {
		return code
	}
	if !e.CanTranslate() {
		return report(errOut, board.Result{Kind: board.KindTranslated, Op: "translate", Err: board.ErrTranslationDisabled})
	}

	if c.all {
		if st.Empty() {
			if !cfg.Quiet {
				output.FormatEmpty(out)
			}
			return exitcode.Success
		}
		// Per-item failures are shown as markers.
		if r := e.Run(ctx, st, st.TranslateVisible(lang)); r.Err != nil && b.Logger != nil {
			b.Logger.Warn("batch translation failed", "err", r.Err)
		}
		for i, it := range st.Visible() {
			output.FormatTask(out, i+1, it)
		}
		return exitcode.Success
	}

	items, code := resolveRefs(st, args, errOut)
	if code != exitcode.Success {
		return code
	}
	it := items[0]
	r := e.Run(ctx, st, board.Translate{ID: it.Task.ID, Text: it.Task.Description, Lang: lang})
	if r.Err != nil {
		return report(errOut, r)
	}
	it, _ = st.Find(it.Task.ID)
	if n := position(st, it.Task.ID); n > 0 {
		output.FormatTask(out, n, it)
	} else {
		output.FormatTaskRef(out, it)
	}
	return exitcode.Success
}
