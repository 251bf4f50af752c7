package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"todo/internal/backend"
	"todo/internal/board"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
)

// DeleteRate is the number of delete requests per second issued by clear and rm.
const DeleteRate = 10

// newEngine creates a board engine over the backend.
func newEngine(b *backend.Backend) *board.Engine {
	opts := []board.Option{board.WithDeleteRate(DeleteRate)}
	if b.Translator != nil {
		opts = append(opts, board.WithTranslator(b.Translator))
	}
	if b.Logger != nil {
		opts = append(opts, board.WithLogger(b.Logger))
	}
	return board.NewEngine(b.Service, opts...)
}

// parseCategory resolves the --category flag, defaulting to config.toml.
func parseCategory(cfg *config.Config, name string) (service.Category, error) {
	if name == "" {
		return cfg.Settings.Category(), nil
	}
	return service.ParseCategory(name)
}

// loadBoard fetches every task into a board showing category.
// On failure the error is printed and a non-zero exit code returned.
func loadBoard(ctx context.Context, cfg *config.Config, b *backend.Backend, category string, errOut io.Writer) (*board.State, *board.Engine, int) {
	cat, err := parseCategory(cfg, category)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, nil, exitcode.UserError
	}

	st := board.New(cat)
	e := newEngine(b)
	if r := e.Run(ctx, st, board.Load{}); r.Err != nil {
		return nil, nil, report(errOut, r)
	}
	return st, e, exitcode.Success
}

// report prints a failed result and returns its exit code.
func report(errOut io.Writer, r board.Result) int {
	fmt.Fprintf(errOut, "error: %s\n", r.Message())
	return codeFor(r.Err)
}

// codeFor classifies an error into an exit code.
func codeFor(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, board.ErrEmptyDescription),
		errors.Is(err, board.ErrTranslationDisabled),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrNotFound):
		return exitcode.UserError
	case service.IsAuth(err), errors.Is(err, backend.ErrConfig):
		return exitcode.AuthError
	}
	return exitcode.BackendError
}

// ok prints the success marker unless quiet.
func ok(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// resolveRefs parses args as task references and resolves them on the board.
// On failure the error is printed and a non-zero exit code returned.
func resolveRefs(st *board.State, args []string, errOut io.Writer) ([]board.Item, int) {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.UserError
	}
	items := make([]board.Item, 0, len(refs))
	for _, ref := range refs {
		it, err := ref.Resolve(st)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return nil, exitcode.UserError
		}
		items = append(items, it)
	}
	return items, exitcode.Success
}
