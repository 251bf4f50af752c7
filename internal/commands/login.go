package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todo/internal/backend"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email string
}

// SetEmail sets the account email (for testing).
func (c *LoginCmd) SetEmail(email string) {
	c.email = email
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in (password read from stdin)" }
func (c *LoginCmd) Usage() string      { return "todo login [--email <e>]" }
func (c *LoginCmd) NeedsBackend() bool { return true }
func (c *LoginCmd) NeedsAuth() bool    { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	if s, err := b.Auth.Current(ctx); err == nil {
		if !cfg.Quiet {
			fmt.Fprintf(out, "already logged in as %s\n", sessionName(s))
		}
		return exitcode.Success
	}

	var email, password string
	// Google accounts are chosen in the browser.
	if cfg.Settings.Backend != config.BackendGoogleTasks {
		in := newPrompter(cfg, errOut)
		var err error
		email = c.email
		if email == "" {
			if email, err = in.line("Email"); err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return exitcode.UserError
			}
		}
		if password, err = in.line("Password"); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	if _, err := b.Auth.Login(ctx, email, password); err != nil {
		fmt.Fprintf(errOut, "error: login failed: %v\n", err)
		return loginCode(err)
	}
	return ok(cfg, out)
}

// loginCode maps a login or sign-up failure to an exit code.
// Rejected credentials are auth errors; network failures are backend errors.
func loginCode(err error) int {
	switch code := codeFor(err); {
	case code == exitcode.UserError:
		return code
	case errors.Is(err, service.ErrTimeout), errors.Is(err, service.ErrMalformed):
		return exitcode.BackendError
	default:
		return exitcode.AuthError
	}
}

func sessionName(s service.Session) string {
	if s.Email != "" {
		return s.Email
	}
	return s.UID
}

// prompter reads answers from Stdin one line at a time.
type prompter struct {
	r     *bufio.Reader
	w     io.Writer
	quiet bool
}

func newPrompter(cfg *config.Config, errOut io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(Stdin), w: errOut, quiet: cfg.Quiet}
}

// line prompts for label and returns the trimmed answer.
func (p *prompter) line(label string) (string, error) {
	if !p.quiet {
		fmt.Fprintf(p.w, "%s: ", label)
	}
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("%s required", strings.ToLower(label))
	}
	return strings.TrimRight(s, "\r\n"), nil
}
