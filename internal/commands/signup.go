package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/backend"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&SignupCmd{})
}

// SignupCmd implements the signup command. Fields not given as flags are
// read from stdin, followed by the password and its confirmation.
type SignupCmd struct {
	req service.SignUp
}

// SetForm sets the form fields (for testing).
func (c *SignupCmd) SetForm(req service.SignUp) {
	c.req = req
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *SignupCmd) Usage() string {
	return "todo signup [--first-name <n>] [--surname <n>] [--email <e>] [--phone <p>]"
}
func (c *SignupCmd) NeedsBackend() bool { return true }
func (c *SignupCmd) NeedsAuth() bool    { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.req.FirstName, "first-name", "", "")
	fs.StringVar(&c.req.Surname, "surname", "", "")
	fs.StringVar(&c.req.Email, "email", "", "")
	fs.StringVar(&c.req.Phone, "phone", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, b *backend.Backend, args []string, out, errOut io.Writer) int {
	req := c.req
	in := newPrompter(cfg, errOut)

	fields := []struct {
		label string
		dst   *string
	}{
		{"First name", &req.FirstName},
		{"Surname", &req.Surname},
		{"Email", &req.Email},
		{"Phone", &req.Phone},
		{"Password", &req.Password},
		{"Confirm password", &req.Confirm},
	}
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := in.line(f.label)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		*f.dst = v
	}

	if _, err := b.Auth.SignUp(ctx, req); err != nil {
		fmt.Fprintf(errOut, "error: sign up failed: %v\n", err)
		return loginCode(err)
	}
	return ok(cfg, out)
}
