package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/dispatch"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string     { return "tasksync login --email <email> --password <password>" }
func (c *LoginCmd) NeedsApp() bool    { return true }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if st := a.Snapshot().Session; st.Authenticated() {
		if !cfg.Quiet {
			fmt.Fprintf(out, "already logged in as %s\n", st.User.Email)
		}
		return exitcode.Success
	}

	r, code := execute(ctx, a, dispatch.Login{Email: c.email, Password: c.password}, errOut)
	if code != exitcode.Success {
		return code
	}
	return printSignedIn(cfg, r, out)
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name     string
	email    string
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return nil }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string {
	return "tasksync register --name <name> --email <email> --password <password>"
}
func (c *RegisterCmd) NeedsApp() bool  { return true }
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	r, code := execute(ctx, a, dispatch.Register{Name: c.name, Email: c.email, Password: c.password}, errOut)
	if code != exitcode.Success {
		return code
	}
	return printSignedIn(cfg, r, out)
}

func printSignedIn(cfg *config.Config, r dispatch.Result, out io.Writer) int {
	if cfg.Quiet {
		return exitcode.Success
	}
	if u, ok := dispatch.Value[service.User](r); ok {
		fmt.Fprint(out, "logged in as ")
		output.FormatUser(out, u)
		return exitcode.Success
	}
	fmt.Fprintln(out, "ok")
	return exitcode.Success
}
