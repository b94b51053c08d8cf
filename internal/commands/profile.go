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
	Register(&ProfileCmd{})
}

// ProfileCmd implements the profile command.
type ProfileCmd struct {
	name            string
	currentPassword string
	newPassword     string
	confirmPassword string
}

func (c *ProfileCmd) Name() string      { return "profile" }
func (c *ProfileCmd) Aliases() []string { return nil }
func (c *ProfileCmd) Synopsis() string  { return "Change name or password" }
func (c *ProfileCmd) Usage() string {
	return "tasksync profile [--name <name>] [--current-password <pw> --new-password <pw> --confirm-password <pw>]"
}
func (c *ProfileCmd) NeedsApp() bool  { return true }
func (c *ProfileCmd) NeedsAuth() bool { return true }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.currentPassword, "current-password", "", "")
	fs.StringVar(&c.newPassword, "new-password", "", "")
	fs.StringVar(&c.confirmPassword, "confirm-password", "", "")
}

func (c *ProfileCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// The name is always sent; keep the current one unless changed.
	name := c.name
	if name == "" {
		name = a.Snapshot().Session.User.Name
	}

	r, code := execute(ctx, a, dispatch.UpdateProfile{
		Name:            name,
		CurrentPassword: c.currentPassword,
		NewPassword:     c.newPassword,
		ConfirmPassword: c.confirmPassword,
	}, errOut)
	if code != exitcode.Success {
		return code
	}

	if !cfg.Quiet {
		if u, ok := dispatch.Value[service.User](r); ok {
			output.FormatUser(out, u)
		}
	}
	return exitcode.Success
}
