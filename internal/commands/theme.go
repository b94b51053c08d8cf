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
	"tasksync/internal/prefs"
)

func init() {
	Register(&ThemeCmd{})
}

// ThemeCmd shows or changes the display theme.
type ThemeCmd struct{}

func (c *ThemeCmd) Name() string      { return "theme" }
func (c *ThemeCmd) Aliases() []string { return nil }
func (c *ThemeCmd) Synopsis() string  { return "Show or set the theme" }
func (c *ThemeCmd) Usage() string     { return "tasksync theme [light|dark|toggle]" }
func (c *ThemeCmd) NeedsApp() bool    { return true }
func (c *ThemeCmd) NeedsAuth() bool   { return false }

func (c *ThemeCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ThemeCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	if len(args) == 0 {
		fmt.Fprintln(out, a.Snapshot().Prefs.Theme)
		return exitcode.Success
	}

	var cmd dispatch.Command
	if args[0] == "toggle" {
		cmd = dispatch.ToggleTheme{}
	} else {
		cmd = dispatch.SetTheme{Theme: prefs.Theme(args[0])}
	}
	r, code := execute(ctx, a, cmd, errOut)
	if code != exitcode.Success {
		return code
	}
	if !cfg.Quiet {
		if t, ok := dispatch.Value[prefs.Theme](r); ok {
			fmt.Fprintln(out, t)
		}
	}
	return exitcode.Success
}
