package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsApp() bool    { return false }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, cmd := range DefaultRegistry.All() {
		names := strings.Join(append([]string{cmd.Name()}, cmd.Aliases()...), ", ")
		line := fmt.Sprintf("  %-16s %s", names, cmd.Synopsis())
		if cmd.NeedsAuth() {
			line += " (requires login)"
		}
		fmt.Fprintln(out, line)
	}
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                   List tasks
  tasksync list [common flags] [--status <s>] [--priority <p>]
  tasksync add [common flags] --description <text> --due <YYYY-MM-DD>
               [--priority <p>] [--status <s>] <title...>
  tasksync edit [common flags] [--title <t>] [--description <d>]
                [--priority <p>] [--due <YYYY-MM-DD>] [--status <s>] <ref>
  tasksync done [common flags] <ref>         Toggle completed/pending
  tasksync rm [common flags] <ref>
  tasksync login [common flags] --email <email> --password <password>
  tasksync register [common flags] --name <name> --email <email> --password <password>
  tasksync logout [common flags]
  tasksync whoami [common flags]
  tasksync profile [common flags] [--name <name>] [--current-password <pw>
                   --new-password <pw> --confirm-password <pw>]
  tasksync theme [common flags] [light|dark|toggle]
  tasksync config [common flags]
  tasksync help
  tasksync version

<ref> is the number shown by list, or a task id.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
