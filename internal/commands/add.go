package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/dispatch"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	priority    string
	due         string
	status      string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasksync add --description <text> --due <YYYY-MM-DD> [--priority low|medium|high] [--status pending|completed] <title...>"
}
func (c *AddCmd) NeedsApp() bool  { return true }
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.priority, "priority", string(service.PriorityMedium), "")
	fs.StringVar(&c.priority, "p", string(service.PriorityMedium), "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.status, "status", string(service.StatusPending), "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	var due service.Date
	if c.due != "" {
		d, err := service.ParseDate(c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid due date: %s\n", c.due)
			return exitcode.UserError
		}
		due = d
	}

	r, code := execute(ctx, a, dispatch.CreateTask{Fields: service.TaskFields{
		Title:       title,
		Description: c.description,
		Priority:    service.Priority(c.priority),
		Status:      service.Status(c.status),
		DueDate:     due,
	}}, errOut)
	if code != exitcode.Success {
		return code
	}

	if !cfg.Quiet {
		if t, ok := dispatch.Value[service.Task](r); ok {
			fmt.Fprintf(out, "ok %s\n", t.ID)
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
