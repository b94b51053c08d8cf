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
	Register(&EditCmd{})
}

// optString is a string flag that records whether it was given.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(v string) error {
	o.value, o.set = v, true
	return nil
}

// EditCmd implements the edit command. Only the given flags are sent.
type EditCmd struct {
	title       optString
	description optString
	priority    optString
	due         optString
	status      optString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change fields of a task" }
func (c *EditCmd) Usage() string {
	return "tasksync edit [--title <t>] [--description <d>] [--priority <p>] [--due <YYYY-MM-DD>] [--status <s>] <ref>"
}
func (c *EditCmd) NeedsApp() bool  { return true }
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = EditCmd{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.due, "due", "")
	fs.Var(&c.status, "status", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	ref, code := parseRef(args, errOut)
	if code != exitcode.Success {
		return code
	}

	patch, err := c.patch()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if patch.IsEmpty() {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	task, code := resolveRef(ctx, a, ref, errOut)
	if code != exitcode.Success {
		return code
	}

	r, code := execute(ctx, a, dispatch.UpdateTask{ID: task.ID, Patch: patch}, errOut)
	if code != exitcode.Success {
		return code
	}
	if !cfg.Quiet {
		if t, ok := dispatch.Value[service.Task](r); ok {
			output.FormatTaskDetail(out, t)
		}
	}
	return exitcode.Success
}

func (c *EditCmd) patch() (service.TaskPatch, error) {
	var p service.TaskPatch
	if c.title.set {
		p.Title = &c.title.value
	}
	if c.description.set {
		p.Description = &c.description.value
	}
	if c.priority.set {
		pr := service.Priority(c.priority.value)
		p.Priority = &pr
	}
	if c.status.set {
		st := service.Status(c.status.value)
		p.Status = &st
	}
	if c.due.set {
		d, err := service.ParseDate(c.due.value)
		if err != nil {
			return p, fmt.Errorf("invalid due date: %s", c.due.value)
		}
		p.DueDate = &d
	}
	return p, nil
}
