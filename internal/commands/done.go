package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/dispatch"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It flips the task's status, so
// running it on a completed task reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle a task between pending and completed" }
func (c *DoneCmd) Usage() string     { return "tasksync done <ref>" }
func (c *DoneCmd) NeedsApp() bool    { return true }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	ref, code := parseRef(args, errOut)
	if code != exitcode.Success {
		return code
	}
	task, code := resolveRef(ctx, a, ref, errOut)
	if code != exitcode.Success {
		return code
	}

	r, code := execute(ctx, a, dispatch.ToggleTask{ID: task.ID}, errOut)
	if code != exitcode.Success {
		return code
	}
	if !cfg.Quiet {
		if t, ok := dispatch.Value[service.Task](r); ok {
			fmt.Fprintln(out, t.Status)
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}

// parseRef parses a task reference and reports errors.
func parseRef(args []string, errOut io.Writer) (TaskRef, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return TaskRef{}, exitcode.UserError
	}
	return ref, exitcode.Success
}

// resolveRef fetches the collection and finds the referenced task.
func resolveRef(ctx context.Context, a *app.App, ref TaskRef, errOut io.Writer) (service.Task, int) {
	ts, code := fetchTasks(ctx, a, errOut)
	if code != exitcode.Success {
		return service.Task{}, code
	}
	task, err := ref.Resolve(ts)
	if err != nil {
		if errors.Is(err, ErrOutOfRange) || errors.Is(err, ErrTaskNotFound) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return service.Task{}, exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.BackendError
	}
	return task, exitcode.Success
}
