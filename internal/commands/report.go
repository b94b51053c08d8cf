package commands

import (
	"context"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/dispatch"
	"tasksync/internal/exitcode"
	"tasksync/internal/failure"
	"tasksync/internal/service"
)

// execute runs cmd to completion and reports a failure on errOut.
// The returned code is exitcode.Success when the operation succeeded.
func execute(ctx context.Context, a *app.App, cmd dispatch.Command, errOut io.Writer) (dispatch.Result, int) {
	r, err := a.Run(ctx, cmd)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return r, exitcode.BackendError
	}
	if !r.OK() {
		return r, report(errOut, r.Failure)
	}
	return r, exitcode.Success
}

// report prints f and maps its kind to an exit code.
func report(errOut io.Writer, f *failure.Error) int {
	switch {
	case f.Kind == failure.Validation:
		fmt.Fprintf(errOut, "error: %s\n", f.Message)
		return exitcode.UserError
	case f.IsAuth():
		fmt.Fprintf(errOut, "error: auth error: %s\n", f.Message)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %s\n", f.Message)
		return exitcode.BackendError
	}
}

// fetchTasks loads the collection for commands that address tasks by ref.
func fetchTasks(ctx context.Context, a *app.App, errOut io.Writer) ([]service.Task, int) {
	r, code := execute(ctx, a, dispatch.FetchTasks{}, errOut)
	if code != exitcode.Success {
		return nil, code
	}
	ts, _ := dispatch.Value[[]service.Task](r)
	return ts, exitcode.Success
}
