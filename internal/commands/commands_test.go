package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"testing"

	"tasksync/internal/app"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/dispatch"
	"tasksync/internal/exitcode"
	"tasksync/internal/persist"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

// fixture is a FakeService with one account, a record store and an app
// built over both.
type fixture struct {
	svc *testutil.FakeService
	kv  *persist.MemoryStore
	app *app.App
}

func newFixture(t *testing.T, signedIn bool) *fixture {
	t.Helper()
	f := &fixture{svc: testutil.NewFakeService(), kv: persist.NewMemoryStore()}
	f.svc.AddUser("Ada", "ada@example.com", "secret")
	f.app = app.New(context.Background(), f.svc, f.kv, app.Options{})
	t.Cleanup(f.app.Close)

	if signedIn {
		r, err := f.app.Run(context.Background(), dispatch.Login{Email: "ada@example.com", Password: "secret"})
		if err != nil || !r.OK() {
			t.Fatalf("login failed: %v %v", err, r.Err())
		}
	}
	return f
}

func (f *fixture) addTask(title string, due service.Date) service.Task {
	return f.svc.AddTask(service.TaskFields{
		Title:       title,
		Description: title + " details",
		Priority:    service.PriorityMedium,
		Status:      service.StatusPending,
		DueDate:     due,
	})
}

// runCommand parses args with the command's flags and runs it.
func runCommand(t *testing.T, cmd commands.Command, a *app.App, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}

	code = cmd.Run(context.Background(), cfg, a, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func taskLine(num int, box, title string, due service.Date) string {
	return fmt.Sprintf("%4d  [%s] %s  medium  due %s\n", num, box, title, due)
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	// Every registered command appears in the help text.
	for _, c := range commands.DefaultRegistry.All() {
		if !strings.Contains(stdout, "tasksync "+c.Name()) {
			t.Errorf("help output missing command %q", c.Name())
		}
	}
}

func TestListCommand_WithTasks(t *testing.T) {
	f := newFixture(t, true)
	due := service.Today().AddDays(1)
	f.addTask("Buy milk", due)
	f.addTask("Buy eggs", due)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, f.app, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	expected := taskLine(1, " ", "Buy milk", due) + taskLine(2, " ", "Buy eggs", due)
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	f := newFixture(t, true)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, f.app, nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected %q, got %q", "no tasks found\n", stdout)
	}

	// Quiet mode should suppress "no tasks found"
	stdout, _, _ = runCommand(t, &commands.ListCmd{}, f.app, nil, true)
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}

func TestListCommand_FilterKeepsNumbers(t *testing.T) {
	f := newFixture(t, true)
	due := service.Today().AddDays(1)
	f.addTask("First", due)
	second := f.addTask("Second", due)
	done := service.StatusCompleted
	if _, err := f.svc.UpdateTask(context.Background(), second.ID, service.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}

	stdout, _, code := runCommand(t, &commands.ListCmd{}, f.app, []string{"--status", "completed"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != taskLine(2, "x", "Second", due) {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestListCommand_InvalidFilter(t *testing.T) {
	f := newFixture(t, true)

	_, stderr, code := runCommand(t, &commands.ListCmd{}, f.app, []string{"--priority", "urgent"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid priority: urgent\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if f.svc.Calls(testutil.MethodListTasks) != 0 {
		t.Error("invalid filter should not fetch")
	}
}

func TestListCommand_FetchFailure(t *testing.T) {
	f := newFixture(t, true)
	f.svc.SetErr(testutil.MethodListTasks, errors.New("connection refused"))

	_, stderr, code := runCommand(t, &commands.ListCmd{}, f.app, nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: Failed to fetch tasks\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand_Success(t *testing.T) {
	f := newFixture(t, true)
	due := service.Today().AddDays(3)

	args := []string{"--description", "Weekly shop", "--priority", "high", "--due", due.String(), "Buy", "groceries"}
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, f.app, args, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok task-1\n" {
		t.Errorf("expected 'ok task-1\\n', got %q", stdout)
	}

	tasks := f.svc.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Title != "Buy groceries" || got.Description != "Weekly shop" || got.Priority != service.PriorityHigh ||
		got.Status != service.StatusPending || got.DueDate != due {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	f := newFixture(t, true)
	args := []string{"-d", "x", "--due", service.Today().String(), "Buy", "milk"}

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, f.app, args, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no title", []string{"-d", "x", "--due", service.Today().String()}, "error: title required\n"},
		{"no description", []string{"--due", service.Today().String(), "Title"}, "error: description required\n"},
		{"no due date", []string{"-d", "x", "Title"}, "error: due date required\n"},
		{"bad due date", []string{"-d", "x", "--due", "tomorrow", "Title"}, "error: invalid due date: tomorrow\n"},
		{"past due date", []string{"-d", "x", "--due", service.Today().AddDays(-1).String(), "Title"}, "error: due date cannot be in the past\n"},
		{"bad priority", []string{"-d", "x", "-p", "urgent", "--due", service.Today().String(), "Title"}, "error: invalid priority: \"urgent\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)

			_, stderr, code := runCommand(t, &commands.AddCmd{}, f.app, tt.args, false)

			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, stderr)
			}
			if n := f.svc.Calls(testutil.MethodCreateTask); n != 0 {
				t.Errorf("expected no request, got %d", n)
			}
		})
	}
}

func TestEditCommand(t *testing.T) {
	f := newFixture(t, true)
	due := service.Today().AddDays(1)
	task := f.addTask("Draft", due)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, f.app, []string{"--title", "Final", "1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "title:       Final\n") {
		t.Errorf("expected updated title in output, got %q", stdout)
	}
	got := f.svc.Tasks()[0]
	if got.ID != task.ID || got.Title != "Final" || got.Description != task.Description {
		t.Errorf("unexpected task after edit %+v", got)
	}
}

func TestEditCommand_NothingToChange(t *testing.T) {
	f := newFixture(t, true)
	f.addTask("Draft", service.Today())

	_, stderr, code := runCommand(t, &commands.EditCmd{}, f.app, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: nothing to change\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestEditCommand_AllowsPastDueDate(t *testing.T) {
	f := newFixture(t, true)
	f.addTask("Draft", service.Today())
	past := service.Today().AddDays(-7)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, f.app, []string{"--due", past.String(), "1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if got := f.svc.Tasks()[0].DueDate; got != past {
		t.Errorf("expected due %s, got %s", past, got)
	}
}

func TestDoneCommand_Toggles(t *testing.T) {
	f := newFixture(t, true)
	f.addTask("Laundry", service.Today())

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, f.app, []string{"1"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "completed\n" {
		t.Errorf("expected 'completed\\n', got %q", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.DoneCmd{}, f.app, []string{"1"}, false)
	if stdout != "pending\n" {
		t.Errorf("expected 'pending\\n', got %q", stdout)
	}
	if n := f.svc.Calls(testutil.MethodUpdateTask); n != 2 {
		t.Errorf("expected 2 update requests, got %d", n)
	}
}

func TestDoneCommand_RefErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing", nil, "error: task reference required\n"},
		{"out of range", []string{"5"}, "error: task number out of range: 5\n"},
		{"zero", []string{"0"}, "error: task number out of range: 0\n"},
		{"unknown id", []string{"nope"}, "error: task not found: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.addTask("Only", service.Today())

			_, stderr, code := runCommand(t, &commands.DoneCmd{}, f.app, tt.args, false)

			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, stderr)
			}
			if n := f.svc.Calls(testutil.MethodUpdateTask); n != 0 {
				t.Errorf("expected no update request, got %d", n)
			}
		})
	}
}

func TestRmCommand_ByNumber(t *testing.T) {
	f := newFixture(t, true)
	f.addTask("Keep", service.Today())
	f.addTask("Drop", service.Today())

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, f.app, []string{"2"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	tasks := f.svc.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Keep" {
		t.Errorf("unexpected remaining tasks %+v", tasks)
	}
	if got := f.app.Snapshot().Tasks.Tasks; len(got) != 1 || got[0].Title != "Keep" {
		t.Errorf("local collection not updated: %+v", got)
	}
}

func TestRmCommand_ByIDSkipsFetch(t *testing.T) {
	f := newFixture(t, true)
	task := f.addTask("Drop", service.Today())

	_, stderr, code := runCommand(t, &commands.RmCmd{}, f.app, []string{task.ID}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if n := f.svc.Calls(testutil.MethodListTasks); n != 0 {
		t.Errorf("expected no fetch, got %d", n)
	}
	if len(f.svc.Tasks()) != 0 {
		t.Error("task not deleted")
	}
}

func TestRmCommand_ServerNotFound(t *testing.T) {
	f := newFixture(t, true)

	_, stderr, code := runCommand(t, &commands.RmCmd{}, f.app, []string{"missing-id"}, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: Task not found\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand(t *testing.T) {
	f := newFixture(t, false)

	args := []string{"--email", "ada@example.com", "--password", "secret"}
	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, f.app, args, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "logged in as Ada <ada@example.com>\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !f.kv.Has(persist.KeyUser) {
		t.Error("expected user record to be saved")
	}

	// A second login is a no-op.
	stdout, _, code = runCommand(t, &commands.LoginCmd{}, f.app, args, false)
	if code != exitcode.Success || stdout != "already logged in as ada@example.com\n" {
		t.Errorf("unexpected second login result %d %q", code, stdout)
	}
	if n := f.svc.Calls(testutil.MethodLogin); n != 1 {
		t.Errorf("expected 1 login request, got %d", n)
	}
}

func TestLoginCommand_Failures(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"wrong password", []string{"--email", "ada@example.com", "--password", "nope"}, exitcode.AuthError, "error: auth error: Invalid email or password\n"},
		{"missing email", []string{"--password", "secret"}, exitcode.UserError, "error: email required\n"},
		{"missing password", []string{"--email", "ada@example.com"}, exitcode.UserError, "error: password required\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)

			stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, f.app, tt.args, false)

			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
			if stderr != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, stderr)
			}
			if f.kv.Has(persist.KeyUser) {
				t.Error("failed login must not save a user record")
			}
		})
	}
}

func TestRegisterCommand(t *testing.T) {
	f := newFixture(t, false)

	args := []string{"--name", "Grace", "--email", "grace@example.com", "--password", "pw"}
	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, f.app, args, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "logged in as Grace <grace@example.com>\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestRegisterCommand_Duplicate(t *testing.T) {
	f := newFixture(t, false)

	args := []string{"--name", "Ada", "--email", "ada@example.com", "--password", "pw"}
	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, f.app, args, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: User already exists\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLogoutCommand(t *testing.T) {
	f := newFixture(t, true)
	f.addTask("Private", service.Today())
	if _, code := fetch(t, f); code != exitcode.Success {
		t.Fatal("fetch failed")
	}

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, f.app, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if f.kv.Has(persist.KeyUser) {
		t.Error("expected user record to be removed")
	}
	st := f.app.Snapshot()
	if st.Session.Authenticated() {
		t.Error("expected no session")
	}
	if len(st.Tasks.Tasks) != 0 {
		t.Errorf("expected tasks cleared after logout, got %d", len(st.Tasks.Tasks))
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	f := newFixture(t, false)

	stdout, _, code := runCommand(t, &commands.LogoutCmd{}, f.app, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", stdout)
	}
	if n := f.svc.Calls(testutil.MethodLogout); n != 0 {
		t.Errorf("expected no logout request, got %d", n)
	}
}

func TestWhoamiCommand(t *testing.T) {
	f := newFixture(t, true)

	stdout, _, code := runCommand(t, &commands.WhoamiCmd{}, f.app, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "Ada <ada@example.com>\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestProfileCommand(t *testing.T) {
	f := newFixture(t, true)

	stdout, stderr, code := runCommand(t, &commands.ProfileCmd{}, f.app, []string{"--name", "Ada L."}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "Ada L. <ada@example.com>\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if got := f.app.Snapshot().Session.User.Name; got != "Ada L." {
		t.Errorf("expected session name updated, got %q", got)
	}
}

func TestProfileCommand_PasswordMismatch(t *testing.T) {
	f := newFixture(t, true)

	args := []string{"--current-password", "secret", "--new-password", "a", "--confirm-password", "b"}
	_, stderr, code := runCommand(t, &commands.ProfileCmd{}, f.app, args, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: new passwords do not match\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := f.svc.Calls(testutil.MethodUpdateProfile); n != 0 {
		t.Errorf("expected no request, got %d", n)
	}
}

func TestThemeCommand(t *testing.T) {
	f := newFixture(t, false)

	stdout, _, _ := runCommand(t, &commands.ThemeCmd{}, f.app, nil, false)
	if stdout != "light\n" {
		t.Errorf("expected light, got %q", stdout)
	}

	stdout, _, code := runCommand(t, &commands.ThemeCmd{}, f.app, []string{"toggle"}, false)
	if code != exitcode.Success || stdout != "dark\n" {
		t.Errorf("expected dark after toggle, got %d %q", code, stdout)
	}
	if !f.kv.Has(persist.KeyTheme) {
		t.Error("expected theme record to be saved")
	}

	stdout, _, _ = runCommand(t, &commands.ThemeCmd{}, f.app, []string{"light"}, false)
	if stdout != "light\n" {
		t.Errorf("expected light, got %q", stdout)
	}

	_, stderr, code := runCommand(t, &commands.ThemeCmd{}, f.app, []string{"sepia"}, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid theme: sepia\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestConfigCommand(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	var out, errOut bytes.Buffer
	code := (&commands.ConfigCmd{}).Run(context.Background(), cfg, nil, nil, &out, &errOut)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(out.String(), "fetch_policy: completion") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func fetch(t *testing.T, f *fixture) (dispatch.Result, int) {
	t.Helper()
	r, err := f.app.Run(context.Background(), dispatch.FetchTasks{})
	if err != nil || !r.OK() {
		return r, exitcode.BackendError
	}
	return r, exitcode.Success
}

func TestRegistry(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.ListCmd{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&commands.ListCmd{}); err == nil {
		t.Error("expected duplicate name to fail")
	}

	cmd, ok := r.Find("LS")
	if !ok || cmd.Name() != "list" {
		t.Errorf("expected alias lookup to find list, got %v %v", cmd, ok)
	}
	if _, ok := r.Find("rm"); ok {
		t.Error("unexpected command rm")
	}
	if n := len(r.All()); n != 1 {
		t.Errorf("expected 1 command, got %d", n)
	}
}

func TestHelpCommand_MarksLoginRequired(t *testing.T) {
	stdout, _, _ := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	if !strings.Contains(stdout, "list, ls") {
		t.Errorf("expected aliases in help, got %q", stdout)
	}
	if !strings.Contains(stdout, "Delete a task (requires login)") {
		t.Errorf("expected login marker for rm, got %q", stdout)
	}
}
