package dispatch

import (
	"context"
	"strings"

	"tasksync/internal/failure"
	"tasksync/internal/prefs"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/state"
	"tasksync/internal/tasks"
)

// Command is a request to perform one operation.
// The set of commands is closed; see the types in this file.
type Command interface {
	// Op returns the operation name used in logs and results.
	Op() string

	// begin validates the command, applies the pending transition and
	// returns the rest of the operation.
	begin(d *Dispatcher) (plan, error)
}

type plan struct {
	run    func(ctx context.Context) (any, error)
	inline bool // synchronous; no goroutine
}

func async[T any](op state.Op[T]) plan {
	return plan{run: func(ctx context.Context) (any, error) {
		v, err := op(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}}
}

func inline(fn func() any) plan {
	return plan{
		run:    func(context.Context) (any, error) { return fn(), nil },
		inline: true,
	}
}

// Login authenticates. Result value: service.User.
type Login struct {
	Email    string
	Password string
}

func (Login) Op() string { return "login" }

func (c Login) begin(d *Dispatcher) (plan, error) {
	if err := session.ValidateCredentials(session.FamilyLogin, "", c.Email, c.Password); err != nil {
		return plan{}, err
	}
	return async(d.session.BeginLogin(strings.TrimSpace(c.Email), c.Password)), nil
}

// Register creates an account and signs in. Result value: service.User.
type Register struct {
	Name     string
	Email    string
	Password string
}

func (Register) Op() string { return "register" }

func (c Register) begin(d *Dispatcher) (plan, error) {
	if err := session.ValidateCredentials(session.FamilyRegister, c.Name, c.Email, c.Password); err != nil {
		return plan{}, err
	}
	return async(d.session.BeginRegister(strings.TrimSpace(c.Name), strings.TrimSpace(c.Email), c.Password)), nil
}

// Logout ends the session. Result value: struct{}.
type Logout struct{}

func (Logout) Op() string { return "logout" }

func (Logout) begin(d *Dispatcher) (plan, error) {
	return async(d.session.BeginLogout()), nil
}

// UpdateProfile changes the user's name and optionally the password.
// ConfirmPassword must equal NewPassword when a new password is set; it is
// checked here and never sent. Result value: service.User.
type UpdateProfile struct {
	Name            string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

func (UpdateProfile) Op() string { return "update_profile" }

func (c UpdateProfile) begin(d *Dispatcher) (plan, error) {
	update := service.ProfileUpdate{
		Name:            strings.TrimSpace(c.Name),
		CurrentPassword: c.CurrentPassword,
		NewPassword:     c.NewPassword,
	}
	if err := session.ValidateProfile(update, c.ConfirmPassword); err != nil {
		return plan{}, err
	}
	return async(d.session.BeginUpdateProfile(update)), nil
}

// FetchTasks reloads the collection. Result value: []service.Task.
type FetchTasks struct{}

func (FetchTasks) Op() string { return "fetch_tasks" }

func (FetchTasks) begin(d *Dispatcher) (plan, error) {
	return async(d.tasks.BeginFetch()), nil
}

// CreateTask creates a task. The due date may not be before today.
// Result value: service.Task.
type CreateTask struct {
	Fields service.TaskFields
}

func (CreateTask) Op() string { return "create_task" }

func (c CreateTask) begin(d *Dispatcher) (plan, error) {
	if err := tasks.ValidateNew(c.Fields, service.DateOf(d.now())); err != nil {
		return plan{}, err
	}
	return async(d.tasks.BeginCreate(c.Fields)), nil
}

// UpdateTask sends the set fields of Patch. Result value: service.Task.
type UpdateTask struct {
	ID    string
	Patch service.TaskPatch
}

func (UpdateTask) Op() string { return "update_task" }

func (c UpdateTask) begin(d *Dispatcher) (plan, error) {
	if err := tasks.ValidatePatch(c.ID, c.Patch); err != nil {
		return plan{}, err
	}
	return async(d.tasks.BeginUpdate(c.ID, c.Patch)), nil
}

// ToggleTask flips a task between pending and completed.
// Result value: service.Task.
type ToggleTask struct {
	ID string
}

func (ToggleTask) Op() string { return "toggle_task" }

func (c ToggleTask) begin(d *Dispatcher) (plan, error) {
	op, err := d.tasks.BeginToggle(c.ID)
	if err != nil {
		return plan{}, err
	}
	return async(op), nil
}

// DeleteTask deletes a task. Result value: the deleted id.
type DeleteTask struct {
	ID string
}

func (DeleteTask) Op() string { return "delete_task" }

func (c DeleteTask) begin(d *Dispatcher) (plan, error) {
	if strings.TrimSpace(c.ID) == "" {
		return plan{}, failure.NewValidation(string(tasks.FamilyDelete), "task id required")
	}
	return async(d.tasks.BeginDelete(c.ID)), nil
}

// SetTheme sets the theme. Result value: prefs.Theme.
type SetTheme struct {
	Theme prefs.Theme
}

func (SetTheme) Op() string { return "set_theme" }

func (c SetTheme) begin(d *Dispatcher) (plan, error) {
	t, err := prefs.ParseTheme(string(c.Theme))
	if err != nil {
		return plan{}, failure.NewValidation("theme", "%v", err)
	}
	return inline(func() any { return d.prefs.Set(t) }), nil
}

// ToggleTheme switches between light and dark. Result value: prefs.Theme.
type ToggleTheme struct{}

func (ToggleTheme) Op() string { return "toggle_theme" }

func (ToggleTheme) begin(d *Dispatcher) (plan, error) {
	return inline(func() any { return d.prefs.Toggle() }), nil
}
