// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"tasksync/internal/failure"
	"tasksync/internal/service"
)

// Method names used for error injection, holds and call counting.
const (
	MethodLogin         = "Login"
	MethodRegister      = "Register"
	MethodLogout        = "Logout"
	MethodUpdateProfile = "UpdateProfile"
	MethodListTasks     = "ListTasks"
	MethodCreateTask    = "CreateTask"
	MethodUpdateTask    = "UpdateTask"
	MethodDeleteTask    = "DeleteTask"
)

type account struct {
	user     service.User
	password string
}

// Hold blocks one call of a method until released.
type Hold struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

// Started is closed once the held call has reached the fake.
func (h *Hold) Started() <-chan struct{} { return h.started }

// Release lets the held call continue. The response is computed from the
// fake's state at release time.
func (h *Hold) Release() { h.once.Do(func() { close(h.release) }) }

// FakeService is an in-memory implementation of service.Service for testing.
// It behaves like the remote API: it owns the canonical records and assigns
// ids and order.
type FakeService struct {
	mu        sync.Mutex
	accounts  map[string]*account // email -> account
	current   *account            // signed-in account (the session cookie)
	tasks     map[string][]service.Task
	nextTask  int
	nextOrder int

	errs  map[string]error
	holds map[string][]*Hold
	calls map[string]int
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		accounts: make(map[string]*account),
		tasks:    make(map[string][]service.Task),
		errs:     make(map[string]error),
		holds:    make(map[string][]*Hold),
		calls:    make(map[string]int),
	}
}

// AddUser registers an account without signing in.
func (f *FakeService) AddUser(name, email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc := &account{
		user:     service.User{ID: uuid.NewString(), Name: name, Email: email},
		password: password,
	}
	f.accounts[email] = acc
	return acc.user
}

// SignIn makes email the signed-in account, as if a session cookie existed.
func (f *FakeService) SignIn(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.accounts[email]
}

// AddTask stores a task for the signed-in account and returns the record.
func (f *FakeService) AddTask(fields service.TaskFields) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(fields)
}

// Tasks returns the canonical tasks of the signed-in account.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	return append([]service.Task(nil), f.tasks[f.current.user.ID]...)
}

// SetErr makes every call of method fail with err until cleared with nil.
func (f *FakeService) SetErr(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// HoldNext blocks the next call of method until the returned hold is released.
func (f *FakeService) HoldNext(method string) *Hold {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &Hold{started: make(chan struct{}), release: make(chan struct{})}
	f.holds[method] = append(f.holds[method], h)
	return h
}

// Calls returns how many times method has been called.
func (f *FakeService) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// enter counts the call, waits on a pending hold and returns the injected
// error, if any. On return f.mu is held.
func (f *FakeService) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	var h *Hold
	if q := f.holds[method]; len(q) > 0 {
		h, f.holds[method] = q[0], q[1:]
	}
	f.mu.Unlock()

	if h != nil {
		close(h.started)
		select {
		case <-h.release:
		case <-ctx.Done():
			f.mu.Lock()
			return ctx.Err()
		}
	}

	f.mu.Lock()
	return f.errs[method]
}

func unauthorized() error {
	return failure.NewRejected("", http.StatusUnauthorized, "Not authorized, no token")
}

func notFound(what string) error {
	return failure.NewRejected("", http.StatusNotFound, what+" not found")
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.User, error) {
	err := f.enter(ctx, MethodLogin)
	defer f.mu.Unlock()
	if err != nil {
		return service.User{}, err
	}
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return service.User{}, failure.NewRejected("", http.StatusUnauthorized, "Invalid email or password")
	}
	f.current = acc
	return acc.user, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, name, email, password string) (service.User, error) {
	err := f.enter(ctx, MethodRegister)
	defer f.mu.Unlock()
	if err != nil {
		return service.User{}, err
	}
	if _, exists := f.accounts[email]; exists {
		return service.User{}, failure.NewRejected("", http.StatusBadRequest, "User already exists")
	}
	acc := &account{
		user:     service.User{ID: uuid.NewString(), Name: name, Email: email},
		password: password,
	}
	f.accounts[email] = acc
	f.current = acc
	return acc.user, nil
}

// Logout implements service.Service.
func (f *FakeService) Logout(ctx context.Context) error {
	err := f.enter(ctx, MethodLogout)
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	f.current = nil
	return nil
}

// UpdateProfile implements service.Service.
func (f *FakeService) UpdateProfile(ctx context.Context, update service.ProfileUpdate) (service.User, error) {
	err := f.enter(ctx, MethodUpdateProfile)
	defer f.mu.Unlock()
	if err != nil {
		return service.User{}, err
	}
	if f.current == nil {
		return service.User{}, unauthorized()
	}
	if update.NewPassword != "" {
		if update.CurrentPassword != f.current.password {
			return service.User{}, failure.NewRejected("", http.StatusBadRequest, "Current password is incorrect")
		}
		f.current.password = update.NewPassword
	}
	if update.Name != "" {
		f.current.user.Name = update.Name
	}
	return f.current.user, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	err := f.enter(ctx, MethodListTasks)
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if f.current == nil {
		return nil, unauthorized()
	}
	return append([]service.Task{}, f.tasks[f.current.user.ID]...), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	err := f.enter(ctx, MethodCreateTask)
	defer f.mu.Unlock()
	if err != nil {
		return service.Task{}, err
	}
	if f.current == nil {
		return service.Task{}, unauthorized()
	}
	return f.insertLocked(fields), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	err := f.enter(ctx, MethodUpdateTask)
	defer f.mu.Unlock()
	if err != nil {
		return service.Task{}, err
	}
	if f.current == nil {
		return service.Task{}, unauthorized()
	}
	tasks := f.tasks[f.current.user.ID]
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i] = patch.Apply(tasks[i])
			return tasks[i], nil
		}
	}
	return service.Task{}, notFound("Task")
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) (string, error) {
	err := f.enter(ctx, MethodDeleteTask)
	defer f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if f.current == nil {
		return "", unauthorized()
	}
	uid := f.current.user.ID
	tasks := f.tasks[uid]
	for i, t := range tasks {
		if t.ID == id {
			f.tasks[uid] = append(tasks[:i:i], tasks[i+1:]...)
			return id, nil
		}
	}
	return "", notFound("Task")
}

func (f *FakeService) insertLocked(fields service.TaskFields) service.Task {
	if f.current == nil {
		panic("testutil: AddTask requires a signed-in account")
	}
	f.nextTask++
	f.nextOrder++
	t := service.Task{
		ID:          fmt.Sprintf("task-%d", f.nextTask),
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
		Status:      fields.Status,
		DueDate:     fields.DueDate,
		Order:       f.nextOrder,
	}
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	uid := f.current.user.ID
	f.tasks[uid] = append(f.tasks[uid], t)
	return t
}
