// Package app wires the stores and the dispatcher into one state object.
package app

import (
	"context"

	"tasksync/internal/dispatch"
	"tasksync/internal/logging"
	"tasksync/internal/persist"
	"tasksync/internal/prefs"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/tasks"
)

// Options configures New.
type Options struct {
	FetchPolicy tasks.FetchPolicy
	Theme       prefs.Theme
	Logger      logging.Logger
	Dispatch    []dispatch.Option
}

// RootState is a snapshot of every store.
type RootState struct {
	Session session.State
	Tasks   tasks.State
	Prefs   prefs.State
}

// App owns the stores. Collaborators read snapshots and change state only
// through Dispatch.
type App struct {
	Session    *session.Store
	Tasks      *tasks.Store
	Prefs      *prefs.Store
	Dispatcher *dispatch.Dispatcher

	unsubs []func()
}

// New builds the stores over svc and kv. The session is hydrated from kv
// before New returns.
func New(ctx context.Context, svc service.Service, kv persist.Store, opts Options) *App {
	log := logging.OrDiscard(opts.Logger)

	topts := []tasks.Option{tasks.WithLogger(log)}
	if opts.FetchPolicy != "" {
		topts = append(topts, tasks.WithFetchPolicy(opts.FetchPolicy))
	}

	a := &App{
		Session: session.New(ctx, svc, kv, log),
		Tasks:   tasks.New(svc, topts...),
		Prefs:   prefs.New(ctx, kv, opts.Theme, log),
	}

	dopts := append([]dispatch.Option{dispatch.WithLogger(log)}, opts.Dispatch...)
	a.Dispatcher = dispatch.New(a.Session, a.Tasks, a.Prefs, dopts...)

	// The collection belongs to the signed-in user; drop it when the
	// session ends.
	a.unsubs = append(a.unsubs, a.Session.Subscribe(func(st session.State) {
		if !st.Authenticated() && st.Status == session.StatusIdle && len(a.Tasks.Snapshot().Tasks) > 0 {
			a.Tasks.Reset()
		}
	}))
	return a
}

// Dispatch forwards cmd to the dispatcher.
func (a *App) Dispatch(ctx context.Context, cmd dispatch.Command) *dispatch.Future {
	return a.Dispatcher.Dispatch(ctx, cmd)
}

// Run dispatches cmd and waits for its result.
func (a *App) Run(ctx context.Context, cmd dispatch.Command) (dispatch.Result, error) {
	return a.Dispatcher.Run(ctx, cmd)
}

// Snapshot returns the state of all stores.
func (a *App) Snapshot() RootState {
	return RootState{
		Session: a.Session.Snapshot(),
		Tasks:   a.Tasks.Snapshot(),
		Prefs:   a.Prefs.Snapshot(),
	}
}

// Subscribe calls fn with the root state after any store changes.
func (a *App) Subscribe(fn func(RootState)) (unsubscribe func()) {
	notify := func() { fn(a.Snapshot()) }
	unsubs := []func(){
		a.Session.Subscribe(func(session.State) { notify() }),
		a.Tasks.Subscribe(func(tasks.State) { notify() }),
		a.Prefs.Subscribe(func(prefs.State) { notify() }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Close waits for in-flight operations to be applied. Commands dispatched
// afterwards fail with dispatch.ErrClosed.
// The record store stays open; it belongs to the caller.
func (a *App) Close() {
	a.Dispatcher.Close()
	for _, u := range a.unsubs {
		u()
	}
}
