// Package dispatch turns commands into asynchronous operations against the
// session, task and preference stores.
//
// Dispatch is the only way collaborators change state. Each command becomes
// exactly one operation; the returned Future resolves when the operation's
// result or failure has been applied to its store.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tasksync/internal/failure"
	"tasksync/internal/logging"
	"tasksync/internal/prefs"
	"tasksync/internal/session"
	"tasksync/internal/tasks"
)

// Dispatcher funnels commands into the stores.
type Dispatcher struct {
	session *session.Store
	tasks   *tasks.Store
	prefs   *prefs.Store
	log     logging.Logger
	now     func() time.Time

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup
}

// ErrClosed is the failure cause of commands dispatched after Close.
var ErrClosed = errors.New("dispatcher closed")

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithClock sets the clock used for date preconditions.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher over the given stores.
func New(sess *session.Store, ts *tasks.Store, ps *prefs.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		session: sess,
		tasks:   ts,
		prefs:   ps,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logging.OrDiscard(d.log)
	return d
}

// Dispatch starts the operation for cmd and returns its Future.
//
// Validation failures resolve the Future immediately without touching any
// store or issuing a request. Otherwise the store's pending transition is
// applied before Dispatch returns, so operations are sequenced in issue
// order, and the round trip continues in the background. Cancelling ctx
// after Dispatch returns does not cancel the operation.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) *Future {
	opID := uuid.NewString()
	log := d.log.WithFields(logrus.Fields{"op": cmd.Op(), "op_id": opID})
	f := newFuture(opID, cmd.Op())

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		f.resolve(nil, &failure.Error{Kind: failure.Validation, Op: cmd.Op(), Message: ErrClosed.Error(), Err: ErrClosed})
		return f
	}
	d.wg.Add(1)
	d.mu.Unlock()

	p, err := cmd.begin(d)
	if err != nil {
		d.wg.Done()
		log.WithError(err).Debug("command rejected")
		f.resolve(nil, err)
		return f
	}

	if p.inline {
		v, err := p.run(ctx)
		d.wg.Done()
		f.resolve(v, err)
		return f
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		start := time.Now()
		log.Debug("operation started")

		v, err := p.run(ctx)

		entry := log.WithField("duration", time.Since(start))
		if err != nil {
			entry.WithError(err).Debug("operation failed")
		} else {
			entry.Debug("operation completed")
		}
		f.resolve(v, err)
	}()
	return f
}

// Run dispatches cmd and waits for its result.
// If ctx ends first the operation keeps running and ctx's error is returned.
func (d *Dispatcher) Run(ctx context.Context, cmd Command) (Result, error) {
	return d.Dispatch(ctx, cmd).Await(ctx)
}

// Close stops accepting commands and blocks until every
// dispatched operation has been applied. Commands dispatched after Close
// resolve with ErrClosed. Close may be called more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

// Result is the terminal outcome of an operation: either Value or Failure.
type Result struct {
	OpID    string
	Command string
	Value   any
	Failure *failure.Error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Value returns the result value as T.
func Value[T any](r Result) (T, bool) {
	v, ok := r.Value.(T)
	return v, ok
}

// Future resolves to the Result of one operation.
type Future struct {
	done chan struct{}
	res  Result
}

func newFuture(opID, name string) *Future {
	return &Future{
		done: make(chan struct{}),
		res:  Result{OpID: opID, Command: name},
	}
}

func (f *Future) resolve(v any, err error) {
	if err != nil {
		f.res.Failure = failure.From(f.res.Command, err, "")
	} else {
		f.res.Value = v
	}
	close(f.done)
}

// OpID returns the operation id used in log fields.
func (f *Future) OpID() string { return f.res.OpID }

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result blocks until the operation finishes.
func (f *Future) Result() Result {
	<-f.done
	return f.res
}

// Await waits for the result or for ctx to end.
func (f *Future) Await(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
