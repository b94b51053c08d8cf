// Package tasks holds the to-do collection and applies server results to it.
//
// No operation is optimistic: the collection changes only after the server
// confirms, and always takes the server's canonical record.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"tasksync/internal/failure"
	"tasksync/internal/logging"
	"tasksync/internal/service"
	"tasksync/internal/state"
)

// Family identifies an operation family for error bookkeeping.
type Family string

const (
	FamilyFetch  Family = "fetch"
	FamilyCreate Family = "create"
	FamilyUpdate Family = "update"
	FamilyDelete Family = "delete"
)

var fallbackMessages = map[Family]string{
	FamilyFetch:  "Failed to fetch tasks",
	FamilyCreate: "Failed to create task",
	FamilyUpdate: "Failed to update task",
	FamilyDelete: "Failed to delete task",
}

// FetchPolicy decides what happens to fetch results that arrive out of
// issue order.
type FetchPolicy string

const (
	// FetchCompletionOrder applies every fetch result as it arrives; the
	// last fetch to complete wins.
	FetchCompletionOrder FetchPolicy = "completion"

	// FetchLatestIssued discards a fetch result once a later-issued fetch
	// has been applied; the last fetch to be issued wins.
	FetchLatestIssued FetchPolicy = "latest"
)

// ParseFetchPolicy parses a policy name. Empty means FetchCompletionOrder.
func ParseFetchPolicy(s string) (FetchPolicy, error) {
	switch FetchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FetchCompletionOrder:
		return FetchCompletionOrder, nil
	case FetchLatestIssued:
		return FetchLatestIssued, nil
	}
	return "", fmt.Errorf("invalid fetch policy: %s", s)
}

// OpError is a failure recorded on the store.
type OpError struct {
	Family  Family
	Kind    failure.Kind
	Message string
	TaskID  string // set for item operations
}

// State is a snapshot of the collection.
type State struct {
	Tasks   []service.Task
	Loading bool
	Error   *OpError

	fetching   int
	appliedSeq uint64
}

// Find returns the task with id.
func (s State) Find(id string) (service.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

func cloneState(s State) State {
	s.Tasks = append([]service.Task(nil), s.Tasks...)
	if s.Error != nil {
		e := *s.Error
		s.Error = &e
	}
	return s
}

// Option configures a Store.
type Option func(*Store)

// WithFetchPolicy sets the policy for out-of-order fetch results.
func WithFetchPolicy(p FetchPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store is the task store.
type Store struct {
	c      *state.Container[State]
	svc    service.Service
	log    logging.Logger
	policy FetchPolicy
	seq    atomic.Uint64
}

// New creates an empty task store.
func New(svc service.Service, opts ...Option) *Store {
	s := &Store{
		c:      state.NewContainer(State{}, cloneState),
		svc:    svc,
		policy: FetchCompletionOrder,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDiscard(s.log).WithField("store", "tasks")
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State { return s.c.Snapshot() }

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) { return s.c.Subscribe(fn) }

// Reset empties the collection, e.g. after logout.
func (s *Store) Reset() {
	s.c.Apply(func(st *State) {
		st.Tasks = nil
		st.Error = nil
	})
}

// BeginFetch tags a fetch with the next sequence number, marks the
// collection loading and returns the round trip.
func (s *Store) BeginFetch() state.Op[[]service.Task] {
	seq := s.seq.Add(1)
	s.c.Apply(func(st *State) {
		st.fetching++
		st.Loading = true
		clearFamily(st, FamilyFetch)
	})

	return func(ctx context.Context) ([]service.Task, error) {
		list, err := s.svc.ListTasks(ctx)
		var fe *failure.Error
		if err != nil {
			fe = failure.From(string(FamilyFetch), err, fallbackMessages[FamilyFetch])
		}

		s.c.Apply(func(st *State) {
			st.fetching--
			st.Loading = st.fetching > 0

			if s.policy == FetchLatestIssued && seq < st.appliedSeq {
				s.log.WithFields(logrus.Fields{"seq": seq, "applied_seq": st.appliedSeq}).Debug("discarding superseded fetch")
				return
			}
			st.appliedSeq = max(st.appliedSeq, seq)

			if fe != nil {
				st.Error = &OpError{Family: FamilyFetch, Kind: fe.Kind, Message: fe.Message}
				return
			}
			st.Tasks = append([]service.Task(nil), list...)
		})

		if fe != nil {
			s.logFailure(FamilyFetch, "", fe)
			return nil, fe
		}
		return list, nil
	}
}

// Fetch replaces the collection with the server list.
func (s *Store) Fetch(ctx context.Context) ([]service.Task, error) {
	return s.BeginFetch()(ctx)
}

// BeginCreate returns the create round trip. Callers check ValidateNew
// first; this does not enter any pending state.
func (s *Store) BeginCreate(fields service.TaskFields) state.Op[service.Task] {
	s.c.Apply(func(st *State) { clearFamily(st, FamilyCreate) })

	return func(ctx context.Context) (service.Task, error) {
		task, err := s.svc.CreateTask(ctx, fields)
		if err != nil {
			return service.Task{}, s.fail(FamilyCreate, "", err)
		}

		s.c.Apply(func(st *State) {
			// A fetch that completed meanwhile may already hold the record.
			if i := indexOf(st.Tasks, task.ID); i >= 0 {
				st.Tasks[i] = task
				return
			}
			st.Tasks = append(st.Tasks, task)
		})
		return task, nil
	}
}

// Create creates a task and appends the server record.
func (s *Store) Create(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	return s.BeginCreate(fields)(ctx)
}

// BeginUpdate returns the update round trip.
func (s *Store) BeginUpdate(id string, patch service.TaskPatch) state.Op[service.Task] {
	s.c.Apply(func(st *State) { clearFamily(st, FamilyUpdate) })

	return func(ctx context.Context) (service.Task, error) {
		task, err := s.svc.UpdateTask(ctx, id, patch)
		if err != nil {
			return service.Task{}, s.fail(FamilyUpdate, id, err)
		}

		s.c.Apply(func(st *State) {
			// Overwrite in place; a record deleted meanwhile stays deleted.
			if i := indexOf(st.Tasks, task.ID); i >= 0 {
				st.Tasks[i] = task
			}
		})
		return task, nil
	}
}

// Update sends patch and replaces the record in place.
func (s *Store) Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	return s.BeginUpdate(id, patch)(ctx)
}

// BeginToggle returns the update round trip that flips the status of id
// as currently stored. An unknown id fails validation and starts nothing.
func (s *Store) BeginToggle(id string) (state.Op[service.Task], error) {
	task, ok := s.Snapshot().Find(id)
	if !ok {
		return nil, failure.NewValidation(string(FamilyUpdate), "task not found: %s", id)
	}
	next := task.Status.Opposite()
	return s.BeginUpdate(id, service.TaskPatch{Status: &next}), nil
}

// Toggle flips the status of id.
func (s *Store) Toggle(ctx context.Context, id string) (service.Task, error) {
	op, err := s.BeginToggle(id)
	if err != nil {
		return service.Task{}, err
	}
	return op(ctx)
}

// BeginDelete returns the delete round trip. On success the entry with id
// is removed, whatever the server echoes back.
func (s *Store) BeginDelete(id string) state.Op[string] {
	s.c.Apply(func(st *State) { clearFamily(st, FamilyDelete) })

	return func(ctx context.Context) (string, error) {
		echoed, err := s.svc.DeleteTask(ctx, id)
		if err != nil {
			return "", s.fail(FamilyDelete, id, err)
		}
		if echoed != "" && echoed != id {
			s.log.WithFields(logrus.Fields{"task_id": id, "echoed_id": echoed}).Debug("delete response names another id")
		}

		s.c.Apply(func(st *State) {
			if i := indexOf(st.Tasks, id); i >= 0 {
				st.Tasks = append(st.Tasks[:i:i], st.Tasks[i+1:]...)
			}
		})
		return id, nil
	}
}

// Delete deletes a task and removes it after server confirmation.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	return s.BeginDelete(id)(ctx)
}

func (s *Store) fail(f Family, id string, err error) *failure.Error {
	fe := failure.From(string(f), err, fallbackMessages[f])
	s.c.Apply(func(st *State) {
		st.Error = &OpError{Family: f, Kind: fe.Kind, Message: fe.Message, TaskID: id}
	})
	s.logFailure(f, id, fe)
	return fe
}

func (s *Store) logFailure(f Family, id string, fe *failure.Error) {
	entry := s.log.WithFields(logrus.Fields{"op": f, "kind": fe.Kind.String()})
	if id != "" {
		entry = entry.WithField("task_id", id)
	}
	entry.Debug(fe.Message)
}

func clearFamily(st *State, f Family) {
	if st.Error != nil && st.Error.Family == f {
		st.Error = nil
	}
}

func indexOf(tasks []service.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
