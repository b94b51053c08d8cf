// Package session holds the authenticated user and the authentication
// lifecycle, and keeps the durable user record in step with it.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"tasksync/internal/failure"
	"tasksync/internal/logging"
	"tasksync/internal/persist"
	"tasksync/internal/service"
	"tasksync/internal/state"
)

// AuthStatus is the authentication lifecycle status.
type AuthStatus string

const (
	StatusIdle    AuthStatus = "idle"
	StatusPending AuthStatus = "pending"
	StatusError   AuthStatus = "error"
)

// Family identifies an operation family. An error recorded by one family
// is cleared only by the next attempt of the same family.
type Family string

const (
	FamilyLogin    Family = "login"
	FamilyRegister Family = "register"
	FamilyProfile  Family = "profile"
	FamilyLogout   Family = "logout"
)

var fallbackMessages = map[Family]string{
	FamilyLogin:    "Login failed",
	FamilyRegister: "Registration failed",
	FamilyProfile:  "Profile update failed",
	FamilyLogout:   "Logout failed",
}

// OpError is a failure recorded on the store.
type OpError struct {
	Family  Family
	Kind    failure.Kind
	Message string
}

// State is a snapshot of the session.
type State struct {
	User      *service.User
	Status    AuthStatus
	LastError *OpError

	inflight int
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool { return s.User != nil }

func cloneState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	if s.LastError != nil {
		e := *s.LastError
		s.LastError = &e
	}
	return s
}

// Store is the session store.
type Store struct {
	c   *state.Container[State]
	svc service.Service
	kv  persist.Store
	log logging.Logger

	// commit covers writing the durable record and applying the matching
	// in-memory change, so the two are never reordered between operations.
	commit sync.Mutex
}

// New creates a session store hydrated from the persisted user record.
// A missing or unreadable record means no session.
func New(ctx context.Context, svc service.Service, kv persist.Store, log logging.Logger) *Store {
	log = logging.OrDiscard(log).WithField("store", "session")

	initial := State{Status: StatusIdle}
	var user service.User
	err := persist.LoadJSON(ctx, kv, persist.KeyUser, &user)
	switch {
	case err == nil && user.ID != "":
		initial.User = &user
		log.WithField("user_id", user.ID).Debug("restored session")
	case err == nil:
		log.Warn("ignoring session record without user id")
	case errors.Is(err, persist.ErrNotFound):
	default:
		log.WithError(err).Warn("ignoring unreadable session record")
	}

	return &Store{
		c:   state.NewContainer(initial, cloneState),
		svc: svc,
		kv:  kv,
		log: log,
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State { return s.c.Snapshot() }

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) { return s.c.Subscribe(fn) }

// BeginLogin enters pending and returns the login round trip.
func (s *Store) BeginLogin(email, password string) state.Op[service.User] {
	s.begin(FamilyLogin)
	return func(ctx context.Context) (service.User, error) {
		user, err := s.svc.Login(ctx, email, password)
		return s.completeAuth(ctx, FamilyLogin, user, err)
	}
}

// Login authenticates and blocks until the result is applied.
func (s *Store) Login(ctx context.Context, email, password string) (service.User, error) {
	return s.BeginLogin(email, password)(ctx)
}

// BeginRegister enters pending and returns the registration round trip.
func (s *Store) BeginRegister(name, email, password string) state.Op[service.User] {
	s.begin(FamilyRegister)
	return func(ctx context.Context) (service.User, error) {
		user, err := s.svc.Register(ctx, name, email, password)
		return s.completeAuth(ctx, FamilyRegister, user, err)
	}
}

// Register creates an account and blocks until the result is applied.
func (s *Store) Register(ctx context.Context, name, email, password string) (service.User, error) {
	return s.BeginRegister(name, email, password)(ctx)
}

// BeginUpdateProfile enters pending and returns the profile round trip.
func (s *Store) BeginUpdateProfile(update service.ProfileUpdate) state.Op[service.User] {
	s.begin(FamilyProfile)
	return func(ctx context.Context) (service.User, error) {
		user, err := s.svc.UpdateProfile(ctx, update)
		return s.completeAuth(ctx, FamilyProfile, user, err)
	}
}

// UpdateProfile changes the profile and blocks until the result is applied.
func (s *Store) UpdateProfile(ctx context.Context, update service.ProfileUpdate) (service.User, error) {
	return s.BeginUpdateProfile(update)(ctx)
}

// BeginLogout enters pending and returns the logout round trip.
// The remote call is always made. Only on success are the user and the
// durable record cleared.
func (s *Store) BeginLogout() state.Op[struct{}] {
	s.begin(FamilyLogout)
	return func(ctx context.Context) (struct{}, error) {
		if err := s.svc.Logout(ctx); err != nil {
			return struct{}{}, s.fail(FamilyLogout, failure.From(string(FamilyLogout), err, fallbackMessages[FamilyLogout]))
		}

		s.commit.Lock()
		defer s.commit.Unlock()
		if err := s.kv.Remove(ctx, persist.KeyUser); err != nil {
			return struct{}{}, s.fail(FamilyLogout, failure.NewPersistence(string(FamilyLogout), err))
		}
		s.settle(FamilyLogout, nil, func(st *State) { st.User = nil })
		return struct{}{}, nil
	}
}

// Logout ends the session and blocks until the result is applied.
func (s *Store) Logout(ctx context.Context) error {
	_, err := s.BeginLogout()(ctx)
	return err
}

func (s *Store) completeAuth(ctx context.Context, f Family, user service.User, err error) (service.User, error) {
	if err != nil {
		return service.User{}, s.fail(f, failure.From(string(f), err, fallbackMessages[f]))
	}

	s.commit.Lock()
	defer s.commit.Unlock()
	if err := persist.SaveJSON(ctx, s.kv, persist.KeyUser, user); err != nil {
		return service.User{}, s.fail(f, failure.NewPersistence(string(f), err))
	}
	s.settle(f, nil, func(st *State) {
		u := user
		st.User = &u
	})
	return user, nil
}

func (s *Store) begin(f Family) {
	s.c.Apply(func(st *State) {
		st.inflight++
		st.Status = StatusPending
		if st.LastError != nil && st.LastError.Family == f {
			st.LastError = nil
		}
	})
}

func (s *Store) fail(f Family, fe *failure.Error) *failure.Error {
	s.log.WithFields(logrus.Fields{"op": f, "kind": fe.Kind.String()}).Debug(fe.Message)
	s.settle(f, fe, nil)
	return fe
}

func (s *Store) settle(f Family, fe *failure.Error, apply func(*State)) {
	s.c.Apply(func(st *State) {
		st.inflight--
		if fe != nil {
			st.LastError = &OpError{Family: f, Kind: fe.Kind, Message: fe.Message}
		} else if apply != nil {
			apply(st)
		}

		switch {
		case st.inflight > 0:
			st.Status = StatusPending
		case fe != nil:
			st.Status = StatusError
		default:
			st.Status = StatusIdle
		}
	})
}

// ValidateProfile checks the caller-side preconditions of a profile update.
// confirm is the separately entered confirmation of NewPassword.
func ValidateProfile(update service.ProfileUpdate, confirm string) error {
	if strings.TrimSpace(update.Name) == "" {
		return failure.NewValidation(string(FamilyProfile), "name required")
	}
	if update.NewPassword != "" && update.NewPassword != confirm {
		return failure.NewValidation(string(FamilyProfile), "new passwords do not match")
	}
	return nil
}

// ValidateCredentials checks that login or registration fields are present.
func ValidateCredentials(f Family, name, email, password string) error {
	if f == FamilyRegister && strings.TrimSpace(name) == "" {
		return failure.NewValidation(string(f), "name required")
	}
	if strings.TrimSpace(email) == "" {
		return failure.NewValidation(string(f), "email required")
	}
	if password == "" {
		return failure.NewValidation(string(f), "password required")
	}
	return nil
}
