// Package prefs holds display preferences. Changes are synchronous and
// cannot fail; persisting them is best effort.
package prefs

import (
	"context"
	"fmt"
	"strings"

	"tasksync/internal/logging"
	"tasksync/internal/persist"
	"tasksync/internal/state"
)

// Theme is the display theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme parses "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("invalid theme: %s", s)
}

// State is a snapshot of the preferences.
type State struct {
	Theme Theme
}

type record struct {
	Theme Theme `json:"theme"`
}

// Store is the preference store.
type Store struct {
	c   *state.Container[State]
	kv  persist.Store
	log logging.Logger
}

// New creates a store. The persisted theme wins over fallback.
func New(ctx context.Context, kv persist.Store, fallback Theme, log logging.Logger) *Store {
	log = logging.OrDiscard(log).WithField("store", "prefs")

	initial := State{Theme: ThemeLight}
	if fallback == ThemeDark {
		initial.Theme = ThemeDark
	}
	if kv != nil {
		var rec record
		if err := persist.LoadJSON(ctx, kv, persist.KeyTheme, &rec); err == nil {
			if t, err := ParseTheme(string(rec.Theme)); err == nil {
				initial.Theme = t
			}
		}
	}

	return &Store{
		c:   state.NewContainer(initial, func(s State) State { return s }),
		kv:  kv,
		log: log,
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State { return s.c.Snapshot() }

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) { return s.c.Subscribe(fn) }

// Theme returns the current theme.
func (s *Store) Theme() Theme { return s.Snapshot().Theme }

// Set changes the theme.
func (s *Store) Set(t Theme) Theme {
	snap := s.c.Apply(func(st *State) { st.Theme = t })
	s.save(snap.Theme)
	return snap.Theme
}

// Toggle switches between light and dark.
func (s *Store) Toggle() Theme {
	snap := s.c.Apply(func(st *State) {
		if st.Theme == ThemeDark {
			st.Theme = ThemeLight
		} else {
			st.Theme = ThemeDark
		}
	})
	s.save(snap.Theme)
	return snap.Theme
}

func (s *Store) save(t Theme) {
	if s.kv == nil {
		return
	}
	if err := persist.SaveJSON(context.Background(), s.kv, persist.KeyTheme, record{Theme: t}); err != nil {
		s.log.WithError(err).Warn("failed to save theme")
	}
}
