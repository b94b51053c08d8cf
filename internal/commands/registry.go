package commands

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds registered commands. Names and aliases share one
// case-insensitive namespace.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Command
	aliases map[string]string // alias -> primary name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]Command),
		aliases: make(map[string]string),
	}
}

// Register adds a command. It fails if the name or any alias is taken,
// whether as a name or as an alias.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(c.Name())
	if name == "" {
		return fmt.Errorf("command has no name")
	}
	if r.takenLocked(name) {
		return fmt.Errorf("command already registered: %s", name)
	}

	aliases := make([]string, 0, len(c.Aliases()))
	for _, a := range c.Aliases() {
		a = strings.ToLower(a)
		if a == name || r.takenLocked(a) || slices.Contains(aliases, a) {
			return fmt.Errorf("command alias already registered: %s", a)
		}
		aliases = append(aliases, a)
	}

	r.byName[name] = c
	for _, a := range aliases {
		r.aliases[a] = name
	}
	return nil
}

func (r *Registry) takenLocked(s string) bool {
	_, isName := r.byName[s]
	_, isAlias := r.aliases[s]
	return isName || isAlias
}

// Find looks up a command by name or alias, ignoring case.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	if primary, ok := r.aliases[name]; ok {
		name = primary
	}
	cmd, ok := r.byName[name]
	return cmd, ok
}

// All returns every command once, sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]Command, 0, len(r.byName))
	for _, c := range r.byName {
		cmds = append(cmds, c)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return cmds
}

// DefaultRegistry holds the commands of the tasksync binary.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a name clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
