package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Entry is a registered command together with the aliases it answers to.
type Entry struct {
	Command Command
	Aliases []string
}

// Names renders the primary name followed by any aliases, e.g. "list, ls".
func (e Entry) Names() string {
	return strings.Join(append([]string{e.Command.Name()}, e.Aliases...), ", ")
}

// Registry maps command names and aliases to commands.
type Registry struct {
	mu      sync.RWMutex
	lookup  map[string]Command // name or alias -> command
	entries map[string]Entry   // primary name -> entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lookup:  make(map[string]Command),
		entries: make(map[string]Entry),
	}
}

// Register adds a command under its name and aliases.
// Nothing is registered if any of those names is empty or already taken.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if name == "" {
		return fmt.Errorf("command has no name")
	}
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	aliases := make([]string, 0, len(c.Aliases()))
	seen := map[string]bool{name: true}
	for _, alias := range c.Aliases() {
		if alias == "" || seen[alias] {
			return fmt.Errorf("invalid alias %q for command %s", alias, name)
		}
		if _, exists := r.lookup[alias]; exists {
			return fmt.Errorf("command alias already registered: %s", alias)
		}
		seen[alias] = true
		aliases = append(aliases, alias)
	}

	r.lookup[name] = c
	for _, alias := range aliases {
		r.lookup[alias] = c
	}
	r.entries[name] = Entry{Command: c, Aliases: aliases}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.lookup[name]
	return cmd, ok
}

// Entries returns every registered command sorted by primary name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Command.Name() < result[j].Command.Name()
	})
	return result
}

// DefaultRegistry holds the commands that register themselves in init.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
