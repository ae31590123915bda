// Package hooks provides named extension points. Callbacks registered for an
// event run synchronously, in registration order, on one shared Env, so a
// later callback sees what earlier ones changed.
package hooks

import (
	"io"
	"sync"

	"github.com/AnoJokamp354/Prism/internal/grammar"
)

// Pipeline events.
const (
	// BeforeHighlight runs before a unit of text is tokenized. Env carries
	// Language, Code, Grammar and Target.
	BeforeHighlight = "before-highlight"

	// Wrap runs once per token while serializing. Env carries Type,
	// Content, Tag, Classes and Attributes.
	Wrap = "wrap"

	// AfterHighlight runs after Highlighted has been written to Target.
	AfterHighlight = "after-highlight"
)

// Env is the mutable record handed to hooks. Which fields are set depends on
// the event.
type Env struct {
	// wrap
	Type       string
	Content    string
	Tag        string
	Classes    *Classes
	Attributes *Attributes

	// before-highlight, after-highlight
	Language    string
	Code        string
	Grammar     *grammar.Grammar
	Target      io.Writer
	Highlighted string
}

type Hook func(env *Env)

type Registry struct {
	mu  sync.RWMutex
	all map[string][]Hook
}

// Default is a convenience registry. Nothing reads it implicitly.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{all: make(map[string][]Hook)}
}

// Add registers h for the named event.
func (r *Registry) Add(name string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all[name] = append(r.all[name], h)
}

// Run calls every hook registered for name, in order, with env. Hooks added
// while Run is in progress take effect on the next Run.
func (r *Registry) Run(name string, env *Env) {
	if r == nil {
		return
	}
	r.mu.RLock()
	hooks := r.all[name]
	r.mu.RUnlock()

	for _, h := range hooks {
		h(env)
	}
}

func (r *Registry) Len(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all[name])
}
