package grammar

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Store holds named grammars in registration order. Aliases resolve to the
// same *Grammar, so edits through one name are visible through the others.
type Store struct {
	mu       sync.RWMutex
	names    []string
	grammars map[string]*Grammar
	aliases  map[string]string
}

// Default is a convenience store for programs with a single set of
// languages. Nothing in this module reads it implicitly.
var Default = NewStore()

func NewStore() *Store {
	return &Store{
		grammars: make(map[string]*Grammar),
		aliases:  make(map[string]string),
	}
}

// Register adds g under name. Registering an existing name replaces the
// grammar and keeps its first position.
func (s *Store) Register(name string, g *Grammar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grammars[name]; !ok {
		s.names = append(s.names, name)
	}
	delete(s.aliases, name)
	s.grammars[name] = g
}

// Alias makes alias resolve to the grammar registered as name.
func (s *Store) Alias(alias, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.resolve(name)
	if _, ok := s.grammars[target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, name)
	}
	s.aliases[alias] = target
	return nil
}

func (s *Store) resolve(name string) string {
	if target, ok := s.aliases[name]; ok {
		return target
	}
	return name
}

func (s *Store) Get(name string) (*Grammar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grammars[s.resolve(name)]
	return g, ok
}

// Lookup returns the named grammar or ErrUnknownLanguage.
func (s *Store) Lookup(name string) (*Grammar, error) {
	g, ok := s.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, name)
	}
	return g, nil
}

// Names lists registered grammars in registration order, without aliases.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Aliases returns the aliases pointing at name.
func (s *Store) Aliases(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for alias, target := range s.aliases {
		if target == name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// InsertBefore inserts rules into the named grammar immediately before the
// rule called before, keeping the relative order of every other rule. When
// before is absent the rules are appended at the end.
func (s *Store) InsertBefore(grammarName, before string, rules ...*Rule) error {
	g, err := s.Lookup(grammarName)
	if err != nil {
		return err
	}
	g.InsertBefore(before, rules...)
	return nil
}

// DFS walks the named grammar, see DFS.
func (s *Store) DFS(grammarName string, fn Visitor) error {
	g, err := s.Lookup(grammarName)
	if err != nil {
		return err
	}
	DFS(g, fn)
	return nil
}
