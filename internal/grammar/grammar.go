// Package grammar holds the ordered, composable rule sets the tokenizer runs.
//
// A Grammar is an ordered list of named rules. Order is match priority: the
// tokenizer gives every rule a full pass over the text before the next rule
// is tried. Grammars are long-lived and may be shared between languages (a
// markup grammar embeds the style sheet and script grammars, for instance),
// so every mutation keeps the relative order of untouched rules.
package grammar

import (
	"errors"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("prism.grammar")

// ErrInvalidRule is returned by the loader for a rule without a name.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is a single named pattern. A rule without Inside is a leaf rule: its
// tokens hold the matched text as is.
type Rule struct {
	Name    string
	Pattern *Pattern

	// Lookbehind excludes the first capture group from the token. The
	// excluded text stays with the preceding plain text.
	Lookbehind bool

	Inside *Grammar
}

// NewRule returns a leaf rule. Use the With methods to add lookbehind or a
// nested grammar. A rule needs a name: an unnamed rule is disabled, since its
// tokens could not be told apart from plain text.
func NewRule(name string, p *Pattern) *Rule {
	return &Rule{Name: name, Pattern: p}
}

func (r *Rule) WithLookbehind() *Rule {
	r.Lookbehind = true
	return r
}

func (r *Rule) WithInside(g *Grammar) *Rule {
	r.Inside = g
	return r
}

// Disabled reports whether the tokenizer skips this rule: it has no pattern
// or no name.
func (r *Rule) Disabled() bool {
	return r.Pattern == nil || r.Name == ""
}

// Grammar is an ordered mapping from rule name to Rule, plus an optional rest
// grammar whose rules are absorbed by Normalize.
type Grammar struct {
	mu         sync.RWMutex
	rules      []*Rule
	rest       *Grammar
	normalized bool
}

func New(rules ...*Rule) *Grammar {
	g := &Grammar{}
	for _, r := range rules {
		g.add(r)
	}
	return g
}

// Add appends r, or replaces the rule with the same name in place.
func (g *Grammar) Add(r *Rule) *Grammar {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(r)
	return g
}

func (g *Grammar) add(r *Rule) {
	if i := g.index(r.Name); i >= 0 {
		g.rules[i] = r
		return
	}
	g.rules = append(g.rules, r)
}

func (g *Grammar) index(name string) int {
	for i, r := range g.rules {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func (g *Grammar) Rule(name string) (*Rule, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if i := g.index(name); i >= 0 {
		return g.rules[i], true
	}
	return nil, false
}

// Rules returns a snapshot of the rules in priority order.
func (g *Grammar) Rules() []*Rule {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

func (g *Grammar) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.Name
	}
	return names
}

func (g *Grammar) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rules)
}

// Delete removes the named rule. It reports whether the rule existed.
func (g *Grammar) Delete(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.index(name)
	if i < 0 {
		return false
	}
	g.rules = append(g.rules[:i], g.rules[i+1:]...)
	return true
}

// SetRest sets the grammar whose rules Normalize appends to g.
func (g *Grammar) SetRest(rest *Grammar) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rest = rest
	g.normalized = false
}

func (g *Grammar) Rest() *Grammar {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rest
}

// InsertBefore inserts rules, in their own order, immediately before the rule
// named before. When before does not exist the rules are appended at the end.
// A rule whose name already exists in g moves to the insertion point.
func (g *Grammar) InsertBefore(before string, rules ...*Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inserted := make(map[string]bool, len(rules))
	for _, r := range rules {
		inserted[r.Name] = true
	}

	kept := make([]*Rule, 0, len(g.rules)+len(rules))
	at := -1
	for _, r := range g.rules {
		if r.Name == before && at < 0 {
			at = len(kept)
		}
		if inserted[r.Name] {
			continue
		}
		kept = append(kept, r)
	}
	if at < 0 {
		at = len(kept)
	}

	out := make([]*Rule, 0, len(kept)+len(rules))
	out = append(out, kept[:at]...)
	out = append(out, rules...)
	out = append(out, kept[at:]...)
	g.rules = out
}

// Normalize absorbs the rest grammar: its rules are appended after the
// existing ones (a rule with an existing name is overwritten in place) and
// the rest marker is cleared. Normalize is idempotent and safe for concurrent
// use; the tokenizer calls it on every grammar it enters. A cycle of rest
// grammars is cut where it closes.
func (g *Grammar) Normalize() {
	g.normalize(make(map[*Grammar]bool))
}

// normalize never holds g's lock while another grammar is normalized, so two
// grammars naming each other as rest cannot deadlock.
func (g *Grammar) normalize(visiting map[*Grammar]bool) {
	g.mu.RLock()
	done, rest := g.normalized, g.rest
	g.mu.RUnlock()
	if done || visiting[g] {
		return
	}
	visiting[g] = true

	var absorbed []*Rule
	if rest != nil && rest != g {
		rest.normalize(visiting)
		absorbed = rest.Rules()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.normalized {
		return
	}
	for _, r := range absorbed {
		g.add(r)
	}
	g.rest = nil
	g.normalized = true
}

// Clone returns a shallow copy of g: the rule list is copied, rules and
// nested grammars are shared.
func (g *Grammar) Clone() *Grammar {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c := &Grammar{rest: g.rest, normalized: g.normalized}
	c.rules = make([]*Rule, len(g.rules))
	copy(c.rules, g.rules)
	return c
}

// Visitor is called for every rule DFS reaches. It may mutate the rule.
type Visitor func(name string, r *Rule)

// DFS walks g depth-first, pre-order, calling fn for every rule at every
// depth in insertion order. It recurses into each rule's Inside grammar and
// into the rest grammar. A grammar reached twice (shared sub-grammars) is
// walked once.
func DFS(g *Grammar, fn Visitor) {
	dfs(g, fn, make(map[*Grammar]bool))
}

func dfs(g *Grammar, fn Visitor, visited map[*Grammar]bool) {
	if g == nil || visited[g] {
		return
	}
	visited[g] = true

	for _, r := range g.Rules() {
		fn(r.Name, r)
		if r.Inside != nil {
			dfs(r.Inside, fn, visited)
		}
	}

	if rest := g.Rest(); rest != nil {
		dfs(rest, fn, visited)
	}
}
