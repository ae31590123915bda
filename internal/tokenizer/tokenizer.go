// Package tokenizer converts text into a token stream using a grammar.
//
// The algorithm keeps a working sequence of fragments. It starts as one text
// fragment holding the whole input. Each rule, in grammar order, gets a full
// pass over the sequence: every text fragment is searched once, and a match
// splits it into leading text, a token and trailing text. Tokens already
// produced are never searched again, so a rule declared earlier always gets
// the first chance at any stretch of text.
package tokenizer

import (
	"slices"
	"sync/atomic"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/AnoJokamp354/Prism/internal/grammar"
	"github.com/AnoJokamp354/Prism/internal/types"
)

var log = commonlog.GetLogger("prism.tokenizer")

// Abort describes a tokenize call stopped by the runaway guard.
type Abort struct {
	Rule      string
	Fragments int
	Limit     int
}

type Tokenizer struct {
	aborts  atomic.Int64
	onAbort func(Abort)
}

type Option func(*Tokenizer)

// WithAbortHandler registers fn to be called, synchronously, whenever the
// runaway guard stops a tokenize call.
func WithAbortHandler(fn func(Abort)) Option {
	return func(t *Tokenizer) {
		t.onAbort = fn
	}
}

func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var defaultTokenizer = New()

// Tokenize runs text through g with a shared default Tokenizer.
func Tokenize(text string, g *grammar.Grammar) types.Stream {
	return defaultTokenizer.Tokenize(text, g)
}

// Tokenize returns the token stream for text. Concatenating the leaves of the
// result always gives text back, byte for byte, even when text is not valid
// UTF-8.
//
// If the number of fragments ever exceeds the length of text in runes, a
// pattern is growing the sequence without bound (typically one matching the
// empty string). Processing then stops for all remaining rules and the
// partial sequence is returned; the event is logged and counted.
func (t *Tokenizer) Tokenize(text string, g *grammar.Grammar) types.Stream {
	s, _ := t.tokenize(text, g)
	return s
}

// TokenizeStats is Tokenize plus statistics over the result. Aborted is set
// when the runaway guard stopped this call or any nested grammar inside it;
// a nested abort only truncates that token's subtree.
func (t *Tokenizer) TokenizeStats(text string, g *grammar.Grammar) (types.Stream, types.TokenStats) {
	s, aborted := t.tokenize(text, g)
	stats := s.Stats()
	stats.Aborted = aborted
	return s, stats
}

// Aborts returns how many tokenize calls the runaway guard has stopped.
func (t *Tokenizer) Aborts() int64 {
	return t.aborts.Load()
}

// Bind fixes the grammar, giving a types.Tokenizer.
func (t *Tokenizer) Bind(g *grammar.Grammar) types.Tokenizer {
	return bound{t, g}
}

type bound struct {
	t *Tokenizer
	g *grammar.Grammar
}

func (b bound) Tokenize(text string) types.Stream {
	return b.t.Tokenize(text, b.g)
}

func (t *Tokenizer) tokenize(text string, g *grammar.Grammar) (types.Stream, bool) {
	if text == "" || g == nil {
		return types.Stream{types.Leaf(text)}, false
	}

	g.Normalize()

	limit := utf8.RuneCountInString(text)
	frags := types.Stream{types.Leaf(text)}
	aborted := false

	for _, rule := range g.Rules() {
		if rule.Disabled() {
			continue
		}

		// A split replaces frags[i] in place and keeps any leading text at i,
		// so i+1 is the new token (skipped) or the trailing text, which this
		// pass still scans. len(frags) is re-read on every step.
		for i := 0; i < len(frags); i++ {
			if len(frags) > limit {
				t.abort(Abort{Rule: rule.Name, Fragments: len(frags), Limit: limit})
				return frags, true
			}

			f := frags[i]
			if !f.IsLeaf() {
				continue
			}

			parts, ok, nestedAbort := t.split(f.Text, rule)
			if !ok {
				continue
			}
			aborted = aborted || nestedAbort
			frags = slices.Replace(frags, i, i+1, parts...)
		}
	}

	return frags, aborted
}

// split matches rule once against str and returns its replacement:
// [leading text], token, [trailing text]. The last result reports an abort
// inside the rule's nested grammar.
//
// The pattern sees str as runes, where each invalid UTF-8 byte is one
// U+FFFD. Match offsets are mapped back to bytes and str itself is sliced,
// so the pieces keep the input bytes unchanged.
func (t *Tokenizer) split(str string, rule *grammar.Rule) (types.Stream, bool, bool) {
	m, ok := rule.Pattern.Match([]rune(str))
	if !ok {
		return nil, false, false
	}

	lookbehind := 0
	if rule.Lookbehind {
		lookbehind = min(m.Group1, m.Length)
	}
	from := byteOffset(str, 0, m.Index+lookbehind)
	to := byteOffset(str, from, m.Length-lookbehind)
	matched := str[from:to]

	var content types.Stream
	var nestedAbort bool
	if rule.Inside != nil {
		content, nestedAbort = t.tokenize(matched, rule.Inside)
	} else {
		content = types.Stream{types.Leaf(matched)}
	}

	parts := make(types.Stream, 0, 3)
	if from > 0 {
		parts = append(parts, types.Leaf(str[:from]))
	}
	parts = append(parts, types.Node(rule.Name, content...))
	if to < len(str) {
		parts = append(parts, types.Leaf(str[to:]))
	}
	return parts, true, nestedAbort
}

// byteOffset advances n runes from byte offset start in str, counting an
// invalid byte as one rune the way a []rune conversion does.
func byteOffset(str string, start, n int) int {
	i := start
	for ; n > 0 && i < len(str); n-- {
		_, size := utf8.DecodeRuneInString(str[i:])
		i += size
	}
	return i
}

func (t *Tokenizer) abort(a Abort) {
	t.aborts.Add(1)
	log.Warningf("runaway tokenization stopped at rule %q: %d fragments for %d runes of input, returning partial result",
		a.Rule, a.Fragments, a.Limit)
	if t.onAbort != nil {
		t.onAbort(a)
	}
}
