package grammar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

var ErrInvalidPattern = errors.New("invalid pattern")

// Pattern is a compiled ECMAScript-flavoured regular expression. Unlike the
// standard library engine it supports lookahead and back references, which
// grammar authors rely on.
type Pattern struct {
	source string
	flags  string
	re     *regexp2.Regexp

	// set when a lenient loader kept a pattern that does not compile
	err error

	warnOnce sync.Once
}

// Match is the span of a successful match, in runes relative to the searched
// text. Group1 is the length of the first capture group, 0 when it did not
// participate.
type Match struct {
	Index  int
	Length int
	Group1 int
}

// Compile compiles expr with JavaScript style flags (i, m, s, u, g, y).
// g and y are accepted and ignored: every attempt searches from the start of
// a fragment.
func Compile(expr, flags string) (*Pattern, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'u':
			opts |= regexp2.Unicode
		case 'g', 'y':
		default:
			return nil, fmt.Errorf("%w: unknown flag %q in /%s/%s", ErrInvalidPattern, f, expr, flags)
		}
	}

	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: /%s/%s: %v", ErrInvalidPattern, expr, flags, err)
	}

	return &Pattern{source: expr, flags: flags, re: re}, nil
}

func MustCompile(expr, flags string) *Pattern {
	p, err := Compile(expr, flags)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseLiteral compiles a JavaScript regex literal such as /&lt;!--[\w\W]*?--&gt;/gi.
// Text that is not wrapped in slashes is compiled as a bare expression.
func ParseLiteral(lit string) (*Pattern, error) {
	expr, flags := splitLiteral(lit)
	return Compile(expr, flags)
}

func MustLiteral(lit string) *Pattern {
	p, err := ParseLiteral(lit)
	if err != nil {
		panic(err)
	}
	return p
}

// brokenPattern keeps a rule whose expression did not compile. It never
// matches.
func brokenPattern(lit string, err error) *Pattern {
	expr, flags := splitLiteral(lit)
	return &Pattern{source: expr, flags: flags, err: err}
}

func splitLiteral(lit string) (string, string) {
	if len(lit) < 2 || lit[0] != '/' {
		return lit, ""
	}
	end := strings.LastIndexByte(lit, '/')
	if end <= 0 {
		return lit, ""
	}
	flags := lit[end+1:]
	if strings.Trim(flags, "gimsuy") != "" {
		return lit, ""
	}
	return lit[1:end], flags
}

func (p *Pattern) String() string {
	return "/" + p.source + "/" + p.flags
}

func (p *Pattern) Source() string {
	return p.source
}

func (p *Pattern) Flags() string {
	return p.flags
}

// Err reports why a pattern kept by a lenient loader cannot match.
func (p *Pattern) Err() error {
	return p.err
}

// SetMatchTimeout bounds a single match attempt. Zero restores the regexp2
// default, which never times out.
func (p *Pattern) SetMatchTimeout(d time.Duration) {
	if p.re == nil {
		return
	}
	if d <= 0 {
		d = regexp2.DefaultMatchTimeout
	}
	p.re.MatchTimeout = d
}

// Match searches text from its start. Engine errors, such as a timeout, are
// reported once and treated as no match.
func (p *Pattern) Match(text []rune) (Match, bool) {
	if p.re == nil {
		p.warn(p.err)
		return Match{}, false
	}

	m, err := p.re.FindRunesMatch(text)
	if err != nil {
		p.warn(err)
		return Match{}, false
	}
	if m == nil {
		return Match{}, false
	}

	res := Match{Index: m.Index, Length: m.Length}
	if g := m.GroupByNumber(1); g != nil && len(g.Captures) > 0 {
		res.Group1 = g.Length
	}
	return res, true
}

func (p *Pattern) warn(err error) {
	p.warnOnce.Do(func() {
		log.Warningf("pattern %s never matches: %v", p, err)
	})
}
