package grammar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrUnresolvedRef = errors.New("unresolved grammar reference")

// Loader decodes YAML grammar files into a Store.
//
// A file either defines a new grammar:
//
//	name: css
//	aliases: [stylesheet]
//	rules:
//	  comment: '/\/\*[\w\W]*?\*\//'
//	  atrule:
//	    pattern: '/@[\w-]+?(\s+.+)?(?=\s*{|\s*;)/i'
//	    inside: { punctuation: '/[;:]/' }
//
// or extends an existing one:
//
//	insert_before: { grammar: markup, before: tag }
//	rules:
//	  style: ...
//
// Rule mappings keep their file order. A rule value is a regex literal, a
// mapping with pattern, lookbehind and inside, or null to declare a disabled
// rule. inside and the special rest key take either a nested rule mapping or
// a reference: "css" names a registered grammar, "markup/tag" the inside
// grammar of markup's tag rule.
type Loader struct {
	Store *Store

	// Strict turns invalid patterns and unresolved references into errors.
	// Otherwise they are logged, the pattern never matches and the reference
	// is left empty.
	Strict bool

	MatchTimeout time.Duration
}

type grammarFile struct {
	Name    string
	Aliases []string
	Insert  *insertSpec
	Rules   *yaml.Node
}

type insertSpec struct {
	Grammar string `yaml:"grammar"`
	Before  string `yaml:"before"`
}

type restSpec struct {
	ref    string
	inline *Grammar
	where  string
}

// bind attaches the rest grammar to g, now for inline grammars, after
// registration for references.
func (r *restSpec) bind(g *Grammar, pending *[]pendingRef) {
	if r == nil {
		return
	}
	if r.inline != nil {
		g.SetRest(r.inline)
		return
	}
	*pending = append(*pending, pendingRef{ref: r.ref, assign: g.SetRest, where: r.where})
}

type pendingRef struct {
	ref    string
	assign func(*Grammar)
	where  string
}

func NewLoader(store *Store) *Loader {
	return &Loader{Store: store}
}

// LoadFile loads one grammar file. It returns the grammar name the file
// defined or extended.
func (l *Loader) LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read grammar: %w", err)
	}
	return l.Load(bytes.NewReader(data), path)
}

// LoadFS loads the given files from fsys in order. Later files may reference
// grammars defined by earlier ones.
func (l *Loader) LoadFS(fsys fs.FS, paths ...string) error {
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read grammar: %w", err)
		}
		if _, err := l.Load(bytes.NewReader(data), p); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) Load(r io.Reader, source string) (string, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return "", fmt.Errorf("%s: decode grammar: %w", source, err)
	}

	file, err := decodeFile(&doc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", source, err)
	}

	var pending []pendingRef
	rules, rest, err := l.decodeRules(file.Rules, source, &pending)
	if err != nil {
		return "", err
	}

	name := file.Name
	if file.Insert != nil {
		name = file.Insert.Grammar
		target, err := l.Store.Lookup(name)
		if err != nil {
			return "", fmt.Errorf("%s: insert_before: %w", source, err)
		}
		target.InsertBefore(file.Insert.Before, rules...)
		rest.bind(target, &pending)
	} else {
		if name == "" {
			return "", fmt.Errorf("%s: grammar without name", source)
		}
		g := New(rules...)
		rest.bind(g, &pending)
		l.Store.Register(name, g)
	}

	for _, alias := range file.Aliases {
		if err := l.Store.Alias(alias, name); err != nil {
			return "", fmt.Errorf("%s: alias %s: %w", source, alias, err)
		}
	}

	for _, p := range pending {
		g, err := l.resolve(p.ref)
		if err != nil {
			if l.Strict {
				return "", fmt.Errorf("%s: %w", p.where, err)
			}
			log.Warningf("%s: %v", p.where, err)
			continue
		}
		p.assign(g)
	}

	log.Debugf("loaded grammar %s from %s", name, source)
	return name, nil
}

func decodeFile(doc *yaml.Node) (*grammarFile, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty grammar file")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: grammar file must be a mapping", root.Line)
	}

	file := &grammarFile{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		var err error
		switch key.Value {
		case "name":
			err = value.Decode(&file.Name)
		case "aliases":
			err = value.Decode(&file.Aliases)
		case "insert_before":
			file.Insert = &insertSpec{}
			err = value.Decode(file.Insert)
		case "rules":
			file.Rules = value
		default:
			err = fmt.Errorf("line %d: unknown key %q", key.Line, key.Value)
		}
		if err != nil {
			return nil, err
		}
	}

	if file.Rules == nil {
		return nil, fmt.Errorf("no rules")
	}
	return file, nil
}

// decodeRules decodes an ordered rule mapping. The rest key is returned
// separately.
func (l *Loader) decodeRules(node *yaml.Node, where string, pending *[]pendingRef) ([]*Rule, *restSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%s: line %d: rules must be a mapping", where, node.Line)
	}

	var rules []*Rule
	var rest *restSpec
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		path := where + "/" + key.Value

		if key.Value == "rest" {
			ref, inline, err := l.decodeRef(value, path, pending)
			if err != nil {
				return nil, nil, err
			}
			rest = &restSpec{ref: ref, inline: inline, where: path}
			continue
		}

		r, err := l.decodeRule(key.Value, value, path, pending)
		if err != nil {
			return nil, nil, err
		}
		rules = append(rules, r)
	}

	return rules, rest, nil
}

func (l *Loader) decodeRule(name string, node *yaml.Node, where string, pending *[]pendingRef) (*Rule, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %s: line %d: empty rule name", ErrInvalidRule, where, node.Line)
	}
	r := &Rule{Name: name}

	switch node.Kind {
	case yaml.ScalarNode:
		if disabled(node) {
			return r, nil
		}
		p, err := l.pattern(node.Value, where)
		if err != nil {
			return nil, err
		}
		r.Pattern = p
		return r, nil

	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			switch key.Value {
			case "pattern":
				if disabled(value) {
					continue
				}
				p, err := l.pattern(value.Value, where)
				if err != nil {
					return nil, err
				}
				r.Pattern = p
			case "lookbehind":
				if err := value.Decode(&r.Lookbehind); err != nil {
					return nil, fmt.Errorf("%s: lookbehind: %w", where, err)
				}
			case "inside":
				ref, inline, err := l.decodeRef(value, where+"/inside", pending)
				if err != nil {
					return nil, err
				}
				if inline != nil {
					r.Inside = inline
				} else {
					*pending = append(*pending, pendingRef{ref: ref, assign: func(g *Grammar) { r.Inside = g }, where: where + "/inside"})
				}
			default:
				return nil, fmt.Errorf("%s: line %d: unknown rule key %q", where, key.Line, key.Value)
			}
		}
		return r, nil
	}

	return nil, fmt.Errorf("%s: line %d: rule must be a pattern or a mapping", where, node.Line)
}

// disabled reports a null or false rule value.
func disabled(node *yaml.Node) bool {
	return node.Tag == "!!null" || (node.Tag == "!!bool" && node.Value == "false")
}

// decodeRef returns either a reference string or an inline grammar.
func (l *Loader) decodeRef(node *yaml.Node, where string, pending *[]pendingRef) (string, *Grammar, error) {
	if node.Kind == yaml.ScalarNode {
		return node.Value, nil, nil
	}

	rules, rest, err := l.decodeRules(node, where, pending)
	if err != nil {
		return "", nil, err
	}
	g := New(rules...)
	rest.bind(g, pending)
	return "", g, nil
}

func (l *Loader) pattern(lit, where string) (*Pattern, error) {
	p, err := ParseLiteral(lit)
	if err != nil {
		if l.Strict {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		log.Warningf("%s: %v", where, err)
		return brokenPattern(lit, err), nil
	}
	p.SetMatchTimeout(l.MatchTimeout)
	return p, nil
}

// resolve follows a reference of the form lang[/rule[/rule...]].
func (l *Loader) resolve(ref string) (*Grammar, error) {
	parts := strings.Split(ref, "/")
	g, ok := l.Store.Get(parts[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
	}
	for _, name := range parts[1:] {
		r, ok := g.Rule(name)
		if !ok || r.Inside == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
		}
		g = r.Inside
	}
	return g, nil
}
