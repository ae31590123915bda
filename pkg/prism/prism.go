// Package prism provides a public API for grammar-driven tokenizing and
// syntax highlighting.
//
// This package provides functions to:
//   - Convert source text between character encodings (CP437, CP850, ISO-8859-1, UTF-8)
//   - Load the built-in grammars and extra YAML grammar files
//   - Tokenize text into a token tree
//   - Render token trees as HTML markup, terminal colors or JSON
//
// Example usage:
//
//	import "github.com/AnoJokamp354/Prism/pkg/prism"
//
//	store, _ := prism.LoadLanguages()
//	html, _ := prism.Highlight(store, "javascript", "var a = 1;")
package prism

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/AnoJokamp354/Prism/internal/exporter"
	"github.com/AnoJokamp354/Prism/internal/grammar"
	"github.com/AnoJokamp354/Prism/internal/grammar/languages"
	"github.com/AnoJokamp354/Prism/internal/hooks"
	"github.com/AnoJokamp354/Prism/internal/processor"
	"github.com/AnoJokamp354/Prism/internal/tokenizer"
	"github.com/AnoJokamp354/Prism/internal/types"
)

// Type aliases for public API
type (
	// Token is a leaf (plain text) or a node (typed token with content)
	Token = types.Token

	// Stream is a sequence of tokens
	Stream = types.Stream

	// TokenStats contains statistics about a token stream
	TokenStats = types.TokenStats

	// Grammar is an ordered set of rules, with an optional rest grammar
	Grammar = grammar.Grammar

	// Rule names a pattern and how its matches become tokens
	Rule = grammar.Rule

	// Pattern is a compiled regular expression with JavaScript semantics
	Pattern = grammar.Pattern

	// Store maps language names and aliases to grammars
	Store = grammar.Store

	// Loader reads YAML grammar files into a Store
	Loader = grammar.Loader

	// Tokenizer runs grammars over text
	Tokenizer = tokenizer.Tokenizer

	// Hooks is a registry of named callbacks
	Hooks = hooks.Registry

	// Env is the record passed to hooks
	Env = hooks.Env

	// Highlighter runs the full highlighting pipeline
	Highlighter = processor.Highlighter

	// HTML serializes token streams to markup
	HTML = exporter.HTML

	// ANSI renders token streams with terminal colors
	ANSI = exporter.ANSI

	// Theme maps token types to terminal styles
	Theme = exporter.Theme
)

// Hook events
const (
	BeforeHighlight = hooks.BeforeHighlight
	Wrap            = hooks.Wrap
	AfterHighlight  = hooks.AfterHighlight
)

// Sentinel errors
var (
	ErrUnknownLanguage = grammar.ErrUnknownLanguage
	ErrUnresolvedRef   = grammar.ErrUnresolvedRef
	ErrInvalidPattern  = grammar.ErrInvalidPattern
	ErrInvalidRule     = grammar.ErrInvalidRule
)

// UTF-8 BOM (Byte Order Mark) sequence
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripUTF8BOM removes the UTF-8 BOM if present at the beginning of the data
func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && bytes.Equal(data[:3], utf8BOM) {
		return data[3:]
	}
	return data
}

func charmapFor(name string) (*charmap.Charmap, error) {
	switch name {
	case "cp437":
		return charmap.CodePage437, nil
	case "cp850":
		return charmap.CodePage850, nil
	case "iso-8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unsupported encoding: %s", name)
}

// ConvertToUTF8 converts byte data from a source encoding to UTF-8.
// Supported encodings: "utf8", "cp437", "cp850", "iso-8859-1"
// The UTF-8 BOM (Byte Order Mark) is automatically stripped if present.
func ConvertToUTF8(data []byte, sourceEncoding string) ([]byte, error) {
	if sourceEncoding == "utf8" || sourceEncoding == "" {
		return stripUTF8BOM(data), nil
	}

	cm, err := charmapFor(sourceEncoding)
	if err != nil {
		return nil, err
	}

	reader := transform.NewReader(bytes.NewReader(data), cm.NewDecoder())
	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("encoding conversion error: %w", err)
	}

	// Strip BOM if present after conversion
	return stripUTF8BOM(utf8Data), nil
}

// ConvertToEncoding converts UTF-8 data to the target encoding.
// Supported encodings: "utf8", "cp437", "cp850", "iso-8859-1"
func ConvertToEncoding(data []byte, targetEncoding string) ([]byte, error) {
	if targetEncoding == "utf8" || targetEncoding == "" {
		return data, nil
	}

	cm, err := charmapFor(targetEncoding)
	if err != nil {
		return nil, err
	}

	reader := transform.NewReader(bytes.NewReader(data), cm.NewEncoder())
	encodedData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("encoding conversion error: %w", err)
	}

	return encodedData, nil
}

// NormalizeNewlines turns CRLF and lone CR line endings into LF.
func NormalizeNewlines(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}

// NewStore returns an empty grammar store.
func NewStore() *Store {
	return grammar.NewStore()
}

// LoadLanguages returns a store holding the built-in grammars: markup (html,
// xml), css, javascript (js) and java.
func LoadLanguages() (*Store, error) {
	return languages.Default()
}

// NewLoader returns a lenient YAML grammar loader for store.
func NewLoader(store *Store) *Loader {
	return grammar.NewLoader(store)
}

// Tokenize runs text through g.
func Tokenize(text string, g *Grammar) Stream {
	return tokenizer.Tokenize(text, g)
}

// Stringify serializes s to markup, running the wrap hooks in registry,
// which may be nil.
func Stringify(s Stream, registry *Hooks) string {
	return exporter.Stringify(s, registry)
}

// NewHighlighter returns a Highlighter over store.
func NewHighlighter(store *Store, opts ...processor.Option) *Highlighter {
	return processor.New(store, opts...)
}

// Highlight escapes code, tokenizes it with the named grammar from store and
// returns the markup.
func Highlight(store *Store, language, code string) (string, error) {
	return processor.New(store).Highlight(context.Background(), language, code, nil)
}

// NewANSI returns a terminal renderer. A nil theme uses the default palette.
func NewANSI(theme *Theme) *ANSI {
	return exporter.NewANSI(theme)
}
