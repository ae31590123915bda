// Package languages embeds the built-in grammars. Patterns accept both raw
// and HTML-escaped source, so the same grammar serves the markup and the
// terminal renderers.
package languages

import (
	"embed"
	"fmt"
	"time"

	"github.com/AnoJokamp354/Prism/internal/grammar"
)

//go:embed *.yaml
var files embed.FS

// Files lists the grammar files in load order. Extensions come after the
// grammars they reference.
var Files = []string{
	"markup.yaml",
	"css.yaml",
	"javascript.yaml",
	"java.yaml",
	"markup-css.yaml",
	"markup-javascript.yaml",
}

// Load registers the built-in grammars in store. Embedded grammars are loaded
// strictly: a bad pattern is a build defect, not input.
func Load(store *grammar.Store, matchTimeout time.Duration) error {
	l := grammar.NewLoader(store)
	l.Strict = true
	l.MatchTimeout = matchTimeout

	if err := l.LoadFS(files, Files...); err != nil {
		return fmt.Errorf("error loading built-in languages: %w", err)
	}
	return nil
}

// Default returns a new store holding the built-in grammars.
func Default() (*grammar.Store, error) {
	store := grammar.NewStore()
	if err := Load(store, 0); err != nil {
		return nil, err
	}
	return store, nil
}
