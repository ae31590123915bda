package processor

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/AnoJokamp354/Prism/internal/config"
	"github.com/AnoJokamp354/Prism/internal/exporter"
	"github.com/AnoJokamp354/Prism/internal/grammar"
	"github.com/AnoJokamp354/Prism/internal/hooks"
)

// NewFromConfig builds a Highlighter over store from cfg. tracer may be nil.
func NewFromConfig(store *grammar.Store, cfg config.Config, tracer trace.Tracer, opts ...Option) *Highlighter {
	registry := hooks.NewRegistry()
	if cfg.Highlight.EntityTitle {
		registry.Add(hooks.Wrap, hooks.EntityTitle)
	}

	html := exporter.NewHTML(registry)
	html.Tag = cfg.Highlight.Tag
	html.ClassPrefix = cfg.Highlight.ClassPrefix
	html.CommentSpellcheck = cfg.Highlight.CommentSpellcheck

	base := []Option{
		WithHooks(registry),
		WithHTML(html),
		WithEscape(cfg.Highlight.Escape),
		WithTracer(tracer),
	}
	if cfg.Cache.Enabled {
		base = append(base, WithCache(cfg.Cache.TTL))
	}

	return New(store, append(base, opts...)...)
}
