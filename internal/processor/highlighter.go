// Package processor runs the highlighting pipeline: grammar lookup, escaping,
// hooks, tokenizing and serialization, with an optional token cache and an
// offload transport for tokenizing out of process.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tliron/commonlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AnoJokamp354/Prism/internal/exporter"
	"github.com/AnoJokamp354/Prism/internal/grammar"
	"github.com/AnoJokamp354/Prism/internal/hooks"
	"github.com/AnoJokamp354/Prism/internal/tokenizer"
	"github.com/AnoJokamp354/Prism/internal/types"
)

var log = commonlog.GetLogger("prism.processor")

const DefaultCleanupInterval = 30 * time.Minute

// Transport carries an encoded types.Request to a worker and returns its
// encoded response. HandleRequest is the worker side.
type Transport func(ctx context.Context, request []byte) ([]byte, error)

type Highlighter struct {
	store     *grammar.Store
	tokenizer *tokenizer.Tokenizer
	hooks     *hooks.Registry
	html      *exporter.HTML
	cache     *gocache.Cache
	tracer    trace.Tracer
	offload   Transport
	escape    bool
}

type Option func(*Highlighter)

func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(h *Highlighter) { h.tokenizer = t }
}

// WithHooks sets the registry for all three events. The HTML exporter is
// pointed at the same registry.
func WithHooks(r *hooks.Registry) Option {
	return func(h *Highlighter) { h.hooks = r }
}

func WithHTML(html *exporter.HTML) Option {
	return func(h *Highlighter) { h.html = html }
}

// WithCache keeps token streams for ttl, keyed by grammar and code.
func WithCache(ttl time.Duration) Option {
	return func(h *Highlighter) { h.cache = gocache.New(ttl, DefaultCleanupInterval) }
}

func WithTracer(t trace.Tracer) Option {
	return func(h *Highlighter) { h.tracer = t }
}

// WithEscape controls whether &, < and > are escaped and NBSP replaced by a
// space before tokenizing. It is on by default.
func WithEscape(escape bool) Option {
	return func(h *Highlighter) { h.escape = escape }
}

// WithOffload tokenizes through t instead of in process. Hooks and
// serialization still run locally.
func WithOffload(t Transport) Option {
	return func(h *Highlighter) { h.offload = t }
}

func New(store *grammar.Store, opts ...Option) *Highlighter {
	h := &Highlighter{
		store:  store,
		escape: true,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.tokenizer == nil {
		h.tokenizer = tokenizer.New()
	}
	if h.hooks == nil {
		h.hooks = hooks.NewRegistry()
	}
	if h.html == nil {
		h.html = exporter.NewHTML(h.hooks)
	} else {
		h.html.Hooks = h.hooks
	}
	if h.tracer == nil {
		h.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return h
}

func (h *Highlighter) Store() *grammar.Store {
	return h.store
}

func (h *Highlighter) Hooks() *hooks.Registry {
	return h.hooks
}

func (h *Highlighter) Tokenizer() *tokenizer.Tokenizer {
	return h.tokenizer
}

// Flush drops cached token streams. Call it after editing a grammar.
func (h *Highlighter) Flush() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\u00a0", " ")

// Escape prepares raw source for markup output.
func Escape(code string) string {
	return escaper.Replace(code)
}

// Highlight renders code in the named language to markup and writes it to
// target, which may be nil. Surrounding whitespace is trimmed; blank code
// produces nothing and runs no hooks.
//
// before-highlight hooks may replace env.Code and env.Grammar. after-highlight
// hooks see the markup in env.Highlighted once it has been written.
func (h *Highlighter) Highlight(ctx context.Context, language, code string, target io.Writer) (string, error) {
	ctx, span := h.tracer.Start(ctx, "prism.highlight", trace.WithAttributes(
		attribute.String("prism.language", language),
		attribute.Int("prism.code.length", len(code)),
	))
	defer span.End()

	g, err := h.store.Lookup(language)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown language")
		return "", err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	if h.escape {
		code = Escape(code)
	}

	env := &hooks.Env{
		Language: language,
		Code:     code,
		Grammar:  g,
		Target:   target,
	}
	h.hooks.Run(hooks.BeforeHighlight, env)

	stream, _, err := h.tokenize(ctx, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tokenize failed")
		return "", err
	}

	env.Highlighted = h.html.Stringify(stream)
	if env.Target != nil {
		if _, err := io.WriteString(env.Target, env.Highlighted); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "write failed")
			return "", fmt.Errorf("error writing highlighted code: %w", err)
		}
	}

	h.hooks.Run(hooks.AfterHighlight, env)
	return env.Highlighted, nil
}

// HighlightGrammar tokenizes code with g and serializes the result. Only wrap
// hooks run.
func (h *Highlighter) HighlightGrammar(code string, g *grammar.Grammar) string {
	return h.html.Stringify(h.tokenizer.Tokenize(code, g))
}

// Tokenize returns the token stream for code in the named language, and its
// statistics, without escaping or hooks.
func (h *Highlighter) Tokenize(ctx context.Context, language, code string) (types.Stream, types.TokenStats, error) {
	ctx, span := h.tracer.Start(ctx, "prism.tokenize", trace.WithAttributes(
		attribute.String("prism.language", language),
		attribute.Int("prism.code.length", len(code)),
	))
	defer span.End()

	g, err := h.store.Lookup(language)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown language")
		return nil, types.TokenStats{}, err
	}
	return h.tokenize(ctx, &hooks.Env{Language: language, Code: code, Grammar: g})
}

type cached struct {
	stream types.Stream
	stats  types.TokenStats
}

func (h *Highlighter) tokenize(ctx context.Context, env *hooks.Env) (types.Stream, types.TokenStats, error) {
	span := trace.SpanFromContext(ctx)

	if h.offload != nil && h.registered(env) {
		stream, err := h.remote(ctx, env.Language, env.Code)
		if err != nil {
			return nil, types.TokenStats{}, err
		}
		span.SetAttributes(attribute.Bool("prism.offload", true))
		return stream, stream.Stats(), nil
	}

	// %p keys on the grammar itself, so a hook swapping the grammar misses.
	key := fmt.Sprintf("%p\x00%s", env.Grammar, env.Code)
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if c, ok := v.(cached); ok {
				log.Debugf("cache hit for %s", env.Language)
				span.SetAttributes(
					attribute.Bool("prism.cache_hit", true),
					attribute.Int("prism.tokens", c.stats.TotalTokens),
				)
				return c.stream, c.stats, nil
			}
		}
	}

	stream, stats := h.tokenizer.TokenizeStats(env.Code, env.Grammar)
	span.SetAttributes(
		attribute.Int("prism.tokens", stats.TotalTokens),
		attribute.Bool("prism.aborted", stats.Aborted),
	)
	if stats.Aborted {
		span.AddEvent("runaway guard", trace.WithAttributes(attribute.String("prism.language", env.Language)))
	}

	if h.cache != nil {
		h.cache.SetDefault(key, cached{stream: stream, stats: stats})
	}
	return stream, stats, nil
}

// registered reports whether env still holds the grammar registered for its
// language. Only those can be named in an offload request.
func (h *Highlighter) registered(env *hooks.Env) bool {
	g, ok := h.store.Get(env.Language)
	return ok && g == env.Grammar
}

func (h *Highlighter) remote(ctx context.Context, language, code string) (types.Stream, error) {
	req, err := json.Marshal(types.Request{Language: language, Code: code})
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}
	resp, err := h.offload(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error offloading %s: %w", language, err)
	}
	var stream types.Stream
	if err := json.Unmarshal(resp, &stream); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return stream, nil
}

// HandleRequest is the worker side of offloading: it decodes a
// {"language", "code"} request, tokenizes the code as given and returns the
// token tree as JSON.
func (h *Highlighter) HandleRequest(data []byte) ([]byte, error) {
	var req types.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("error decoding request: %w", err)
	}

	g, err := h.store.Lookup(req.Language)
	if err != nil {
		return nil, err
	}

	var resp types.Response = h.tokenizer.Tokenize(req.Code, g)
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("error encoding response: %w", err)
	}
	return out, nil
}

// RenderResponse decodes a worker response and serializes it to markup.
func (h *Highlighter) RenderResponse(data []byte) (string, error) {
	var resp types.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	return h.html.Stringify(resp), nil
}
