package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AnoJokamp354/Prism/internal/config"
	"github.com/AnoJokamp354/Prism/internal/grammar"
	"github.com/AnoJokamp354/Prism/internal/hooks"
	"github.com/AnoJokamp354/Prism/internal/types"
)

func toyStore(t *testing.T) *grammar.Store {
	t.Helper()

	store := grammar.NewStore()
	store.Register("toy", grammar.New(
		grammar.NewRule("entity", grammar.MustLiteral(`/&amp;[a-z]+;/`)),
		grammar.NewRule("keyword", grammar.MustLiteral(`/\b(?:if|else)\b/`)),
		grammar.NewRule("operator", grammar.MustLiteral(`/&lt;|&gt;|[+=]/`)),
	))
	store.Register("digits", grammar.New(
		grammar.NewRule("number", grammar.MustLiteral(`/\d+/`)),
	))
	require.NoError(t, store.Alias("t", "toy"))
	return store
}

func TestEscape(t *testing.T) {
	require.Equal(t, "a&lt;b&amp;c&gt; d", Escape("a<b&c> d"))
}

func TestHighlight_EscapesAndTrims(t *testing.T) {
	h := New(toyStore(t))

	got, err := h.Highlight(context.Background(), "toy", "  a<b \n", nil)
	require.NoError(t, err)
	require.Equal(t, `a<span class="token operator">&lt;</span>b`, got)

	got, err = h.Highlight(context.Background(), "t", "if", nil)
	require.NoError(t, err)
	require.Equal(t, `<span class="token keyword">if</span>`, got, "aliases resolve")
}

func TestHighlight_WithoutEscape(t *testing.T) {
	h := New(toyStore(t), WithEscape(false))

	got, err := h.Highlight(context.Background(), "toy", "a<b", nil)
	require.NoError(t, err)
	require.Equal(t, "a<b", got)
}

func TestHighlight_BlankCodeRunsNothing(t *testing.T) {
	registry := hooks.NewRegistry()
	calls := 0
	registry.Add(hooks.BeforeHighlight, func(*hooks.Env) { calls++ })
	registry.Add(hooks.AfterHighlight, func(*hooks.Env) { calls++ })

	var buf bytes.Buffer
	h := New(toyStore(t), WithHooks(registry))
	got, err := h.Highlight(context.Background(), "toy", " \n\t ", &buf)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Zero(t, buf.Len())
	require.Zero(t, calls)
}

func TestHighlight_UnknownLanguage(t *testing.T) {
	h := New(toyStore(t))

	_, err := h.Highlight(context.Background(), "cobol", "x", nil)
	require.ErrorIs(t, err, grammar.ErrUnknownLanguage)

	_, _, err = h.Tokenize(context.Background(), "cobol", "x")
	require.ErrorIs(t, err, grammar.ErrUnknownLanguage)
}

func TestHighlight_Hooks(t *testing.T) {
	store := toyStore(t)
	g, _ := store.Get("toy")
	registry := hooks.NewRegistry()
	var buf bytes.Buffer
	var events []string

	registry.Add(hooks.BeforeHighlight, func(env *hooks.Env) {
		events = append(events, hooks.BeforeHighlight)
		require.Equal(t, "t", env.Language)
		require.Equal(t, "a&lt;b", env.Code)
		require.Same(t, g, env.Grammar)
		require.Same(t, &buf, env.Target)
		env.Code = "if a"
	})
	registry.Add(hooks.Wrap, func(env *hooks.Env) {
		events = append(events, hooks.Wrap+":"+env.Type)
	})
	registry.Add(hooks.AfterHighlight, func(env *hooks.Env) {
		events = append(events, hooks.AfterHighlight)
		require.Equal(t, env.Highlighted, buf.String(), "markup is written before after-highlight")
	})

	h := New(store, WithHooks(registry))
	got, err := h.Highlight(context.Background(), "t", "a<b", &buf)
	require.NoError(t, err)
	require.Equal(t, `<span class="token keyword">if</span> a`, got)
	require.Equal(t, got, buf.String())
	require.Equal(t, []string{hooks.BeforeHighlight, "wrap:keyword", hooks.AfterHighlight}, events)
}

func TestHighlight_HookSwapsGrammar(t *testing.T) {
	store := toyStore(t)
	digits, _ := store.Get("digits")

	registry := hooks.NewRegistry()
	registry.Add(hooks.BeforeHighlight, func(env *hooks.Env) { env.Grammar = digits })

	h := New(store, WithHooks(registry))
	got, err := h.Highlight(context.Background(), "toy", "if 42", nil)
	require.NoError(t, err)
	require.Equal(t, `if <span class="token number">42</span>`, got)
}

func TestHighlight_WriteError(t *testing.T) {
	h := New(toyStore(t))
	_, err := h.Highlight(context.Background(), "toy", "if", failingWriter{})
	require.ErrorContains(t, err, "error writing highlighted code")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTokenize_NoEscape(t *testing.T) {
	h := New(toyStore(t))

	stream, stats, err := h.Tokenize(context.Background(), "toy", "a<b")
	require.NoError(t, err)
	require.Equal(t, types.Stream{types.Leaf("a<b")}, stream)
	require.Zero(t, stats.TotalTokens)
}

func TestHighlightGrammar(t *testing.T) {
	store := toyStore(t)
	digits, _ := store.Get("digits")

	got := New(store).HighlightGrammar("x1", digits)
	require.Equal(t, `x<span class="token number">1</span>`, got)
}

func TestTokenize_Cache(t *testing.T) {
	store := toyStore(t)
	g, _ := store.Get("toy")
	h := New(store, WithCache(time.Minute))
	ctx := context.Background()

	first, _, err := h.Tokenize(ctx, "toy", "if")
	require.NoError(t, err)
	require.Equal(t, types.Stream{types.Node("keyword", types.Leaf("if"))}, first)

	g.Delete("keyword")

	second, stats, err := h.Tokenize(ctx, "toy", "if")
	require.NoError(t, err)
	require.Equal(t, first, second, "served from cache")
	require.Equal(t, 1, stats.TotalTokens)

	h.Flush()
	third, _, err := h.Tokenize(ctx, "toy", "if")
	require.NoError(t, err)
	require.Equal(t, types.Stream{types.Leaf("if")}, third)
}

func TestTokenize_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	h := New(toyStore(t), WithCache(time.Minute), WithTracer(provider.Tracer("test")))
	ctx := context.Background()

	_, _, err := h.Tokenize(ctx, "toy", "if a")
	require.NoError(t, err)
	_, _, err = h.Tokenize(ctx, "toy", "if a")
	require.NoError(t, err)
	_, err = h.Highlight(ctx, "toy", "else", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	require.Equal(t, "prism.tokenize", spans[0].Name())
	require.Equal(t, "prism.highlight", spans[2].Name())

	require.NotContains(t, spans[0].Attributes(), attribute.Bool("prism.cache_hit", true))
	require.Contains(t, spans[0].Attributes(), attribute.Int("prism.tokens", 1))
	require.Contains(t, spans[1].Attributes(), attribute.Bool("prism.cache_hit", true))
}

func TestOffload(t *testing.T) {
	store := toyStore(t)
	worker := New(store)

	calls := 0
	var requests []types.Request
	h := New(store, WithOffload(func(_ context.Context, req []byte) ([]byte, error) {
		calls++
		var r types.Request
		require.NoError(t, json.Unmarshal(req, &r))
		requests = append(requests, r)
		return worker.HandleRequest(req)
	}))

	local, err := New(store).Highlight(context.Background(), "toy", "if a<b", nil)
	require.NoError(t, err)

	got, err := h.Highlight(context.Background(), "toy", "if a<b", nil)
	require.NoError(t, err)
	require.Equal(t, local, got)
	require.Equal(t, 1, calls)
	require.Equal(t, []types.Request{{Language: "toy", Code: "if a&lt;b"}}, requests)
}

func TestOffload_SkippedForSwappedGrammar(t *testing.T) {
	store := toyStore(t)
	digits, _ := store.Get("digits")

	registry := hooks.NewRegistry()
	registry.Add(hooks.BeforeHighlight, func(env *hooks.Env) { env.Grammar = digits })

	calls := 0
	h := New(store, WithHooks(registry), WithOffload(func(context.Context, []byte) ([]byte, error) {
		calls++
		return nil, errors.New("unexpected")
	}))

	got, err := h.Highlight(context.Background(), "toy", "7", nil)
	require.NoError(t, err)
	require.Equal(t, `<span class="token number">7</span>`, got)
	require.Zero(t, calls)
}

func TestOffload_Errors(t *testing.T) {
	store := toyStore(t)

	h := New(store, WithOffload(func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("worker down")
	}))
	_, err := h.Highlight(context.Background(), "toy", "if", nil)
	require.ErrorContains(t, err, "worker down")

	h = New(store, WithOffload(func(context.Context, []byte) ([]byte, error) {
		return []byte("{"), nil
	}))
	_, err = h.Highlight(context.Background(), "toy", "if", nil)
	require.ErrorContains(t, err, "error decoding response")
}

func TestHandleRequest(t *testing.T) {
	h := New(toyStore(t))

	out, err := h.HandleRequest([]byte(`{"language":"t","code":"if x"}`))
	require.NoError(t, err)
	require.JSONEq(t, `[{"type":"keyword","content":"if"}," x"]`, string(out))

	_, err = h.HandleRequest([]byte(`{"language":"cobol","code":"x"}`))
	require.ErrorIs(t, err, grammar.ErrUnknownLanguage)

	_, err = h.HandleRequest([]byte(`not json`))
	require.ErrorContains(t, err, "error decoding request")
}

func TestRenderResponse(t *testing.T) {
	h := New(toyStore(t))

	got, err := h.RenderResponse([]byte(`["a",{"type":"operator","content":"+"},"b"]`))
	require.NoError(t, err)
	require.Equal(t, `a<span class="token operator">+</span>b`, got)

	_, err = h.RenderResponse([]byte(`[{"content":"x"}]`))
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Highlight.Tag = "code"
	cfg.Highlight.ClassPrefix = "tok"

	h := NewFromConfig(toyStore(t), cfg, nil)
	got, err := h.Highlight(context.Background(), "toy", "&copy; if", nil)
	require.NoError(t, err)
	require.Equal(t, `<code class="tok entity" title="&copy;">&amp;copy;</code> <code class="tok keyword">if</code>`, got)
	require.Equal(t, 1, h.Hooks().Len(hooks.Wrap))

	cfg.Highlight.EntityTitle = false
	cfg.Highlight.Escape = false
	cfg.Cache.Enabled = false
	h = NewFromConfig(toyStore(t), cfg, nil)
	got, err = h.Highlight(context.Background(), "toy", "a<b", nil)
	require.NoError(t, err)
	require.Equal(t, "a<b", got)
	require.Zero(t, h.Hooks().Len(hooks.Wrap))
}
