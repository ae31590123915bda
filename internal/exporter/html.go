package exporter

import (
	"strings"

	"github.com/AnoJokamp354/Prism/internal/hooks"
	"github.com/AnoJokamp354/Prism/internal/types"
)

const (
	DefaultTag         = "span"
	DefaultClassPrefix = "token"
	DefaultCommentType = "comment"
)

// HTML renders a token stream as nested markup, one element per token.
// Leaves are written unchanged: escape the input before tokenizing it.
type HTML struct {
	Hooks *hooks.Registry

	Tag         string
	ClassPrefix string

	// CommentType names the token type that gets spellcheck="true" when
	// CommentSpellcheck is set.
	CommentType       string
	CommentSpellcheck bool
}

func NewHTML(registry *hooks.Registry) *HTML {
	return &HTML{
		Hooks:             registry,
		Tag:               DefaultTag,
		ClassPrefix:       DefaultClassPrefix,
		CommentType:       DefaultCommentType,
		CommentSpellcheck: true,
	}
}

// Stringify renders s with the default settings and registry's wrap hooks.
func Stringify(s types.Stream, registry *hooks.Registry) string {
	return NewHTML(registry).Stringify(s)
}

func (h *HTML) Stringify(s types.Stream) string {
	var sb strings.Builder
	for _, t := range s {
		sb.WriteString(h.StringifyToken(t))
	}
	return sb.String()
}

func (h *HTML) StringifyToken(t types.Token) string {
	if t.IsLeaf() {
		return t.Text
	}

	env := &hooks.Env{
		Type:       t.Type,
		Content:    h.Stringify(t.Content),
		Tag:        h.Tag,
		Classes:    hooks.NewClasses(h.ClassPrefix, t.Type),
		Attributes: hooks.NewAttributes(),
	}
	if env.Tag == "" {
		env.Tag = DefaultTag
	}
	if h.CommentSpellcheck && t.Type == h.CommentType {
		env.Attributes.Set("spellcheck", "true")
	}

	h.Hooks.Run(hooks.Wrap, env)

	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(env.Tag)
	if env.Classes.String() != "" {
		sb.WriteString(` class="`)
		sb.WriteString(env.Classes.String())
		sb.WriteString(`"`)
	}
	env.Attributes.Each(func(key, value string) {
		sb.WriteString(" ")
		sb.WriteString(key)
		sb.WriteString(`="`)
		sb.WriteString(strings.ReplaceAll(value, `"`, "&quot;"))
		sb.WriteString(`"`)
	})
	sb.WriteString(">")
	sb.WriteString(env.Content)
	sb.WriteString("</")
	sb.WriteString(env.Tag)
	sb.WriteString(">")
	return sb.String()
}
