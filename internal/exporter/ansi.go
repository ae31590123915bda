package exporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"

	"github.com/AnoJokamp354/Prism/internal/types"
)

const sgrReset = "\x1b[0m"

// Theme maps token types to terminal styles. A token without a style of its
// own inherits the style of its nearest styled ancestor.
type Theme struct {
	styles map[string]tcell.Style
}

func NewTheme() *Theme {
	return &Theme{styles: make(map[string]tcell.Style)}
}

// DefaultTheme is a dark-background palette covering the token types of the
// embedded languages.
func DefaultTheme() *Theme {
	t := NewTheme()
	dim := tcell.StyleDefault.Foreground(tcell.GetColor("slategray"))

	t.Set("comment", dim.Italic(true))
	t.Set("prolog", dim)
	t.Set("doctype", dim)
	t.Set("cdata", dim)
	t.Set("punctuation", tcell.StyleDefault.Foreground(tcell.GetColor("#999999")))
	t.Set("namespace", tcell.StyleDefault.Dim(true))
	t.Set("tag", tcell.StyleDefault.Foreground(tcell.GetColor("#e06c75")))
	t.Set("attr-name", tcell.StyleDefault.Foreground(tcell.GetColor("#d19a66")))
	t.Set("attr-value", tcell.StyleDefault.Foreground(tcell.GetColor("#98c379")))
	t.Set("string", tcell.StyleDefault.Foreground(tcell.GetColor("#98c379")))
	t.Set("number", tcell.StyleDefault.Foreground(tcell.GetColor("#d19a66")))
	t.Set("boolean", tcell.StyleDefault.Foreground(tcell.GetColor("#d19a66")))
	t.Set("keyword", tcell.StyleDefault.Foreground(tcell.GetColor("#c678dd")).Bold(true))
	t.Set("operator", tcell.StyleDefault.Foreground(tcell.GetColor("#56b6c2")))
	t.Set("regex", tcell.StyleDefault.Foreground(tcell.GetColor("#e5c07b")))
	t.Set("entity", tcell.StyleDefault.Foreground(tcell.GetColor("#e5c07b")))
	t.Set("url", tcell.StyleDefault.Foreground(tcell.GetColor("#61afef")))
	t.Set("selector", tcell.StyleDefault.Foreground(tcell.GetColor("#e5c07b")))
	t.Set("property", tcell.StyleDefault.Foreground(tcell.GetColor("#61afef")))
	t.Set("atrule", tcell.StyleDefault.Foreground(tcell.GetColor("#c678dd")))
	t.Set("important", tcell.StyleDefault.Foreground(tcell.GetColor("#e06c75")).Bold(true))
	t.Set("annotation", tcell.StyleDefault.Foreground(tcell.GetColor("#e5c07b")))
	return t
}

func (t *Theme) Set(typ string, style tcell.Style) {
	t.styles[typ] = style
}

func (t *Theme) Style(typ string) (tcell.Style, bool) {
	s, ok := t.styles[typ]
	return s, ok
}

// Types lists the styled token types, sorted.
func (t *Theme) Types() []string {
	types := make([]string, 0, len(t.styles))
	for k := range t.styles {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

type themeEntry struct {
	Fg     string `yaml:"fg"`
	Bg     string `yaml:"bg"`
	Bold   bool   `yaml:"bold"`
	Italic bool   `yaml:"italic"`
	Dim    bool   `yaml:"dim"`
}

// LoadTheme reads a YAML theme:
//
//	keyword: { fg: "#c678dd", bold: true }
//	comment: { fg: slategray, italic: true }
//
// Colors are W3C names or #rrggbb. Entries are layered over base, which may
// be nil.
func LoadTheme(r io.Reader, base *Theme) (*Theme, error) {
	var entries map[string]themeEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode theme: %w", err)
	}

	t := NewTheme()
	if base != nil {
		for k, v := range base.styles {
			t.styles[k] = v
		}
	}

	for typ, e := range entries {
		style := tcell.StyleDefault
		if e.Fg != "" {
			c := tcell.GetColor(e.Fg)
			if !c.Valid() {
				return nil, fmt.Errorf("theme %s: unknown color %q", typ, e.Fg)
			}
			style = style.Foreground(c)
		}
		if e.Bg != "" {
			c := tcell.GetColor(e.Bg)
			if !c.Valid() {
				return nil, fmt.Errorf("theme %s: unknown color %q", typ, e.Bg)
			}
			style = style.Background(c)
		}
		t.styles[typ] = style.Bold(e.Bold).Italic(e.Italic).Dim(e.Dim)
	}

	return t, nil
}

// ANSI renders a token stream with true-color SGR sequences.
type ANSI struct {
	Theme *Theme
}

func NewANSI(theme *Theme) *ANSI {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &ANSI{Theme: theme}
}

func (a *ANSI) Render(s types.Stream) string {
	var sb strings.Builder
	a.render(&sb, s, "")
	return sb.String()
}

func (a *ANSI) render(sb *strings.Builder, s types.Stream, sgr string) {
	for _, t := range s {
		if t.IsLeaf() {
			writeStyled(sb, t.Text, sgr)
			continue
		}
		inner := sgr
		if style, ok := a.Theme.Style(t.Type); ok {
			inner = StyleSGR(style)
		}
		a.render(sb, t.Content, inner)
	}
}

// writeStyled resets at every line end so a pager never carries color over.
func writeStyled(sb *strings.Builder, text, sgr string) {
	if sgr == "" || text == "" {
		sb.WriteString(text)
		return
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		if line == "" {
			continue
		}
		sb.WriteString(sgr)
		sb.WriteString(line)
		sb.WriteString(sgrReset)
	}
}

// StyleSGR returns the escape sequence selecting style, or "" for the
// default style.
func StyleSGR(style tcell.Style) string {
	fg, bg, attr := style.Decompose()

	var codes []string
	if attr&tcell.AttrBold != 0 {
		codes = append(codes, "1")
	}
	if attr&tcell.AttrDim != 0 {
		codes = append(codes, "2")
	}
	if attr&tcell.AttrItalic != 0 {
		codes = append(codes, "3")
	}
	if fg.Valid() {
		r, g, b := fg.RGB()
		codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", r, g, b))
	}
	if bg.Valid() {
		r, g, b := bg.RGB()
		codes = append(codes, fmt.Sprintf("48;2;%d;%d;%d", r, g, b))
	}

	if len(codes) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(codes, ";") + "m"
}
