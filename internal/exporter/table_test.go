package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AnoJokamp354/Prism/internal/types"
)

func TestExportTokensToTable(t *testing.T) {
	s := types.Stream{
		types.Node("tag", types.Node("punctuation", types.Leaf("<")), types.Leaf("b")),
		types.Leaf("é x"),
		types.Node("keyword", types.Leaf("if")),
	}

	var buf bytes.Buffer
	if err := ExportTokensToTable(s, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	// header (3) + tag, punctuation, "<", "b", "é x", keyword, "if" + footer
	if len(lines) != 3+7+1 {
		t.Fatalf("expected 11 lines, got %d:\n%s", len(lines), out)
	}

	rows := []string{
		"│ 1       │ 0     │ 0      │ tag ",
		"│ 2       │ 1     │ 0      │   punctuation ",
		"│ 3       │ 2     │ 0      │ TEXT ",
		"│ 4       │ 1     │ 1      │ TEXT ",
		"│ 5       │ 0     │ 2      │ TEXT ",
		"│ 6       │ 0     │ 5      │ keyword ",
		"│ 7       │ 1     │ 5      │ TEXT ",
	}
	for i, prefix := range rows {
		if !strings.HasPrefix(lines[3+i], prefix) {
			t.Fatalf("row %d: expected prefix %q, got %q", i+1, prefix, lines[3+i])
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"abc", 10, "abc"},
		{"abcdef", 5, "ab..."},
		{"a\nb", 10, `a\nb`},
		{"ééééééé", 5, "éé..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Fatalf("truncate(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}
