package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenJSON_WireFormat(t *testing.T) {
	s := Stream{
		Leaf("a"),
		Node("operator", Leaf("+")),
		Node("tag", Node("punctuation", Leaf("<")), Leaf("b")),
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `[
		"a",
		{"type": "operator", "content": "+"},
		{"type": "tag", "content": [{"type": "punctuation", "content": "<"}, "b"]}
	]`, string(data))
}

func TestTokenJSON_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Stream
	}{
		{
			name:  "leaf and node with string content",
			input: `["x", {"type": "keyword", "content": "var"}]`,
			want:  Stream{Leaf("x"), Node("keyword", Leaf("var"))},
		},
		{
			name:  "nested content array",
			input: `[{"type": "a", "content": ["p", {"type": "b", "content": "q"}]}]`,
			want:  Stream{Node("a", Leaf("p"), Node("b", Leaf("q")))},
		},
		{
			name:  "single object content",
			input: `[{"type": "a", "content": {"type": "b", "content": "q"}}]`,
			want:  Stream{Node("a", Node("b", Leaf("q")))},
		},
		{
			name:  "null content",
			input: `[{"type": "a", "content": null}]`,
			want:  Stream{Node("a", Leaf(""))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Stream
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTokenJSON_UnmarshalErrors(t *testing.T) {
	for _, input := range []string{
		`[{"content": "x"}]`,
		`[42]`,
		`[{"type": "a", "content": 42}]`,
	} {
		var s Stream
		if err := json.Unmarshal([]byte(input), &s); err == nil {
			t.Fatalf("expected error for %s", input)
		}
	}
}

func TestStream_Text(t *testing.T) {
	s := Stream{
		Leaf("var "),
		Node("a", Node("b", Leaf("x")), Leaf("y")),
		Leaf(";"),
	}

	if got := s.Text(); got != "var xy;" {
		t.Fatalf("expected %q, got %q", "var xy;", got)
	}
	if got := s[1].Flatten(); got != "xy" {
		t.Fatalf("expected %q, got %q", "xy", got)
	}
}

func TestStream_String(t *testing.T) {
	s := Stream{Leaf("a"), Node("operator", Leaf("+"))}
	want := `["a", operator(["+"])]`
	if got := s.String(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestStream_Walk(t *testing.T) {
	s := Stream{
		Node("a", Node("b", Leaf("x")), Leaf("y")),
		Leaf("z"),
		Node("c", Leaf("w")),
	}

	var visited []string
	var depths []int
	s.Walk(func(tok Token, depth int) {
		visited = append(visited, tok.Type)
		depths = append(depths, depth)
	})

	require.Equal(t, []string{"a", "b", "c"}, visited)
	require.Equal(t, []int{0, 1, 0}, depths)
}

func TestStream_Stats(t *testing.T) {
	s := Stream{
		Leaf("ab"),
		Node("a", Node("b", Leaf("x")), Leaf("y")),
		Node("a", Leaf("é")),
	}

	stats := s.Stats()
	require.Equal(t, 3, stats.TotalTokens)
	require.Equal(t, 4, stats.TotalLeaves)
	require.Equal(t, map[string]int{"a": 2, "b": 1}, stats.TokensByType)
	require.Equal(t, 2, stats.MaxDepth)
	require.Equal(t, 5, stats.TotalTextLength, "lengths count runes")
	require.Equal(t, 3, stats.TokenizedLength)
	require.InDelta(t, 60.0, stats.TokenizedRatio, 0.001)
	require.False(t, stats.Aborted)
}
