package exporter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/AnoJokamp354/Prism/internal/types"
)

func TestExportJSON(t *testing.T) {
	s := types.Stream{types.Node("keyword", types.Leaf("var")), types.Leaf(" a")}

	var buf bytes.Buffer
	if err := ExportJSON("js", s, nil, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{
  "language": "js",
  "tokens": [
    {
      "type": "keyword",
      "content": "var"
    },
    " a"
  ]
}
`
	if buf.String() != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestExportJSON_WithStats(t *testing.T) {
	s := types.Stream{types.Node("number", types.Leaf("1"))}
	stats := s.Stats()

	var buf bytes.Buffer
	if err := ExportJSON("", s, &stats, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out StreamJSONOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Language != "" {
		t.Fatalf("expected no language, got %q", out.Language)
	}
	if out.Stats == nil || out.Stats.TotalTokens != 1 {
		t.Fatalf("expected stats with 1 token, got %+v", out.Stats)
	}
	if out.Tokens.Text() != "1" {
		t.Fatalf("expected tokens to round trip, got %s", out.Tokens)
	}
}
