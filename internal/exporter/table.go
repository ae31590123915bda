package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/AnoJokamp354/Prism/internal/types"
)

// ExportTokensToTable writes one row per token, in document order, with its
// nesting depth and rune offset into the source text.
func ExportTokensToTable(s types.Stream, writer io.Writer) error {
	fmt.Fprintln(writer, "┌─────────┬───────┬────────┬──────────────────────────────────┬──────────────────────────────────────┐")
	fmt.Fprintf(writer, "│ %-7s │ %-5s │ %-6s │ %-32s │ %-36s │\n", "Token", "Depth", "Pos", "Type", "Text")
	fmt.Fprintln(writer, "├─────────┼───────┼────────┼──────────────────────────────────┼──────────────────────────────────────┤")

	row := 0
	var walk func(s types.Stream, depth, pos int) int
	walk = func(s types.Stream, depth, pos int) int {
		for _, token := range s {
			row++
			typ := "TEXT"
			if !token.IsLeaf() {
				typ = strings.Repeat("  ", depth) + token.Type
			}
			fmt.Fprintf(writer, "│ %-7d │ %-5d │ %-6d │ %-32s │ %-36s │\n",
				row, depth, pos, truncate(typ, 32), truncate(token.Flatten(), 36))

			if token.IsLeaf() {
				pos += len([]rune(token.Text))
			} else {
				pos = walk(token.Content, depth+1, pos)
			}
		}
		return pos
	}
	walk(s, 0, 0)

	fmt.Fprintln(writer, "└─────────┴───────┴────────┴──────────────────────────────────┴──────────────────────────────────────┘")

	return nil
}

func truncate(s string, maxLen int) string {
	s = fmt.Sprintf("%q", s)

	// Remove quote added by %q
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if r := []rune(s); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return s
}
