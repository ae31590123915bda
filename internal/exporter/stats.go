package exporter

import (
	"fmt"
	"io"
	"sort"

	"github.com/AnoJokamp354/Prism/internal/types"
)

func DisplayStats(stats types.TokenStats, writer io.Writer) {
	type typeCount struct {
		Type  string
		Count int
	}

	var typeCounts []typeCount

	fmt.Fprintln(writer, "=== Token Statistics ===")
	fmt.Fprintln(writer)
	fmt.Fprintf(writer, "  Text length: %d runes\n", stats.TotalTextLength)
	fmt.Fprintf(writer, "  Tokenized: %d runes (%.1f%%)\n", stats.TokenizedLength, stats.TokenizedRatio)
	fmt.Fprintf(writer, "  Total tokens: %d\n", stats.TotalTokens)
	fmt.Fprintf(writer, "  Total leaves: %d\n", stats.TotalLeaves)
	fmt.Fprintf(writer, "  Max depth: %d\n", stats.MaxDepth)
	if stats.Aborted {
		fmt.Fprintln(writer, "  Aborted: yes (runaway guard)")
	}

	if len(stats.TokensByType) == 0 {
		return
	}

	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "--- Tokens by Type")

	for t, count := range stats.TokensByType {
		typeCounts = append(typeCounts, typeCount{t, count})
	}
	sort.Slice(typeCounts, func(i, j int) bool {
		if typeCounts[i].Count != typeCounts[j].Count {
			return typeCounts[i].Count > typeCounts[j].Count
		}
		return typeCounts[i].Type < typeCounts[j].Type
	})

	for _, tc := range typeCounts {
		percentage := float64(tc.Count) / float64(stats.TotalTokens) * 100
		fmt.Fprintf(writer, "  %-30s:  %5d (%.1f%%)\n", tc.Type, tc.Count, percentage)
	}
}
