package exporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/AnoJokamp354/Prism/internal/types"
)

type StreamJSONOutput struct {
	Language string            `json:"language,omitempty"`
	Tokens   types.Stream      `json:"tokens"`
	Stats    *types.TokenStats `json:"stats,omitempty"`
}

// ExportJSON writes s in its wire format, indented. stats is optional.
func ExportJSON(language string, s types.Stream, stats *types.TokenStats, w io.Writer) error {
	output := StreamJSONOutput{
		Language: language,
		Tokens:   s,
		Stats:    stats,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON serialization error: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("error writing JSON: %w", err)
	}
	return nil
}
