package exporter

import (
	"fmt"
	"io"

	"github.com/AnoJokamp354/Prism/internal/types"
)

// ExportText writes the concatenated text of s, without any markup.
func ExportText(s types.Stream, w io.Writer) error {
	if _, err := io.WriteString(w, s.Text()); err != nil {
		return fmt.Errorf("error writing text: %w", err)
	}
	return nil
}
