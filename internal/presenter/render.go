// Package presenter writes ranked search results for terminal output.
package presenter

import (
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/resultset"
)

const emptyMessage = "(No results found.)"

// Render writes one "<doc id> (<score>)" line per entry, in the order given.
func Render(w io.Writer, entries []resultset.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, emptyMessage)
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s (%d)\n", e.DocID, e.Score); err != nil {
			return fmt.Errorf("rendering %s: %w", e.DocID, err)
		}
	}
	return nil
}

// RenderSet sorts rs by ascending relevance and renders it.
func RenderSet(w io.Writer, rs *resultset.ResultSet) error {
	return Render(w, rs.Sort())
}
