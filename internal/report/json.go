package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/masahif/sitedigest/internal/crawler"
)

// JSONWriter outputs the page records as an indented JSON array.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

// Write outputs the records of doc.
func (w *JSONWriter) Write(doc *Document) error {
	pages := doc.Pages
	if pages == nil {
		pages = []crawler.PageRecord{}
	}

	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pages); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}
	return nil
}
