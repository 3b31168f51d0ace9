package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/crawlscope/crawlscope/internal/model"
)

// JSONWriter outputs crawl results in JSON format.
// Useful for piping to jq or ingesting into other tools.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(indent bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = indent
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		indent:     true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl report as JSON.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	var (
		data []byte
		err  error
	)

	if w.indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to marshal crawl report: %w", err)
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
