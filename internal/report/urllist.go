package report

import (
	"io"
	"strings"

	"github.com/crawlscope/crawlscope/internal/model"
)

// URLListWriter outputs the discovered URLs as plain text, one absolute
// URL per line in lexicographic order. This is the format written to
// the output file so it can be diffed between runs.
type URLListWriter struct {
	baseWriter
}

// NewURLListWriter creates a URLListWriter that outputs to the given writer.
func NewURLListWriter(output io.Writer) *URLListWriter {
	return &URLListWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the sorted URL list. Every line including the last is
// newline terminated. An empty report produces an empty output.
func (w *URLListWriter) Write(report *model.CrawlReport) (int, error) {
	urls := report.SortedFound()
	if len(urls) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	for _, u := range urls {
		sb.WriteString(u)
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}
