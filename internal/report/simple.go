package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/crawlscope/crawlscope/internal/model"
)

// fmtRound is the precision used when displaying the crawl duration.
const fmtRound = time.Millisecond

// SimpleWriter outputs a human-readable crawl summary.
// This format is designed for terminal display.
//
// Design decision: Plain text with ASCII formatting rather than ANSI
// colors because it works in all terminals and pipes cleanly to files.
type SimpleWriter struct {
	baseWriter

	// verbose includes the per-page fetch results in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-page detail in the summary.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl summary.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("Crawl Summary\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Seed URL:        %s\n", report.Seed))
	sb.WriteString(fmt.Sprintf("Scope:           %s\n", report.Authority))
	sb.WriteString(fmt.Sprintf("Maximum depth:   %d\n", report.MaxDepth))
	sb.WriteString(fmt.Sprintf("URLs discovered: %d\n", len(report.Found)))
	sb.WriteString(fmt.Sprintf("Pages fetched:   %d\n", report.PagesCrawled))
	if report.FetchErrors > 0 {
		sb.WriteString(fmt.Sprintf("Fetch errors:    %d\n", report.FetchErrors))
	}
	sb.WriteString(fmt.Sprintf("Duration:        %s\n", report.Duration().Round(fmtRound)))

	if report.Interrupted {
		sb.WriteString("Status:          INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:          Complete\n")
	}

	if w.verbose && len(report.Pages) > 0 {
		sb.WriteString(strings.Repeat("-", 60))
		sb.WriteString("\n")
		for _, page := range report.Pages {
			if page.Error != "" {
				sb.WriteString(fmt.Sprintf("  [depth %d] %s  ERROR: %s\n", page.Depth, page.URL, page.Error))
				continue
			}
			sb.WriteString(fmt.Sprintf("  [depth %d] %s  (%d, %d links)\n", page.Depth, page.URL, page.StatusCode, page.Links))
		}
	}

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}
