package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crawlscope/crawlscope/internal/model"
)

// MarkdownWriter outputs crawl reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	titleCaser cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}
}

// Write outputs the crawl report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeDiscovered(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + report.Seed + "`"},
			{"Scope", "`" + report.Authority + "`"},
			{"Maximum Depth", strconv.Itoa(report.MaxDepth)},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().String()},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	status := w.titleCaser.String(report.Status())
	if report.Interrupted {
		return "⚠️ " + status + " (partial results)"
	}
	return "✅ " + status
}

// writeSummary writes the crawl statistics section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"URLs Discovered", strconv.Itoa(len(report.Found))},
			{"Pages Fetched", strconv.Itoa(report.PagesCrawled)},
			{"Fetch Errors", strconv.Itoa(report.FetchErrors)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.Interrupted:
		md.Warningf(
			"Crawl was interrupted before completion. %d URL(s) were discovered before the interruption.",
			len(report.Found),
		)
	case report.FetchErrors > 0:
		md.Note(fmt.Sprintf(
			"%d page(s) could not be fetched. Their URLs are still recorded as discovered.",
			report.FetchErrors,
		))
	default:
		md.Tip("All pages within scope were fetched successfully.")
	}
	md.PlainText("")
}

// writePages writes the per-page fetch results table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.Pages) == 0 {
		return
	}

	md.H2("Fetched Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Pages))
	for _, page := range report.Pages {
		result := strconv.Itoa(page.StatusCode)
		if page.Error != "" {
			result = "error"
		}
		rows = append(rows, []string{
			"`" + page.URL + "`",
			strconv.Itoa(page.Depth),
			result,
			strconv.Itoa(page.Links),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Result", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeDiscovered writes the sorted list of discovered URLs.
func (w *MarkdownWriter) writeDiscovered(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Discovered URLs")
	md.PlainText("")

	if len(report.Found) == 0 {
		md.PlainText("No URLs discovered.")
		md.PlainText("")
		return
	}

	items := make([]string, 0, len(report.Found))
	for _, u := range report.SortedFound() {
		items = append(items, "`"+u+"`")
	}
	md.BulletList(items...)
	md.PlainText("")
}
