// Package report renders crawl results for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable summary for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown for documentation
//   - URLListWriter: plain sorted URL list, one per line
//
// Design decision: Report writing is separated from the report data
// structures (in the model package) so new formats can be added without
// touching the crawl engine. Writers implement the Writer interface and
// can be composed with MultiWriter for multi-destination output.
package report
