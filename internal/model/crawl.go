package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"time"
)

// CrawlReport holds the complete result of a single crawl run.
// It is populated incrementally by the traversal engine so that an
// interrupted run still carries every URL processed up to that point.
//
// Design decision: Found is an append-only slice in processing order rather
// than a map because:
//  1. The engine already guarantees uniqueness via its visited set
//  2. Processing order is useful for debugging breadth-first behavior
//  3. Sorted output is produced on demand by SortedFound
type CrawlReport struct {
	// Seed is the normalized starting URL of the crawl.
	Seed string `json:"seed"`

	// Authority is the scheme://host[:port] scope derived from the seed.
	// Every URL in Found shares this authority.
	Authority string `json:"authority"`

	// MaxDepth is the configured depth limit for this run.
	MaxDepth int `json:"max_depth"`

	// StartedAt is when the traversal began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the traversal reached a terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is true when the run was cancelled before the frontier
	// drained. Found and Pages still reflect everything processed.
	Interrupted bool `json:"interrupted"`

	// Found contains every URL recorded by the engine, in processing order.
	Found []string `json:"found"`

	// PagesCrawled is the number of pages actually fetched for expansion.
	// Pages at the depth limit are recorded but never fetched, so this is
	// at most len(Found).
	PagesCrawled int `json:"pages_crawled"`

	// FetchErrors counts pages whose fetch or parse failed. Failures are
	// non-fatal; the page stays in Found with zero outgoing links.
	FetchErrors int `json:"fetch_errors"`

	// Pages holds per-page fetch results for pages that were expanded.
	Pages []PageResult `json:"pages,omitempty"`
}

// PageResult records the outcome of fetching a single page.
type PageResult struct {
	// URL is the normalized page URL.
	URL string `json:"url"`

	// Depth is the hop distance from the seed.
	Depth int `json:"depth"`

	// StatusCode is the HTTP response status, or zero if the request
	// never completed.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the MIME type reported by the server.
	ContentType string `json:"content_type,omitempty"`

	// Title is the page title from the <title> tag, if any.
	Title string `json:"title,omitempty"`

	// Hash is the SHA-256 hex digest of the response body.
	Hash string `json:"hash,omitempty"`

	// Links is the number of in-scope links discovered on the page.
	Links int `json:"links"`

	// Error describes a fetch or parse failure, empty on success.
	Error string `json:"error,omitempty"`

	// FetchedAt is when the fetch was attempted.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewCrawlReport creates a report for the given normalized seed URL.
// The authority is derived from the seed; a seed that fails to parse
// yields an empty authority, which the engine rejects before crawling.
func NewCrawlReport(seed string, maxDepth int) *CrawlReport {
	return &CrawlReport{
		Seed:      seed,
		Authority: AuthorityOf(seed),
		MaxDepth:  maxDepth,
		StartedAt: time.Now(),
		Found:     make([]string, 0),
		Pages:     make([]PageResult, 0),
	}
}

// AuthorityOf returns the scheme://host[:port] component of a URL,
// or the empty string if the URL does not parse.
func AuthorityOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// SortedFound returns a lexicographically sorted copy of the found set.
// The crawl order in Found is left untouched.
func (r *CrawlReport) SortedFound() []string {
	sorted := make([]string, len(r.Found))
	copy(sorted, r.Found)
	sort.Strings(sorted)
	return sorted
}

// Duration returns the elapsed time of the run.
// For a run still in progress it measures up to now.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status returns a short human-readable state for the run.
func (r *CrawlReport) Status() string {
	if r.Interrupted {
		return "interrupted"
	}
	if r.FinishedAt.IsZero() {
		return "running"
	}
	return "completed"
}

// HashContent returns the SHA-256 hex digest of a response body.
// Used by the engine when recording page results.
func HashContent(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
