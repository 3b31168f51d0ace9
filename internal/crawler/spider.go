package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/crawlscope/crawlscope/internal/model"
)

// State describes the traversal engine's lifecycle.
type State int

// Engine lifecycle states. A spider moves from Idle to Running when a
// crawl starts and ends in either Completed (frontier drained) or
// Interrupted (context cancelled). Both terminal states leave the found
// and visited sets valid for reporting.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateInterrupted
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Spider is the bounded-depth, same-domain traversal engine.
// It owns the frontier, the visited set, and the found set; collaborators
// handle fetching, link extraction, and pacing.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// fetcher retrieves page content.
	fetcher Fetcher

	// extractor pulls links out of fetched pages.
	extractor Extractor

	// maxDepth limits how many hops from the seed are expanded.
	// 0 means the seed is recorded but never fetched.
	maxDepth int

	// maxPages caps the total number of pages recorded.
	// 0 means unlimited.
	maxPages int

	// limiter enforces the politeness delay between fetches.
	limiter Limiter

	// recordPages controls whether per-page results are kept on the report.
	recordPages bool

	// logger receives per-URL failures and progress at debug level.
	logger *slog.Logger

	// state is the current lifecycle phase.
	state State
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the depth limit.
// 0 = record the seed only, 1 = seed plus directly linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages caps the total number of recorded pages. 0 means no cap.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithLimiter sets the pacing policy between fetches.
func WithLimiter(l Limiter) SpiderOption {
	return func(s *Spider) {
		s.limiter = l
	}
}

// WithDelay is shorthand for WithLimiter(FixedDelay{Interval: d}).
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.limiter = FixedDelay{Interval: d}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithPageResults controls whether per-page fetch results are recorded
// on the report. Enabled by default; large crawls may disable it.
func WithPageResults(record bool) SpiderOption {
	return func(s *Spider) {
		s.recordPages = record
	}
}

// NewSpider creates a Spider with the given collaborators.
func NewSpider(fetcher Fetcher, extractor Extractor, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     fetcher,
		extractor:   extractor,
		maxDepth:    3,
		limiter:     FixedDelay{Interval: 100 * time.Millisecond},
		recordPages: true,
		state:       StateIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// State returns the engine's current lifecycle phase.
func (s *Spider) State() State {
	return s.state
}

// Crawl runs a breadth-first traversal from the seed URL and returns the
// accumulated report. On cancellation the report holds every URL processed
// up to that point and the returned error is the context's.
//
// The loop processes one frontier entry per iteration:
//
//  1. dequeue the head entry
//  2. discard it if already visited (pages can be enqueued twice before
//     either copy is processed)
//  3. discard it if deeper than the limit (defensive; enqueue-time
//     filtering should make this unreachable)
//  4. record the URL into the visited and found sets
//  5. stop there if the entry sits exactly at the depth limit: the page
//     is recorded but never fetched
//  6. otherwise fetch, extract, normalize, filter, and enqueue children
//     at depth+1, then apply the politeness delay
func (s *Spider) Crawl(ctx context.Context, seedURL string) (*model.CrawlReport, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		seed.Scheme = "http"
	}
	if seed.Host == "" {
		return nil, fmt.Errorf("seed URL has no host: %q", seedURL)
	}

	normalizedSeed := Normalize(seed.String())
	report := model.NewCrawlReport(normalizedSeed, s.maxDepth)

	visited := NewVisitedSet()
	filter := NewFilter(seed, visited)
	frontier := NewFrontier()
	frontier.Push(Entry{URL: normalizedSeed, Depth: 0})

	s.state = StateRunning

	for {
		if err := ctx.Err(); err != nil {
			return s.finish(report, StateInterrupted), err
		}

		entry, ok := frontier.Pop()
		if !ok {
			return s.finish(report, StateCompleted), nil
		}

		if visited.Has(entry.URL) {
			continue
		}
		if entry.Depth > s.maxDepth {
			continue
		}

		visited.Add(entry.URL)
		report.Found = append(report.Found, entry.URL)
		s.logger.Debug("recorded URL", "url", entry.URL, "depth", entry.Depth)

		if s.maxPages > 0 && len(report.Found) >= s.maxPages {
			s.logger.Debug("page cap reached", "maxPages", s.maxPages)
			return s.finish(report, StateCompleted), nil
		}

		// Depth limit reached: record only, no expansion.
		if entry.Depth == s.maxDepth {
			continue
		}

		s.expand(ctx, report, frontier, filter, entry)

		if frontier.Len() > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return s.finish(report, StateInterrupted), err
			}
		}
	}
}

// expand fetches one page and enqueues its in-scope links.
// Fetch and parse failures are logged and swallowed: the page stays in
// the found set and contributes zero links.
func (s *Spider) expand(ctx context.Context, report *model.CrawlReport, frontier *Frontier, filter *Filter, entry Entry) {
	page := model.PageResult{
		URL:       entry.URL,
		Depth:     entry.Depth,
		FetchedAt: time.Now(),
	}
	report.PagesCrawled++

	result, err := s.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		s.logger.Warn("fetch failed", "url", entry.URL, "error", err)
		report.FetchErrors++
		page.Error = err.Error()
		if result != nil {
			page.StatusCode = result.StatusCode
		}
		s.record(report, page)
		return
	}

	page.StatusCode = result.StatusCode
	page.ContentType = result.ContentType
	page.Hash = model.HashContent(result.Body)

	if !strings.Contains(result.ContentType, "text/html") {
		s.record(report, page)
		return
	}

	extracted, err := s.extractor.Extract(entry.URL, bytes.NewReader(result.Body))
	if err != nil {
		s.logger.Warn("extraction failed", "url", entry.URL, "error", err)
		report.FetchErrors++
		page.Error = err.Error()
		s.record(report, page)
		return
	}

	page.Title = extracted.Title

	for _, link := range extracted.Links {
		normalized := Normalize(link)
		if filter.InScope(normalized) {
			frontier.Push(Entry{URL: normalized, Depth: entry.Depth + 1})
			page.Links++
		}
	}

	s.record(report, page)
}

// record appends a page result when page recording is enabled.
func (s *Spider) record(report *model.CrawlReport, page model.PageResult) {
	if s.recordPages {
		report.Pages = append(report.Pages, page)
	}
}

// finish stamps the report with the terminal state and returns it.
func (s *Spider) finish(report *model.CrawlReport, state State) *model.CrawlReport {
	s.state = state
	report.FinishedAt = time.Now()
	report.Interrupted = state == StateInterrupted
	return report
}
