package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBadStatus is returned by a Fetcher for any non-200 response.
// The engine treats it like any other fetch failure: the page stays in
// the found set, but contributes no links.
var ErrBadStatus = errors.New("unexpected HTTP status")

// FetchResult is the outcome of a successful page fetch.
type FetchResult struct {
	// StatusCode is the HTTP response status.
	StatusCode int

	// ContentType is the value of the Content-Type response header.
	ContentType string

	// Body is the response body, capped at the fetcher's size limit.
	Body []byte
}

// Fetcher retrieves raw page content for the traversal engine.
// Implementations own all network concerns: timeouts, redirects,
// and status-code interpretation.
//
// Design decision: Failures are reported as explicit error returns rather
// than sentinel results so the engine can pattern-match on the outcome and
// keep per-URL errors strictly local to one iteration.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// HTTPFetcher fetches pages with a plain HTTP GET.
type HTTPFetcher struct {
	// client performs the requests. Its Timeout bounds each fetch.
	client *http.Client

	// userAgent identifies the crawler to servers.
	userAgent string

	// maxBodySize limits how much of a response body is read.
	maxBodySize int64

	// headers are extra request headers applied after the defaults.
	headers map[string]string
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size in bytes.
func WithMaxBodySize(size int64) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders sets extra headers sent with every request, such as
// authentication cookies from a site config entry.
func WithHeaders(headers map[string]string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// NewHTTPFetcher creates an HTTPFetcher using the given client.
//
// Design decision: We require an external client rather than building one
// because it keeps timeout policy with the caller and lets tests inject
// httptest server clients.
func NewHTTPFetcher(client *http.Client, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   "Mozilla/5.0 (compatible; crawlscope/1.0)",
		maxBodySize: 5 * 1024 * 1024, // 5MB
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch performs a GET request and returns the page content.
// Any non-200 response is a failure; the partial result carries the
// status code so callers can record it.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchResult{StatusCode: resp.StatusCode}, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
