package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestSpider creates a spider wired to an httptest server with the
// politeness delay disabled.
func newTestSpider(server *httptest.Server, opts ...SpiderOption) *Spider {
	fetcher := NewHTTPFetcher(server.Client())
	base := []SpiderOption{WithDelay(0)}
	return NewSpider(fetcher, NewHTMLExtractor(), append(base, opts...)...)
}

// htmlHandler serves a fixed HTML body.
func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test handler
	}
}

// TestSpiderDepthZero verifies a depth-0 crawl records the seed without
// fetching anything at all.
func TestSpiderDepthZero(t *testing.T) {
	t.Parallel()

	var requests int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="/next">next</a></body></html>`)) //nolint:errcheck
	}))
	defer server.Close()

	spider := newTestSpider(server, WithMaxDepth(0))

	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Found) != 1 {
		t.Fatalf("expected 1 found URL, got %d: %v", len(report.Found), report.Found)
	}
	if report.Found[0] != server.URL+"/" {
		t.Errorf("expected seed %q in found set, got %q", server.URL+"/", report.Found[0])
	}
	if requests != 0 {
		t.Errorf("expected no fetches at depth 0, got %d", requests)
	}
	if spider.State() != StateCompleted {
		t.Errorf("expected state completed, got %s", spider.State())
	}
}

// TestSpiderDomainScoping verifies out-of-domain links are excluded.
func TestSpiderDomainScoping(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(
		`<html><body><a href="/x">in</a><a href="http://b.test/y">out</a></body></html>`))

	spider := newTestSpider(server, WithMaxDepth(1))

	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{
		server.URL + "/":  true,
		server.URL + "/x": true,
	}
	if len(report.Found) != len(want) {
		t.Fatalf("expected %d URLs, got %d: %v", len(want), len(report.Found), report.Found)
	}
	for _, url := range report.Found {
		if !want[url] {
			t.Errorf("unexpected URL in found set: %q", url)
		}
		if strings.Contains(url, "b.test") {
			t.Errorf("out-of-domain URL leaked into found set: %q", url)
		}
	}
}

// TestSpiderCycleTerminates verifies mutual links do not loop forever.
func TestSpiderCycleTerminates(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(`<html><body><a href="/b">b</a></body></html>`))
	mux.HandleFunc("/b", htmlHandler(`<html><body><a href="/">a</a></body></html>`))

	spider := newTestSpider(server, WithMaxDepth(5))

	done := make(chan struct{})
	var found []string
	go func() {
		defer close(done)
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		found = report.Found
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("crawl of a two-page cycle did not terminate")
	}

	if len(found) != 2 {
		t.Errorf("expected 2 URLs from the cycle, got %d: %v", len(found), found)
	}
}

// TestSpiderFetchFailure verifies a failing page stays in the found set
// and contributes no links.
func TestSpiderFetchFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(`<html><body><a href="/broken">broken</a></body></html>`))
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	spider := newTestSpider(server, WithMaxDepth(2))

	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawBroken bool
	for _, url := range report.Found {
		if strings.HasSuffix(url, "/broken") {
			sawBroken = true
		}
	}
	if !sawBroken {
		t.Errorf("expected /broken to be recorded before its fetch failed: %v", report.Found)
	}
	if len(report.Found) != 2 {
		t.Errorf("expected 2 URLs (no links from the failed page), got %d: %v", len(report.Found), report.Found)
	}
	if report.FetchErrors != 1 {
		t.Errorf("expected 1 fetch error, got %d", report.FetchErrors)
	}
}

// TestSpiderInterruption verifies cancellation preserves partial results.
func TestSpiderInterruption(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(
		`<html><body><a href="/p1">1</a><a href="/p2">2</a><a href="/p3">3</a></body></html>`))
	slow := func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>slow</body></html>`)) //nolint:errcheck
	}
	mux.HandleFunc("/p1", slow)
	mux.HandleFunc("/p2", slow)
	mux.HandleFunc("/p3", slow)

	ctx, cancel := context.WithCancel(context.Background())
	spider := newTestSpider(server, WithMaxDepth(3))

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
		close(release)
	}()

	report, err := spider.Crawl(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil {
		t.Fatal("expected a partial report on interruption")
	}
	if !report.Interrupted {
		t.Error("expected report to be marked interrupted")
	}
	if spider.State() != StateInterrupted {
		t.Errorf("expected state interrupted, got %s", spider.State())
	}
	if len(report.Found) == 0 {
		t.Error("expected at least the seed in the partial found set")
	}
}

// TestSpiderBreadthFirstOrder verifies all depth-d URLs are recorded
// before any depth-(d+1) URL.
func TestSpiderBreadthFirstOrder(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(`<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`))
	mux.HandleFunc("/a", htmlHandler(`<html><body><a href="/a/deep">deep</a></body></html>`))
	mux.HandleFunc("/b", htmlHandler(`<html><body></body></html>`))
	mux.HandleFunc("/a/deep", htmlHandler(`<html><body></body></html>`))

	spider := newTestSpider(server, WithMaxDepth(2))

	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	depthOf := map[string]int{
		server.URL + "/":       0,
		server.URL + "/a":      1,
		server.URL + "/b":      1,
		server.URL + "/a/deep": 2,
	}

	lastDepth := -1
	for _, url := range report.Found {
		depth, ok := depthOf[url]
		if !ok {
			t.Fatalf("unexpected URL in found set: %q", url)
		}
		if depth < lastDepth {
			t.Errorf("URL %q at depth %d recorded after depth %d", url, depth, lastDepth)
		}
		lastDepth = depth
	}
	if len(report.Found) != 4 {
		t.Errorf("expected 4 URLs, got %d: %v", len(report.Found), report.Found)
	}
}

// TestSpiderDedup verifies a page linked from many places is fetched once.
func TestSpiderDedup(t *testing.T) {
	t.Parallel()

	var sharedFetches int
	var mu sync.Mutex
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(
		`<html><body><a href="/a">a</a><a href="/b">b</a><a href="/shared">s</a></body></html>`))
	mux.HandleFunc("/a", htmlHandler(`<html><body><a href="/shared">s</a></body></html>`))
	mux.HandleFunc("/b", htmlHandler(`<html><body><a href="/shared">s</a></body></html>`))
	mux.HandleFunc("/shared", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		sharedFetches++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>shared</body></html>`)) //nolint:errcheck
	})

	spider := newTestSpider(server, WithMaxDepth(3))

	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sharedFetches != 1 {
		t.Errorf("expected /shared fetched exactly once, got %d", sharedFetches)
	}

	seen := make(map[string]bool)
	for _, url := range report.Found {
		if seen[url] {
			t.Errorf("duplicate URL in found set: %q", url)
		}
		seen[url] = true
	}
}

// TestSpiderMaxPages verifies the page cap stops the crawl early.
func TestSpiderMaxPages(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", htmlHandler(
		`<html><body><a href="/1">1</a><a href="/2">2</a><a href="/3">3</a><a href="/4">4</a></body></html>`))
	for _, path := range []string{"/1", "/2", "/3", "/4"} {
		mux.HandleFunc(path, htmlHandler(`<html><body>page</body></html>`))
	}

	spider := newTestSpider(server, WithMaxDepth(1), WithMaxPages(3))

	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Found) != 3 {
		t.Errorf("expected the page cap to hold found at 3, got %d", len(report.Found))
	}
}

// TestSpiderInvalidSeed verifies seed validation.
func TestSpiderInvalidSeed(t *testing.T) {
	t.Parallel()

	spider := NewSpider(NewHTTPFetcher(http.DefaultClient), NewHTMLExtractor(), WithDelay(0))

	if _, err := spider.Crawl(context.Background(), "://bad"); err == nil {
		t.Error("expected error for unparsable seed")
	}
	if _, err := spider.Crawl(context.Background(), "/relative/only"); err == nil {
		t.Error("expected error for seed without host")
	}
}

// TestHTTPFetcher tests the HTTP fetcher collaborator.
func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("returns body and content type on 200", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>")) //nolint:errcheck
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(server.Client())
		result, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", result.StatusCode)
		}
		if !strings.Contains(result.ContentType, "text/html") {
			t.Errorf("expected html content type, got %q", result.ContentType)
		}
		if string(result.Body) != "<html></html>" {
			t.Errorf("unexpected body: %q", result.Body)
		}
	})

	t.Run("non-200 is a failure carrying the status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(server.Client())
		result, err := fetcher.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrBadStatus) {
			t.Fatalf("expected ErrBadStatus, got %v", err)
		}
		if result == nil || result.StatusCode != http.StatusNotFound {
			t.Errorf("expected partial result with status 404, got %+v", result)
		}
	})

	t.Run("sends the configured user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(server.Client(), WithUserAgent("TestBot/1.0"))
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotUA != "TestBot/1.0" {
			t.Errorf("expected user agent 'TestBot/1.0', got %q", gotUA)
		}
	})

	t.Run("caps the body size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 1024))) //nolint:errcheck
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(server.Client(), WithMaxBodySize(100))
		result, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Body) != 100 {
			t.Errorf("expected body capped at 100 bytes, got %d", len(result.Body))
		}
	})
}

// TestHTMLExtractor tests link extraction and reference resolution.
func TestHTMLExtractor(t *testing.T) {
	t.Parallel()

	extractor := NewHTMLExtractor()

	t.Run("extracts title and links", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Test Page</title></head><body>
			<a href="/relative">rel</a>
			<a href="http://a.test/absolute">abs</a>
		</body></html>`

		result, err := extractor.Extract("http://a.test/page", strings.NewReader(html))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", result.Title)
		}
		if len(result.Links) != 2 {
			t.Fatalf("expected 2 links, got %d: %v", len(result.Links), result.Links)
		}
		if result.Links[0] != "http://a.test/relative" {
			t.Errorf("relative link not resolved: %q", result.Links[0])
		}
	})

	t.Run("resolves reference forms", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			href string
			want string
		}{
			{"path relative", "sibling", "http://a.test/dir/sibling"},
			{"root relative", "/top", "http://a.test/top"},
			{"scheme relative", "//b.test/x", "http://b.test/x"},
			{"query only", "?q=1", "http://a.test/dir/page?q=1"},
			{"fragment only", "#section", "http://a.test/dir/page#section"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				html := `<html><body><a href="` + tt.href + `">x</a></body></html>`
				result, err := extractor.Extract("http://a.test/dir/page", strings.NewReader(html))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(result.Links) != 1 {
					t.Fatalf("expected 1 link, got %v", result.Links)
				}
				if result.Links[0] != tt.want {
					t.Errorf("resolved %q to %q, want %q", tt.href, result.Links[0], tt.want)
				}
			})
		}
	})

	t.Run("skips non-navigational hrefs", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<a href="javascript:void(0)">js</a>
			<a href="mailto:x@a.test">mail</a>
			<a href="tel:+123">tel</a>
			<a href="data:text/plain,hi">data</a>
			<a href="#">anchor</a>
			<a href="/valid">valid</a>
		</body></html>`

		result, err := extractor.Extract("http://a.test/", strings.NewReader(html))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Links) != 1 {
			t.Errorf("expected only /valid, got %v", result.Links)
		}
	})

	t.Run("invalid base URL is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := extractor.Extract("://bad", strings.NewReader("<html></html>")); err == nil {
			t.Error("expected error for invalid base URL")
		}
	})
}
