package crawler

import (
	"net/url"
	"strings"
)

// VisitedSet tracks URLs that have been dequeued and processed.
// A URL enters the set at most once; once present it is never
// processed again.
//
// The set is owned exclusively by the Spider. The single-threaded loop
// means no locking is required; a parallel crawler would need to make
// the check-then-insert atomic.
type VisitedSet struct {
	urls map[string]struct{}
}

// NewVisitedSet creates an empty visited set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// Has reports whether the URL has been processed.
func (v *VisitedSet) Has(rawURL string) bool {
	_, ok := v.urls[rawURL]
	return ok
}

// Add marks the URL as processed.
func (v *VisitedSet) Add(rawURL string) {
	v.urls[rawURL] = struct{}{}
}

// Len returns the number of processed URLs.
func (v *VisitedSet) Len() int {
	return len(v.urls)
}

// Filter decides whether a candidate URL is in scope for the crawl:
// same authority as the seed and not already visited.
//
// Design decision: The filter holds a reference to the engine's visited
// set rather than a copy because the predicate must see the set as it
// grows. It performs no mutation itself, so calling it twice against the
// same snapshot always yields the same answer.
type Filter struct {
	// scheme and host identify the seed's authority.
	// Host includes the port when one is present.
	scheme string
	host   string

	visited *VisitedSet
}

// NewFilter creates a filter scoped to the seed's authority.
func NewFilter(seed *url.URL, visited *VisitedSet) *Filter {
	return &Filter{
		scheme:  strings.ToLower(seed.Scheme),
		host:    strings.ToLower(seed.Host),
		visited: visited,
	}
}

// InScope reports whether the candidate URL belongs to the crawl.
// The authority comparison is exact: blog.example.com is a different
// domain from example.com, and http is distinct from https.
//
// A candidate with an empty authority is treated as in scope. URLs are
// normalized to absolute form before this check, so an empty authority
// only appears for malformed input; the permissive behavior is kept
// deliberately and pinned by tests.
func (f *Filter) InScope(candidate string) bool {
	if f.visited.Has(candidate) {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}

	return strings.EqualFold(u.Scheme, f.scheme) && strings.EqualFold(u.Host, f.host)
}

// Normalize canonicalizes an absolute URL for deduplication:
// the fragment is dropped, scheme and host are lowercased, and an empty
// path becomes "/". Best effort: input that does not parse is returned
// unchanged and filtered downstream.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	return u.String()
}
