// Package crawler provides the bounded-depth, same-domain traversal engine.
//
// # Architecture
//
// The package is designed around the Spider type, which owns the frontier
// (a FIFO queue of URL/depth pairs), the visited set, and the found set,
// and drives a breadth-first expansion loop up to a configured depth limit.
// External collaborators are injected as interfaces:
//
//   - Fetcher: retrieves raw page content over HTTP
//   - Extractor: pulls hyperlinks out of fetched content
//   - Limiter: enforces the politeness delay between requests
//
// Design decision: We implement our own traversal rather than using a
// third-party crawling framework because:
//  1. The depth-bounded, single-authority policy is the whole product
//  2. We need recording to happen at dequeue time, before any fetch
//  3. Tight control over cancellation keeps partial results consistent
//
// # Invariants
//
//   - A URL is processed at most once, no matter how many pages link to it
//   - No entry deeper than the depth limit is ever recorded
//   - Pages at exactly the depth limit are recorded but never fetched
//   - Traversal is strictly breadth-first: all of depth d before depth d+1
//
// # Cancellation
//
// The loop observes its context at every iteration boundary and inside the
// politeness wait. Cancellation leaves the visited and found sets exactly as
// accumulated, ready for reporting.
package crawler
