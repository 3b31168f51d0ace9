// Package model defines the data structures shared across crawlscope.
// It contains the crawl report produced by the traversal engine and the
// per-page results recorded during a run.
//
// Design decision: Models are kept free of behavior beyond simple accessors
// so they can be serialized to JSON for reports and database storage without
// dragging in crawler or reporting dependencies.
package model
