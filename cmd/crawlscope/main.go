// Package main provides the entry point for the crawlscope CLI.
//
// crawlscope is a bounded-depth web crawler that maps a single site.
// Starting from a seed URL it follows same-site links breadth first,
// records every URL it discovers, and reports the result.
//
// Usage:
//
//	crawlscope crawl <url>
//	crawlscope crawl --depth 2 --output urls.txt <url>
//
// See --help for all available options.
package main

// main is the entry point for crawlscope.
func main() {
	Execute()
}
