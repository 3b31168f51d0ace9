// Package config provides configuration structures and utilities for
// crawlscope. It defines the crawl options populated from CLI flags, the
// optional .crawlscope YAML file with per-site overrides, and the XDG
// directory helpers used for the history database.
package config
