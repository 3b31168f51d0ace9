package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Defaults mirror the behavior of the
// original command-line crawler where applicable.
const (
	// DefaultMaxDepth bounds how many hops from the seed are expanded.
	// Three levels finds most reachable content on typical sites without
	// crawling indefinitely.
	DefaultMaxDepth = 3

	// DefaultTimeout is the per-request HTTP timeout. Ten seconds is
	// enough for slow shared hosting while keeping dead servers from
	// stalling a crawl.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the politeness pause between consecutive fetches.
	DefaultDelay = 100 * time.Millisecond

	// DefaultUserAgent identifies crawlscope in HTTP requests.
	// A descriptive User-Agent lets operators recognize crawler traffic.
	DefaultUserAgent = "Mozilla/5.0 (compatible; crawlscope/1.0)"

	// DefaultMaxBodySize limits the response body size read per page.
	// 5MB covers any reasonable HTML document while bounding memory.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxPages is the per-crawl page cap. Zero means unlimited;
	// the depth bound is the primary safety limit.
	DefaultMaxPages = 0

	// DefaultBatchSize is the number of seeds crawled concurrently when
	// multiple seeds are given. Each seed gets its own engine.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "crawlscope"
)

// Config holds all options for a crawl invocation.
// It is populated from CLI flags and the optional config file, then passed
// through the application by value injection rather than global state.
type Config struct {
	// Seeds is the list of starting URLs. At least one is required.
	Seeds []string

	// MaxDepth is the hop limit from each seed. The seed is depth 0.
	MaxDepth int

	// MaxPages caps the number of pages recorded per crawl. 0 = unlimited.
	MaxPages int

	// Timeout is the HTTP timeout for each request.
	Timeout time.Duration

	// Delay is the politeness pause between consecutive fetches.
	Delay time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// OutputFile, when set, receives the sorted found URLs, one per line.
	OutputFile string

	// ReportFile, when set, receives the crawl report instead of stdout.
	ReportFile string

	// JSONReport selects JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// SaveToDB controls whether finished runs are archived in the
	// SQLite history database under the XDG data directory.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string

	// ConfigFilePath is an explicit config file path. When empty, the
	// loader searches for .crawlscope in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// Verbose enables debug-level logging.
	Verbose bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero values
// because several defaults are non-zero. The constructor also documents
// what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:    DefaultMaxDepth,
		MaxPages:    DefaultMaxPages,
		Timeout:     DefaultTimeout,
		Delay:       DefaultDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		SaveToDB:    true,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for crawlscope.
// On Linux: ~/.local/share/crawlscope
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawlscope.
// On Linux: ~/.config/crawlscope
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
