package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/internal/config"
	"github.com/crawlscope/crawlscope/internal/crawler"
	"github.com/crawlscope/crawlscope/internal/database"
	"github.com/crawlscope/crawlscope/internal/log"
	"github.com/crawlscope/crawlscope/internal/model"
	"github.com/crawlscope/crawlscope/internal/pipeline"
	"github.com/crawlscope/crawlscope/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl a website breadth first from one or more seed URLs",
		Long: `Crawl maps a website by following links breadth first from a seed URL.

The crawl stays on the seed's scheme and host, visits each URL at most
once, and stops at the configured depth. The seed is depth 0; a depth of
0 records only the seed itself without fetching anything.

Interrupting a crawl (Ctrl-C) stops fetching but still prints the
summary and writes any requested output files with the partial results.

Examples:
  # Crawl a site three levels deep (the default)
  crawlscope crawl https://example.com

  # Shallow crawl, save the discovered URLs to a file
  crawlscope crawl --depth 1 --output urls.txt https://example.com

  # JSON report written to a file
  crawlscope crawl --json --report report.json https://example.com

  # Crawl several sites concurrently
  crawlscope crawl --batch 4 https://a.example https://b.example

Configuration file (.crawlscope) example:
  defaults:
    depth: 3
    delay: 100ms
  sites:
    example.com:
      depth: 2
      headers:
        Cookie: "session=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth from the seed (seed is depth 0)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to record per crawl (0 = unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Politeness pause between consecutive fetches")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls when multiple seeds are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawlscope in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Write the sorted discovered URLs to this file, one per line")
	cmd.Flags().String("report", "",
		"Write the crawl report to this file instead of stdout")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().Bool("no-db", false,
		"Skip archiving the crawl run in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received shutdown signal, finishing with partial results...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the seed URLs
	cfg.Seeds = args

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCrawl executes the crawl for all configured seeds.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"depth", cfg.MaxDepth,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Use the batch processor for concurrent crawls if multiple seeds
	if len(cfg.Seeds) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, logger)
	}

	return runSequentialCrawl(ctx, cfg, db, logger)
}

// runSequentialCrawl crawls seeds one at a time.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	var interrupted error

	for _, seed := range cfg.Seeds {
		if interrupted != nil {
			break
		}

		p := createPipelineForSeed(cfg, seed, db, logger)

		fmt.Printf("Crawling %s...\n", seed)
		startTime := time.Now()

		job := &pipeline.Job{Seed: seed}
		if err := p.Execute(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Partial results were already written by the output steps.
				interrupted = fmt.Errorf("crawl interrupted: %w", err)
				continue
			}
			logger.Error("crawl failed", "seed", seed, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", seed, err)
			continue
		}

		fmt.Printf("Crawl completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))
	}

	return interrupted
}

// runBatchCrawl crawls multiple seeds concurrently using BatchProcessor.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d seeds (concurrency: %d)...\n\n",
		len(cfg.Seeds), cfg.BatchSize)

	startTime := time.Now()

	// Batch mode crawls seeds through identical pipelines, so per-site
	// entries from the config file are not applied.
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch mode uses default site config only; site-specific entries are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use --batch 1 to apply per-site settings.\n\n")
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return createPipelineForSeed(cfg, "", db, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(result *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		seed := cfg.Seeds[index]
		if result == nil {
			fmt.Printf("[%d/%d] Crawl failed: %s\n", index+1, len(cfg.Seeds), seed)
			return
		}
		fmt.Printf("[%d/%d] Crawl completed: %s (%d URLs)\n",
			index+1, len(cfg.Seeds), seed, len(result.Found))
	})

	fmt.Printf("\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return nil
}

// createPipelineForSeed builds the crawl pipeline for one seed.
// Site-specific config overrides the global flags when an entry matches
// the seed's authority. An empty seed uses the config file defaults,
// which is what batch mode does.
func createPipelineForSeed(cfg *config.Config, seed string, db *database.CrawlDB, logger *slog.Logger) *pipeline.Pipeline {
	siteConfig := siteConfigForSeed(cfg, seed)

	depth := cfg.MaxDepth
	if siteConfig.Depth > 0 {
		depth = siteConfig.Depth
	}
	delay := cfg.Delay
	if siteConfig.Delay != 0 {
		delay = siteConfig.Delay.Std()
	}
	maxPages := cfg.MaxPages
	if siteConfig.MaxPages > 0 {
		maxPages = siteConfig.MaxPages
	}
	userAgent := cfg.UserAgent
	if siteConfig.UserAgent != "" {
		userAgent = siteConfig.UserAgent
	}

	fetcherOpts := []crawler.HTTPFetcherOption{
		crawler.WithUserAgent(userAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if len(siteConfig.Headers) > 0 {
		fetcherOpts = append(fetcherOpts, crawler.WithHeaders(siteConfig.Headers))
	}

	fetcher := crawler.NewHTTPFetcher(&http.Client{Timeout: cfg.Timeout}, fetcherOpts...)
	spider := crawler.NewSpider(fetcher, crawler.NewHTMLExtractor(),
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(maxPages),
		crawler.WithDelay(delay),
		crawler.WithLogger(logger),
	)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddStep(pipeline.NewCrawlStep(spider))
	p.AddStep(pipeline.NewOutputStep(reportWriter(cfg), "report"))
	if cfg.OutputFile != "" {
		urlList := func(w io.Writer) report.Writer { return report.NewURLListWriter(w) }
		p.AddStep(pipeline.NewOutputStep(
			newFileReportWriter(cfg.OutputFile, urlList), "url-list"))
	}
	if db != nil {
		p.AddStep(pipeline.NewArchiveStep(db))
	}

	return p
}

// siteConfigForSeed resolves the merged site config for a seed URL.
func siteConfigForSeed(cfg *config.Config, seed string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	if seed == "" {
		return cfg.SiteConfigs.Defaults
	}

	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return cfg.SiteConfigs.Defaults
	}

	return cfg.SiteConfigs.GetSiteConfig(u.Host)
}

// reportWriter selects the report writer for the configured format and
// destination.
func reportWriter(cfg *config.Config) report.Writer {
	newWriter := func(w io.Writer) report.Writer {
		switch {
		case cfg.JSONReport:
			return report.NewJSONWriter(w)
		case cfg.MarkdownReport:
			return report.NewMarkdownWriter(w)
		default:
			return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
		}
	}

	if cfg.ReportFile != "" {
		return newFileReportWriter(cfg.ReportFile, newWriter)
	}
	return newWriter(os.Stdout)
}

// fileReportWriter writes a report to a file, opening it only when the
// report is ready. This avoids truncating a previous run's output when
// a crawl fails before producing anything.
type fileReportWriter struct {
	path      string
	newWriter func(io.Writer) report.Writer
}

// newFileReportWriter creates a report.Writer that writes to path using
// the writer produced by newWriter.
func newFileReportWriter(path string, newWriter func(io.Writer) report.Writer) *fileReportWriter {
	return &fileReportWriter{path: path, newWriter: newWriter}
}

// Write creates the file and writes the report to it.
func (f *fileReportWriter) Write(result *model.CrawlReport) (int, error) {
	dir := filepath.Dir(f.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return f.newWriter(file).Write(result)
}
