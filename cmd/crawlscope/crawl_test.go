package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crawlscope/crawlscope/internal/config"
	"github.com/crawlscope/crawlscope/internal/database"
	"github.com/crawlscope/crawlscope/internal/report"
)

// discardLogger returns a logger suitable for quiet tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	tests := []struct {
		flag      string
		shorthand string
		def       string
	}{
		{flag: "depth", shorthand: "d", def: "3"},
		{flag: "max-pages", shorthand: "p", def: "0"},
		{flag: "timeout", shorthand: "t", def: "10s"},
		{flag: "delay", shorthand: "", def: "100ms"},
		{flag: "batch", shorthand: "b", def: "4"},
		{flag: "output", shorthand: "o", def: ""},
		{flag: "json", shorthand: "j", def: "false"},
		{flag: "markdown", shorthand: "m", def: "false"},
		{flag: "no-db", shorthand: "", def: "false"},
	}

	for _, tt := range tests {
		t.Run("has "+tt.flag+" flag", func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.flag)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("expected default %q, got %q", tt.def, flag.DefValue)
			}
		})
	}
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"http://a.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxDepth != config.DefaultMaxDepth {
			t.Errorf("expected depth %d, got %d", config.DefaultMaxDepth, cfg.MaxDepth)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected timeout %s, got %s", config.DefaultTimeout, cfg.Timeout)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB by default")
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "http://a.test/" {
			t.Errorf("unexpected seeds: %v", cfg.Seeds)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		args := []string{"--depth", "1", "--delay", "0s", "--no-db", "--json", "http://a.test/"}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"http://a.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxDepth != 1 {
			t.Errorf("expected depth 1, got %d", cfg.MaxDepth)
		}
		if cfg.Delay != 0 {
			t.Errorf("expected zero delay, got %s", cfg.Delay)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB disabled with --no-db")
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report enabled")
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}

		if _, err := buildConfig(cmd, []string{"http://a.test/"}); err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
}

// TestSiteConfigForSeed tests per-site config resolution.
func TestSiteConfigForSeed(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Defaults: config.SiteConfig{Depth: 2},
		Sites: map[string]config.SiteConfig{
			"a.test": {Depth: 5},
		},
	}

	t.Run("matching site overrides defaults", func(t *testing.T) {
		t.Parallel()
		sc := siteConfigForSeed(cfg, "http://a.test/start")
		if sc.Depth != 5 {
			t.Errorf("expected depth 5, got %d", sc.Depth)
		}
	})

	t.Run("unknown site uses defaults", func(t *testing.T) {
		t.Parallel()
		sc := siteConfigForSeed(cfg, "http://other.test/")
		if sc.Depth != 2 {
			t.Errorf("expected depth 2, got %d", sc.Depth)
		}
	})

	t.Run("empty seed uses defaults", func(t *testing.T) {
		t.Parallel()
		sc := siteConfigForSeed(cfg, "")
		if sc.Depth != 2 {
			t.Errorf("expected depth 2, got %d", sc.Depth)
		}
	})
}

// TestReportWriterSelection tests output format selection.
func TestReportWriterSelection(t *testing.T) {
	t.Parallel()

	t.Run("default is simple writer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		if _, ok := reportWriter(cfg).(*report.SimpleWriter); !ok {
			t.Errorf("expected *report.SimpleWriter, got %T", reportWriter(cfg))
		}
	})

	t.Run("json flag selects JSON writer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.JSONReport = true
		if _, ok := reportWriter(cfg).(*report.JSONWriter); !ok {
			t.Errorf("expected *report.JSONWriter, got %T", reportWriter(cfg))
		}
	})

	t.Run("markdown flag selects Markdown writer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.MarkdownReport = true
		if _, ok := reportWriter(cfg).(*report.MarkdownWriter); !ok {
			t.Errorf("expected *report.MarkdownWriter, got %T", reportWriter(cfg))
		}
	})

	t.Run("report file selects file writer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.ReportFile = filepath.Join(t.TempDir(), "report.txt")
		if _, ok := reportWriter(cfg).(*fileReportWriter); !ok {
			t.Errorf("expected *fileReportWriter, got %T", reportWriter(cfg))
		}
	})
}

// TestRunCrawl tests a complete crawl through the command layer.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
			<a href="/docs">docs</a>
			<a href="/about">about</a>
		</body></html>`))
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tmpDir := t.TempDir()
	outputFile := filepath.Join(tmpDir, "urls.txt")
	reportFile := filepath.Join(tmpDir, "report.json")

	cfg := config.NewConfig()
	cfg.Seeds = []string{server.URL}
	cfg.MaxDepth = 1
	cfg.Delay = 0
	cfg.Timeout = 5 * time.Second
	cfg.OutputFile = outputFile
	cfg.ReportFile = reportFile
	cfg.JSONReport = true
	cfg.DBDir = filepath.Join(tmpDir, "db")
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{}}

	if err := runCrawl(context.Background(), cfg, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// URL list file: sorted, one per line
	content, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("expected URL list file: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 URLs, got %d: %v", len(lines), lines)
	}
	for i := 1; i < len(lines); i++ {
		if lines[i-1] >= lines[i] {
			t.Errorf("expected sorted output, got %v", lines)
		}
	}

	// JSON report file written
	if _, err := os.Stat(reportFile); err != nil {
		t.Errorf("expected report file: %v", err)
	}

	// Run archived in the database
	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("expected database to exist: %v", err)
	}
	defer db.Close()

	seeds, err := db.ListSeeds(context.Background())
	if err != nil {
		t.Fatalf("failed to list seeds: %v", err)
	}
	if len(seeds) != 1 {
		t.Errorf("expected 1 archived seed, got %d", len(seeds))
	}
}

// TestFileReportWriter tests deferred file output.
func TestFileReportWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	w := newFileReportWriter(path, func(w io.Writer) report.Writer {
		return report.NewURLListWriter(w)
	})

	// File must not exist before the first write
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file to not exist before writing")
	}

	rep := newTestCrawlReport()
	if _, err := w.Write(rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if !strings.Contains(string(content), "http://a.test/") {
		t.Errorf("unexpected content: %q", string(content))
	}
}
