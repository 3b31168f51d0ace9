package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/crawlscope/crawlscope/internal/crawler"
	"github.com/crawlscope/crawlscope/internal/database"
	"github.com/crawlscope/crawlscope/internal/report"
)

// CrawlStep runs the spider and attaches the resulting report to the job.
// Interruption is not a step failure: the partial report is kept on the
// job so later steps can still emit it.
type CrawlStep struct {
	spider *crawler.Spider
}

// NewCrawlStep creates a CrawlStep around the given spider.
// Spiders track traversal state, so each job needs its own instance.
func NewCrawlStep(spider *crawler.Spider) *CrawlStep {
	return &CrawlStep{spider: spider}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl for the job's seed URL.
func (s *CrawlStep) Do(ctx context.Context, job *Job) error {
	result, err := s.spider.Crawl(ctx, job.Seed)
	if result != nil {
		job.Report = result
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Interruption is recorded on the report itself.
			return nil
		}
		return fmt.Errorf("crawl failed for %s: %w", job.Seed, err)
	}

	return nil
}

// OutputStep writes the job's report through a report writer.
// Combine writers with report.NewMultiWriter to emit several formats.
type OutputStep struct {
	writer report.Writer
	label  string
}

// NewOutputStep creates an OutputStep with the given writer.
// The label distinguishes multiple output steps in logs (e.g. "stdout",
// "url-list").
func NewOutputStep(w report.Writer, label string) *OutputStep {
	return &OutputStep{writer: w, label: label}
}

// Name returns the step name.
func (s *OutputStep) Name() string {
	return "output:" + s.label
}

// Do writes the report. Without a report from a previous step this is a no-op.
func (s *OutputStep) Do(_ context.Context, job *Job) error {
	if job.Report == nil {
		return nil
	}

	if _, err := s.writer.Write(job.Report); err != nil {
		return fmt.Errorf("failed to write %s output: %w", s.label, err)
	}

	return nil
}

// ArchiveStep persists the job's report to the crawl database.
type ArchiveStep struct {
	db *database.CrawlDB
}

// NewArchiveStep creates an ArchiveStep backed by the given database.
func NewArchiveStep(db *database.CrawlDB) *ArchiveStep {
	return &ArchiveStep{db: db}
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do saves the report. Without a report from a previous step this is a no-op.
func (s *ArchiveStep) Do(ctx context.Context, job *Job) error {
	if job.Report == nil {
		return nil
	}

	if _, err := s.db.SaveCrawlReport(ctx, job.Report); err != nil {
		return fmt.Errorf("failed to archive crawl run: %w", err)
	}

	return nil
}
