package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/internal/config"
	"github.com/crawlscope/crawlscope/internal/crawler"
	"github.com/crawlscope/crawlscope/internal/database"
	"github.com/crawlscope/crawlscope/internal/model"
)

// NewHistoryCmd creates the history command.
// This command inspects crawl runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Inspect stored crawl runs and compare them",
		Long: `History lists the crawl runs stored in the database for a seed URL.

With --diff, the latest two runs are compared and the URLs that appeared
or disappeared between them are shown. This requires at least two stored
runs for the seed.

Examples:
  # List runs for a seed
  crawlscope history https://example.com

  # Show URLs added and removed between the latest two runs
  crawlscope history --diff https://example.com

  # Compare the latest run with a specific run by ID
  crawlscope history --diff --with-run-id 5 https://example.com

  # List every seed with stored runs
  crawlscope history --list-seeds

  # Output in JSON format
  crawlscope history --json https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("diff", "D", false,
		"Compare the latest two runs for the seed")
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with a specific run by ID (implies --diff)")
	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all seeds with stored runs")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var seed string
	if !listSeeds {
		if len(args) == 0 {
			return errors.New("seed URL is required (use --list-seeds to see stored seeds)")
		}
		seed, err = normalizeSeed(args[0])
		if err != nil {
			return fmt.Errorf("invalid seed URL: %w", err)
		}
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if listSeeds {
		return listStoredSeeds(ctx, db, jsonOutput)
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}

	if diff || withRunID > 0 {
		return runDiff(ctx, db, seed, withRunID, jsonOutput)
	}

	return listRuns(ctx, db, seed, jsonOutput)
}

// normalizeSeed brings a user-supplied seed URL into the stored form.
// Stored seeds always carry a scheme; scheme-less input is accepted
// here by assuming http so lookups like "example.com" still resolve.
func normalizeSeed(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u, err = url.Parse("http://" + rawURL)
		if err != nil {
			return "", err
		}
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return crawler.Normalize(u.String()), nil
}

// listStoredSeeds lists every seed that has stored runs.
func listStoredSeeds(ctx context.Context, db *database.CrawlDB, jsonOutput bool) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(seeds)
	}

	if len(seeds) == 0 {
		fmt.Println("No stored crawl runs found.")
		fmt.Println("\nUse 'crawlscope crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Printf("Stored seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Printf("  • %s\n", seed)
	}
	fmt.Println("\nUse 'crawlscope history <url>' to see runs for a seed.")

	return nil
}

// listRuns lists the stored runs for a seed.
func listRuns(ctx context.Context, db *database.CrawlDB, seed string, jsonOutput bool) error {
	runs, err := db.ListRunMetadata(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Printf("No crawl runs found for %s\n", seed)
		fmt.Println("\nUse 'crawlscope crawl' to crawl this site.")
		return nil
	}

	fmt.Printf("Crawl runs for %s (%d runs):\n\n", seed, len(runs))
	fmt.Printf("  %-6s  %-20s  %-6s  %-7s  %-7s  %s\n", "ID", "Date", "URLs", "Pages", "Errors", "Status")
	fmt.Println("  " + strings.Repeat("-", 64))

	for _, run := range runs {
		status := "complete"
		if run.Interrupted {
			status = "interrupted"
		}
		fmt.Printf("  %-6d  %-20s  %-6d  %-7d  %-7d  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.URLsFound,
			run.PagesCrawled,
			run.FetchErrors,
			status,
		)
	}

	fmt.Println("\nUse 'crawlscope history --diff <url>' to compare the latest two runs.")

	return nil
}

// DiffResult holds the URL differences between two crawl runs.
type DiffResult struct {
	// Seed is the seed URL the runs crawled.
	Seed string `json:"seed"`

	// PreviousStartedAt is when the older run started.
	PreviousStartedAt time.Time `json:"previous_started_at"`

	// CurrentStartedAt is when the newer run started.
	CurrentStartedAt time.Time `json:"current_started_at"`

	// Added contains URLs present in the current run but not the previous.
	Added []string `json:"added"`

	// Removed contains URLs present in the previous run but not the current.
	Removed []string `json:"removed"`

	// Unchanged is the number of URLs present in both runs.
	Unchanged int `json:"unchanged"`
}

// runDiff compares the latest run with a previous one.
func runDiff(ctx context.Context, db *database.CrawlDB, seed string, withRunID int64, jsonOutput bool) error {
	var current, previous *model.CrawlReport

	if withRunID > 0 {
		// Comparing against an explicit run only needs the newest run,
		// not the full history.
		latest, err := db.GetLatestRun(ctx, seed)
		if err != nil {
			return fmt.Errorf("failed to get latest run: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("no crawl runs found for %s", seed)
		}
		current = latest

		previous, err = db.GetRunByID(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run with ID %d: %w", withRunID, err)
		}
		if previous == nil {
			return fmt.Errorf("run with ID %d not found", withRunID)
		}
		if previous.Seed != seed {
			return fmt.Errorf("run ID %d belongs to %s, not %s", withRunID, previous.Seed, seed)
		}
	} else {
		runs, err := db.GetRunHistory(ctx, seed)
		if err != nil {
			return fmt.Errorf("failed to get run history: %w", err)
		}
		if len(runs) == 0 {
			return fmt.Errorf("no crawl runs found for %s", seed)
		}
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 runs are required for a diff (found %d)", len(runs))
		}
		current, previous = runs[0], runs[1]
	}

	result := diffRuns(seed, previous, current)

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	return outputDiffText(result)
}

// diffRuns computes the URL set difference between two runs.
func diffRuns(seed string, previous, current *model.CrawlReport) *DiffResult {
	prevSet := make(map[string]struct{}, len(previous.Found))
	for _, u := range previous.Found {
		prevSet[u] = struct{}{}
	}
	currSet := make(map[string]struct{}, len(current.Found))
	for _, u := range current.Found {
		currSet[u] = struct{}{}
	}

	result := &DiffResult{
		Seed:              seed,
		PreviousStartedAt: previous.StartedAt,
		CurrentStartedAt:  current.StartedAt,
		Added:             []string{},
		Removed:           []string{},
	}

	for u := range currSet {
		if _, ok := prevSet[u]; ok {
			result.Unchanged++
		} else {
			result.Added = append(result.Added, u)
		}
	}
	for u := range prevSet {
		if _, ok := currSet[u]; !ok {
			result.Removed = append(result.Removed, u)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)

	return result
}

// outputDiffText prints a diff in human-readable form.
func outputDiffText(result *DiffResult) error {
	fmt.Printf("Diff for %s\n", result.Seed)
	fmt.Printf("  previous: %s\n", result.PreviousStartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  current:  %s\n\n", result.CurrentStartedAt.Format("2006-01-02 15:04:05"))

	if len(result.Added) == 0 && len(result.Removed) == 0 {
		fmt.Printf("No changes (%d URLs in both runs).\n", result.Unchanged)
		return nil
	}

	if len(result.Added) > 0 {
		fmt.Printf("Added (%d):\n", len(result.Added))
		for _, u := range result.Added {
			fmt.Printf("  + %s\n", u)
		}
		fmt.Println()
	}
	if len(result.Removed) > 0 {
		fmt.Printf("Removed (%d):\n", len(result.Removed))
		for _, u := range result.Removed {
			fmt.Printf("  - %s\n", u)
		}
		fmt.Println()
	}

	fmt.Printf("Unchanged: %d URLs\n", result.Unchanged)

	return nil
}
