package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/webrecon/internal/config"
	"github.com/nao1215/webrecon/internal/database"
	"github.com/nao1215/webrecon/internal/model"
	"github.com/spf13/cobra"
)

// Constants for site change direction and summary messages.
const (
	siteDirectionGrew      = "grew"
	siteDirectionShrank    = "shrank"
	siteDirectionUnchanged = "unchanged"
)

// defaultHistoryLimit bounds how many runs the listing shows by default.
const defaultHistoryLimit = 10

// NewHistoryCmd creates the history command.
// This command inspects crawl results stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "Inspect stored crawl runs and compare them over time",
		Long: `History lists stored crawl runs and compares a site's structure over time.

Crawl results are saved automatically after each run (unless --no-save was
given). This command retrieves that history and shows:
- Recent runs with their counters and termination reason
- How a site changed between the latest two crawls
- A single page's state and rank across runs

Examples:
  # List recent runs for a site
  webrecon history https://example.com

  # List all seeds with stored runs
  webrecon history --list-seeds

  # Compare the latest two runs for a site
  webrecon history --compare https://example.com

  # Show one page's outcomes across runs
  webrecon history --page https://example.com/pricing

  # Output comparison in JSON format
  webrecon history --compare --json https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of runs to list (0 = no limit)")
	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all seed URLs with stored runs")
	cmd.Flags().String("page", "",
		"Show one page's outcomes across all stored runs")

	// Comparison flags
	cmd.Flags().Bool("compare", false,
		"Compare the latest two runs for the seed")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	// Database location
	cmd.Flags().String("db-dir", "",
		"Directory of the crawl history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// History never creates the database; an empty one has nothing to show.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no crawl history found (run 'webrecon crawl' first): %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-seeds flag
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}
	if listSeeds {
		return listStoredSeeds(ctx, db)
	}

	// Handle --page flag
	pageURL, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}
	if pageURL != "" {
		return showPageHistory(ctx, db, pageURL)
	}

	var seed string
	if len(args) > 0 {
		seed = args[0]
	}

	// Handle --compare flag
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	if compare {
		if seed == "" {
			return errors.New("seed URL is required for comparison (use --list-seeds to see stored seeds)")
		}
		jsonOutput, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		return runRunComparison(ctx, db, seed, jsonOutput)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	return listRunHistory(ctx, db, seed, limit)
}

// listStoredSeeds lists all seeds that have crawl records in the database.
func listStoredSeeds(ctx context.Context, db *database.CrawlDB) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if len(seeds) == 0 {
		fmt.Println("No stored crawls found in the database.")
		fmt.Println("\nUse 'webrecon crawl <seed-url>' to crawl a site.")
		return nil
	}

	fmt.Printf("Stored seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Printf("  • %s\n", seed)
	}
	fmt.Println("\nUse 'webrecon history <seed-url>' to see runs for a seed.")

	return nil
}

// listRunHistory lists stored runs, newest first. An empty seed lists runs
// for every seed.
func listRunHistory(ctx context.Context, db *database.CrawlDB, seed string, limit int) error {
	runs, err := db.RecentRuns(ctx, seed, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		if seed != "" {
			fmt.Printf("No run history found for %s\n", seed)
		} else {
			fmt.Println("No stored crawls found in the database.")
		}
		fmt.Println("\nUse 'webrecon crawl' to crawl a site.")
		return nil
	}

	if seed != "" {
		fmt.Printf("Run history for %s (%d runs):\n\n", seed, len(runs))
	} else {
		fmt.Printf("Recent runs (%d):\n\n", len(runs))
	}
	fmt.Printf("  %-6s  %-20s  %-11s  %8s  %8s  %8s  %10s\n",
		"ID", "Date", "Stopped", "Fetched", "Failed", "Skipped", "Elapsed")
	fmt.Println("  " + strings.Repeat("-", 82))

	for _, run := range runs {
		stopped := string(run.Termination)
		if run.Incomplete {
			stopped += "*"
		}
		fmt.Printf("  %-6d  %-20s  %-11s  %8d  %8d  %8d  %10s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			stopped,
			run.Fetched,
			run.Failed,
			run.Skipped,
			run.Elapsed.Round(time.Millisecond),
		)
	}

	fmt.Println("\nUse 'webrecon history --compare <seed-url>' to compare the latest two runs.")

	return nil
}

// showPageHistory prints one page's outcomes across stored runs.
func showPageHistory(ctx context.Context, db *database.CrawlDB, pageURL string) error {
	history, err := db.GetPageHistory(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("failed to get page history: %w", err)
	}

	if len(history) == 0 {
		fmt.Printf("No stored outcomes found for %s\n", pageURL)
		return nil
	}

	fmt.Printf("Page history for %s (%d runs):\n\n", pageURL, len(history))
	fmt.Printf("  %-6s  %-20s  %-10s  %6s  %8s  %8s\n",
		"Run", "Date", "State", "HTTP", "Score", "Inbound")
	fmt.Println("  " + strings.Repeat("-", 68))

	for _, h := range history {
		status := "-"
		if h.StatusCode > 0 {
			status = strconv.Itoa(h.StatusCode)
		}
		fmt.Printf("  %-6d  %-20s  %-10s  %6s  %8.4f  %8d\n",
			h.RunID,
			h.Timestamp.Format("2006-01-02 15:04:05"),
			h.State,
			status,
			h.Score,
			h.Inbound,
		)
	}

	return nil
}

// runRunComparison compares the latest two stored runs for a seed.
func runRunComparison(ctx context.Context, db *database.CrawlDB, seed string, jsonOutput bool) error {
	runs, err := db.RecentRuns(ctx, seed, 2)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no run history found for %s", seed)
	}
	if len(runs) < 2 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	current, err := db.GetResult(ctx, runs[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runs[0].ID, err)
	}
	previous, err := db.GetResult(ctx, runs[1].ID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runs[1].ID, err)
	}
	if current == nil || previous == nil {
		return errors.New("stored run snapshot is missing")
	}

	comparison := compareRuns(seed, runs[1], runs[0], previous, current)

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	return outputComparisonText(comparison)
}

// RunComparison holds the result of comparing two crawl runs.
type RunComparison struct {
	// Seed is the crawled seed URL.
	Seed string `json:"seed"`

	// PreviousRun contains metadata about the older run.
	PreviousRun RunSummary `json:"previous_run"`

	// CurrentRun contains metadata about the newer run.
	CurrentRun RunSummary `json:"current_run"`

	// NewPages lists URLs present in the current run only.
	NewPages []string `json:"new_pages,omitempty"`

	// RemovedPages lists URLs present in the previous run only.
	RemovedPages []string `json:"removed_pages,omitempty"`

	// StateChanges lists pages whose final state changed between runs.
	StateChanges []PageStateChange `json:"state_changes,omitempty"`

	// UnchangedCount is the number of pages with the same state in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// Direction describes the overall change in site size.
	Direction string `json:"direction"`
}

// RunSummary contains metadata about one run for comparison display.
type RunSummary struct {
	// ID is the run's database identifier.
	ID int64 `json:"id"`

	// Timestamp is when the run finished.
	Timestamp time.Time `json:"timestamp"`

	// Pages is the total number of pages in the run's graph.
	Pages int `json:"pages"`

	// Fetched and Failed mirror the run counters.
	Fetched int `json:"fetched"`
	Failed  int `json:"failed"`
}

// PageStateChange records one page whose state differs between two runs.
type PageStateChange struct {
	// URL is the page's normalized URL.
	URL string `json:"url"`

	// From is the state in the previous run.
	From model.PageState `json:"from"`

	// To is the state in the current run.
	To model.PageState `json:"to"`
}

// compareRuns diffs the page sets and states of two stored runs.
func compareRuns(seed string, prevMeta, currMeta database.RunMetadata, previous, current *model.CrawlResult) *RunComparison {
	result := &RunComparison{
		Seed: seed,
		PreviousRun: RunSummary{
			ID:        prevMeta.ID,
			Timestamp: prevMeta.Timestamp,
			Pages:     len(previous.Nodes),
			Fetched:   previous.Fetched,
			Failed:    previous.Failed,
		},
		CurrentRun: RunSummary{
			ID:        currMeta.ID,
			Timestamp: currMeta.Timestamp,
			Pages:     len(current.Nodes),
			Fetched:   current.Fetched,
			Failed:    current.Failed,
		},
	}

	for url, node := range current.Nodes {
		prev, ok := previous.Nodes[url]
		if !ok {
			result.NewPages = append(result.NewPages, url)
			continue
		}
		if prev.State != node.State {
			result.StateChanges = append(result.StateChanges, PageStateChange{
				URL:  url,
				From: prev.State,
				To:   node.State,
			})
		} else {
			result.UnchangedCount++
		}
	}
	for url := range previous.Nodes {
		if _, ok := current.Nodes[url]; !ok {
			result.RemovedPages = append(result.RemovedPages, url)
		}
	}

	// Deterministic output regardless of map iteration order
	sort.Strings(result.NewPages)
	sort.Strings(result.RemovedPages)
	sort.Slice(result.StateChanges, func(i, j int) bool {
		return result.StateChanges[i].URL < result.StateChanges[j].URL
	})

	switch {
	case result.CurrentRun.Pages > result.PreviousRun.Pages:
		result.Direction = siteDirectionGrew
	case result.CurrentRun.Pages < result.PreviousRun.Pages:
		result.Direction = siteDirectionShrank
	default:
		result.Direction = siteDirectionUnchanged
	}

	return result
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *RunComparison) error {
	fmt.Printf("Run Comparison: %s\n", result.Seed)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nSite structure: %s\n", formatDirection(result.Direction))

	fmt.Printf("\nPrevious run: #%d  %s\n",
		result.PreviousRun.ID, result.PreviousRun.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current run:  #%d  %s\n",
		result.CurrentRun.ID, result.CurrentRun.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Println("\nPage Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Pages",
		result.PreviousRun.Pages, result.CurrentRun.Pages,
		formatDelta(result.CurrentRun.Pages-result.PreviousRun.Pages))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Fetched",
		result.PreviousRun.Fetched, result.CurrentRun.Fetched,
		formatDelta(result.CurrentRun.Fetched-result.PreviousRun.Fetched))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Failed",
		result.PreviousRun.Failed, result.CurrentRun.Failed,
		formatDelta(result.CurrentRun.Failed-result.PreviousRun.Failed))

	if len(result.NewPages) > 0 {
		fmt.Printf("\nNew Pages (%d):\n", len(result.NewPages))
		for _, url := range result.NewPages {
			fmt.Printf("  [+] %s\n", url)
		}
	}

	if len(result.RemovedPages) > 0 {
		fmt.Printf("\nRemoved Pages (%d):\n", len(result.RemovedPages))
		for _, url := range result.RemovedPages {
			fmt.Printf("  [-] %s\n", url)
		}
	}

	if len(result.StateChanges) > 0 {
		fmt.Printf("\nState Changes (%d):\n", len(result.StateChanges))
		for _, change := range result.StateChanges {
			fmt.Printf("  [~] %s: %s -> %s\n", change.URL, change.From, change.To)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d pages\n", result.UnchangedCount)
	}

	return nil
}

// formatDirection formats the site change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case siteDirectionGrew:
		return "GREW (more pages than previous run)"
	case siteDirectionShrank:
		return "SHRANK (fewer pages than previous run)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
