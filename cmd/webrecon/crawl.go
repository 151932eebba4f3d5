package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/webrecon/internal/config"
	"github.com/nao1215/webrecon/internal/crawler"
	"github.com/nao1215/webrecon/internal/database"
	wlog "github.com/nao1215/webrecon/internal/log"
	"github.com/nao1215/webrecon/internal/model"
	"github.com/nao1215/webrecon/internal/pipeline"
	"github.com/nao1215/webrecon/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl one or more sites and rank pages by importance",
		Long: `Crawl maps a site's link structure starting from the seed URL.

It fetches pages breadth-first, builds a link graph, ranks pages by
importance, and classifies each page by type. The report lists the most
significant pages first so reconnaissance can focus on what matters.

Examples:
  # Crawl a single site
  webrecon crawl https://example.com

  # Crawl multiple sites concurrently
  webrecon crawl https://example.com https://example.org

  # Fast shallow survey using a built-in preset
  webrecon crawl --preset quick_scan https://example.com

  # Rank by plain inbound link count instead of PageRank
  webrecon crawl --rank-mode inbound https://example.com

  # Output a Markdown report to a file
  webrecon crawl --markdown -o report.md https://example.com

Configuration file (.webrecon) example:
  presets:
    nightly:
      maxPages: 300
      depth: 6
      crawlDelay: 1s`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from the seed (0 = seed page only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Page budget per crawl")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent fetch workers per crawl")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between requests, shared across workers (0 disables pacing)")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retry budget for transient fetch failures (5xx, timeouts)")
	cmd.Flags().Bool("cross-domain", false,
		"Follow links outside the seed's registrable domain")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt rules")
	cmd.Flags().String("rank-mode", config.RankModePageRank,
		"Importance scoring algorithm: inbound or pagerank")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls when several seeds are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webrecon in current or home directory)")
	cmd.Flags().String("preset", "",
		"Apply a named preset (built-in: quick_scan, deep_analysis, polite_crawl)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --csv)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --csv)")
	cmd.Flags().Bool("csv", false,
		"Output the ranked page table as CSV (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Persistence flags
	cmd.Flags().String("db-dir", "",
		"Directory for the crawl history database (default: XDG data directory)")
	cmd.Flags().Bool("no-save", false,
		"Do not save crawl results to the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
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

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.CrossDomain, err = cmd.Flags().GetBool("cross-domain")
	if err != nil {
		return nil, err
	}

	noRobots, err := cmd.Flags().GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	cfg.RankMode, err = cmd.Flags().GetString("rank-mode")
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

	// Load preset definitions from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use an empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Presets, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.Presets = &config.File{
			Presets: make(map[string]config.Preset),
		}
	}

	// Apply the named preset on top of flag defaults. Flags the user set
	// explicitly still win over the preset.
	presetName, err := cmd.Flags().GetString("preset")
	if err != nil {
		return nil, err
	}
	if presetName != "" {
		if err := cfg.ApplyPreset(presetName); err != nil {
			return nil, err
		}
		applyExplicitFlags(cmd, cfg)
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.CSVReport, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Save to database unless --no-save
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	cfg.DBDir = dbDir
	cfg.SaveToDB = !noSave

	// Get positional arguments (seed URLs)
	cfg.Seeds = args

	return cfg, nil
}

// applyExplicitFlags re-applies flags the user set on the command line so
// they take precedence over preset values.
func applyExplicitFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if cmd.Flags().Changed("depth") {
		cfg.CrawlDepth, _ = cmd.Flags().GetInt("depth")
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.MaxPages, _ = cmd.Flags().GetInt("max-pages")
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("delay") {
		cfg.CrawlDelay, _ = cmd.Flags().GetDuration("delay")
	}
	if cmd.Flags().Changed("retries") {
		cfg.MaxRetries, _ = cmd.Flags().GetInt("retries")
	}
	if cmd.Flags().Changed("rank-mode") {
		cfg.RankMode, _ = cmd.Flags().GetString("rank-mode")
	}
}

// setupLogger creates a structured logger based on verbosity setting.
// URLs in log output are scrubbed of credentials and sensitive query
// parameters before they reach the terminal.
func setupLogger(verbose bool) *slog.Logger {
	return wlog.NewSecureLogger(os.Stderr, verbose)
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"maxPages", cfg.MaxPages,
		"depth", cfg.CrawlDepth,
		"rankMode", cfg.RankMode,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
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

	// Use batch processor for parallel crawling if multiple seeds
	if len(cfg.Seeds) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, logger)
	}

	// Single seed or sequential crawling
	return runSequentialCrawl(ctx, cfg, db, logger)
}

// runSequentialCrawl crawls seeds one at a time.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	for _, seed := range cfg.Seeds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := newCrawlPipeline(cfg, db, logger)
		crawlReport := model.NewCrawlReport(seed)

		fmt.Printf("Crawling %s...\n", seed)
		startTime := time.Now()

		// Execute the pipeline
		if err := p.Execute(ctx, crawlReport); err != nil {
			logger.Error("crawl failed", "seed", seed, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", seed, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Crawl completed in %s\n\n", elapsed.Round(time.Millisecond))

		// Generate and output report
		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "seed", seed, "error", err)
		}

		if crawlReport.DatabaseID > 0 {
			logger.Info("crawl saved", "seed", seed, "runID", crawlReport.DatabaseID)
		}
	}

	return nil
}

// runBatchCrawl crawls multiple seeds concurrently using BatchProcessor.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d seeds (concurrency: %d)...\n\n",
		len(cfg.Seeds), cfg.BatchSize)

	startTime := time.Now()

	// Create batch processor with pipeline factory
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return newCrawlPipeline(cfg, db, logger)
		},
		pipeline.WithBatchConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(crawlReport *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if crawlReport.Error != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] Crawl error for %s: %v\n",
				index+1, len(cfg.Seeds), crawlReport.Seed, crawlReport.Error)
			return
		}

		fmt.Printf("[%d/%d] Crawl completed: %s\n", index+1, len(cfg.Seeds), crawlReport.Seed)

		// Generate and output report
		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "seed", crawlReport.Seed, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch crawl completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// newCrawlPipeline assembles the crawl-rank-persist pipeline for one seed.
// Each pipeline gets its own limiter and spider so concurrent crawls pace
// their requests independently per target site.
func newCrawlPipeline(cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) *pipeline.Pipeline {
	limiter := crawler.NewLimiter(cfg.CrawlDelay)
	fetcher := crawler.NewFetcher(nil, limiter,
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithMaxRetries(cfg.MaxRetries),
	)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithCrossDomain(cfg.CrossDomain),
		crawler.WithSpiderLogger(logger),
	}
	if cfg.RespectRobots {
		spiderOpts = append(spiderOpts,
			crawler.WithRobotsGate(crawler.NewRobotsGate(nil, cfg.UserAgent)))
	}
	spider := crawler.NewSpider(fetcher, spiderOpts...)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewCrawlStep(spider, pipeline.WithCrawlLogger(logger)))
	p.AddStep(pipeline.NewRankStep(cfg.RankMode, pipeline.WithRankLogger(logger)))
	if db != nil {
		p.AddStep(pipeline.NewPersistStep(db, pipeline.WithPersistLogger(logger)))
	}

	return p
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output io.Writer
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600).
		// Reconnaissance output can reveal what a user is investigating.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	writer := newReportWriter(cfg, output)
	_, err := writer.Write(crawlReport)
	return err
}

// newReportWriter selects the report writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	case cfg.CSVReport:
		return report.NewCSVWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
