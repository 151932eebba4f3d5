package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen for polite reconnaissance of ordinary websites:
// conservative enough not to stress a target, fast enough to map a small
// site in under a minute.
const (
	// DefaultTimeout is the per-request timeout. 10 seconds is generous
	// for a healthy site; anything slower is reported as a timeout
	// failure rather than holding a worker hostage.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDepth bounds how many link hops the crawl follows from
	// the seed. Depth 5 reaches the long tail of most site hierarchies
	// without wandering into calendar-style infinite link spaces.
	DefaultCrawlDepth = 5

	// DefaultMaxPages is the page budget per crawl. This caps total work
	// on large or infinitely-generating sites. Users can override this
	// via the --max-pages CLI flag.
	DefaultMaxPages = 100

	// DefaultConcurrency is the number of simultaneous fetch workers.
	// Three in-flight requests is enough to hide latency while staying
	// well under what any production server would notice.
	DefaultConcurrency = 3

	// DefaultBatchSize is the number of concurrent crawls when processing
	// multiple seed URLs. Each crawl already runs its own worker pool, so
	// this stays small.
	DefaultBatchSize = 4

	// DefaultCrawlDelay is the minimum interval between any two requests
	// in a crawl, shared across all workers. This is a politeness
	// setting; 500ms keeps the global request rate at 2/s regardless of
	// concurrency.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultMaxRetries is how many times a transient failure (5xx,
	// timeout, connection error) is retried before the page is marked
	// failed. Client errors are never retried.
	DefaultMaxRetries = 3

	// DefaultUserAgent identifies webrecon in HTTP requests. A
	// descriptive User-Agent lets site operators recognize scanner
	// traffic in their logs.
	DefaultUserAgent = "webrecon/1.0 (+https://github.com/nao1215/webrecon)"

	// DefaultMaxBodySize limits the response body size to read. 5MB is
	// sufficient for most HTML pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "webrecon"
)

// Ranking mode names accepted by Config.RankMode.
const (
	// RankModeInbound scores pages by inbound link count only.
	RankModeInbound = "inbound"

	// RankModePageRank refines inbound counts with iterative link
	// analysis so links from important pages weigh more.
	RankModePageRank = "pagerank"
)

// Config holds all configuration options for webrecon.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Seeds is the list of seed URLs to crawl. Must contain at least one
	// entry; a bare hostname is accepted and treated as https.
	Seeds []string

	// Timeout is the timeout for each HTTP request, covering all retry
	// attempts individually (each attempt gets the full timeout).
	Timeout time.Duration

	// CrawlDepth is the maximum link distance from the seed. Depth 0
	// means only fetch the seed page.
	CrawlDepth int

	// MaxPages is the page budget per crawl. Fetched, failed, and
	// skipped pages all count against it.
	MaxPages int

	// Concurrency is the number of simultaneous fetch workers per crawl.
	Concurrency int

	// BatchSize is the number of concurrent crawls when several seeds
	// are given.
	BatchSize int

	// CrawlDelay is the minimum interval between requests, enforced
	// globally across workers. Zero disables pacing.
	CrawlDelay time.Duration

	// MaxRetries is the retry budget for transient fetch failures.
	MaxRetries int

	// CrossDomain allows the crawl to fetch pages outside the seed's
	// registrable domain. External links are always recorded in the link
	// graph regardless of this setting.
	CrossDomain bool

	// RespectRobots enables robots.txt checking before a URL is crawled.
	RespectRobots bool

	// RankMode selects the importance scoring algorithm, one of
	// RankModeInbound or RankModePageRank.
	RankMode string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. Set to 0 for the default.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport and CSVReport.
	JSONReport bool

	// MarkdownReport enables GitHub Flavored Markdown report output.
	// Mutually exclusive with JSONReport and CSVReport.
	MarkdownReport bool

	// CSVReport enables CSV output of the ranked page table.
	// Mutually exclusive with JSONReport and MarkdownReport.
	CSVReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written to this file instead of stdout. Directories are
	// created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .webrecon in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// Presets holds named option bundles loaded from the config file.
	Presets *File

	// DBDir is the directory path for storing the SQLite database.
	// When set, crawl results are saved for historical comparison.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to persist crawl results. It is set
	// automatically when DBDir is configured.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, depth).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		CrawlDepth:    DefaultCrawlDepth,
		MaxPages:      DefaultMaxPages,
		Concurrency:   DefaultConcurrency,
		BatchSize:     DefaultBatchSize,
		CrawlDelay:    DefaultCrawlDelay,
		MaxRetries:    DefaultMaxRetries,
		RespectRobots: true,
		RankMode:      RankModePageRank,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for webrecon.
// On Linux: ~/.local/share/webrecon
// On macOS: ~/Library/Application Support/webrecon
// On Windows: %LOCALAPPDATA%\webrecon
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webrecon.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	// Zero timeout would fail every request immediately
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	// Only one report format may be selected
	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RankMode != RankModeInbound && c.RankMode != RankModePageRank {
		return ErrInvalidRankMode
	}

	return nil
}
