package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns a config that passes Validate, for tests to break
// one field at a time.
func validConfig() *Config {
	c := NewConfig()
	c.Seeds = []string{"https://example.com"}
	return c
}

// TestNewConfigDefaults tests that the constructor fills every non-zero
// default.
func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, expected %v", c.Timeout, DefaultTimeout)
	}
	if c.CrawlDepth != DefaultCrawlDepth {
		t.Errorf("CrawlDepth = %d, expected %d", c.CrawlDepth, DefaultCrawlDepth)
	}
	if c.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d, expected %d", c.MaxPages, DefaultMaxPages)
	}
	if c.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, expected %d", c.Concurrency, DefaultConcurrency)
	}
	if c.CrawlDelay != DefaultCrawlDelay {
		t.Errorf("CrawlDelay = %v, expected %v", c.CrawlDelay, DefaultCrawlDelay)
	}
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, expected %d", c.MaxRetries, DefaultMaxRetries)
	}
	if !c.RespectRobots {
		t.Error("RespectRobots should default to true")
	}
	if c.RankMode != RankModePageRank {
		t.Errorf("RankMode = %s, expected %s", c.RankMode, RankModePageRank)
	}
	if c.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %s, expected %s", c.UserAgent, DefaultUserAgent)
	}
}

// TestConfigValidate tests the validation rules one field at a time.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "no seed",
			mutate:  func(c *Config) { c.Seeds = nil },
			wantErr: ErrNoSeed,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Timeout = -time.Second },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "zero max pages",
			mutate:  func(c *Config) { c.MaxPages = 0 },
			wantErr: ErrInvalidMaxPages,
		},
		{
			name: "json and markdown",
			mutate: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
		{
			name: "markdown and csv",
			mutate: func(c *Config) {
				c.MarkdownReport = true
				c.CSVReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "single format is fine",
			mutate:  func(c *Config) { c.CSVReport = true },
			wantErr: nil,
		},
		{
			name:    "negative crawl delay",
			mutate:  func(c *Config) { c.CrawlDelay = -time.Second },
			wantErr: ErrInvalidCrawlDelay,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: ErrInvalidMaxRetries,
		},
		{
			name:    "negative body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
		{
			name:    "unknown rank mode",
			mutate:  func(c *Config) { c.RankMode = "alphabetical" },
			wantErr: ErrInvalidRankMode,
		},
		{
			name:    "inbound rank mode",
			mutate:  func(c *Config) { c.RankMode = RankModeInbound },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

// TestApplyPresetBuiltin tests that built-in presets overlay only the
// fields they set.
func TestApplyPresetBuiltin(t *testing.T) {
	t.Parallel()

	c := validConfig()
	if err := c.ApplyPreset("quick_scan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MaxPages != 20 || c.CrawlDepth != 2 || c.Concurrency != 5 {
		t.Errorf("quick_scan not applied: %+v", c)
	}
	if c.RankMode != RankModeInbound {
		t.Errorf("RankMode = %s, expected %s", c.RankMode, RankModeInbound)
	}
	// polite_crawl leaves the rank mode alone.
	c = validConfig()
	if err := c.ApplyPreset("polite_crawl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.RankMode != RankModePageRank {
		t.Errorf("preset overwrote an unset field: RankMode = %s", c.RankMode)
	}
	if c.Concurrency != 1 || c.CrawlDelay != 2*time.Second {
		t.Errorf("polite_crawl not applied: %+v", c)
	}
}

// TestApplyPresetUnknown tests the fail-fast behavior for typoed names.
func TestApplyPresetUnknown(t *testing.T) {
	t.Parallel()

	c := validConfig()
	if err := c.ApplyPreset("no_such_preset"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

// TestApplyPresetFileOverride tests that config file presets shadow
// built-ins of the same name.
func TestApplyPresetFileOverride(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Presets = &File{
		Presets: map[string]Preset{
			"quick_scan": {MaxPages: 7},
			"custom":     {Depth: 9, Concurrency: 2},
		},
	}

	if err := c.ApplyPreset("quick_scan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MaxPages != 7 {
		t.Errorf("MaxPages = %d, expected file override 7", c.MaxPages)
	}

	if err := c.ApplyPreset("custom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CrawlDepth != 9 || c.Concurrency != 2 {
		t.Errorf("custom preset not applied: %+v", c)
	}
}

// TestLoadConfigFile tests YAML parsing of preset definitions.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	content := `presets:
  gentle:
    maxPages: 30
    depth: 3
    crawlDelay: 1s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := cf.LookupPreset("gentle")
	if !ok {
		t.Fatal("preset gentle missing")
	}
	if p.MaxPages != 30 || p.Depth != 3 || p.CrawlDelay != Duration(time.Second) {
		t.Errorf("unexpected preset: %+v", p)
	}

	// Built-ins remain reachable through a loaded file.
	if _, ok := cf.LookupPreset("deep_analysis"); !ok {
		t.Error("built-in preset not reachable through loaded file")
	}
}

// TestLoadConfigFileNotFound tests the sentinel for a missing file.
func TestLoadConfigFileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

// TestLoadConfigFileInvalidYAML tests that malformed YAML surfaces an error.
func TestLoadConfigFileInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte("presets: [not a map"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

// TestFindConfigFile tests explicit path resolution.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte("presets: {}\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(%s) = %s", path, got)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
		t.Errorf("expected empty string for missing explicit path, got %s", got)
	}
}

// TestPresetNames tests that built-in and file presets are both listed.
func TestPresetNames(t *testing.T) {
	t.Parallel()

	cf := &File{Presets: map[string]Preset{"custom": {}, "quick_scan": {}}}
	names := cf.PresetNames()

	want := map[string]bool{"quick_scan": false, "deep_analysis": false, "polite_crawl": false, "custom": false}
	for _, n := range names {
		if _, ok := want[n]; !ok {
			t.Errorf("unexpected preset name %q", n)
		}
		if want[n] {
			t.Errorf("duplicate preset name %q", n)
		}
		want[n] = true
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("preset %q missing from names", n)
		}
	}
}
