package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so YAML values like "500ms" or "2s" parse
// with time.ParseDuration syntax. Plain integers are rejected to avoid
// ambiguity between seconds and nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Preset holds a named bundle of crawl options. Fields left at their zero
// value in a preset keep whatever the Config already has, so presets can
// override a single knob or the whole crawl profile.
type Preset struct {
	// MaxPages overrides the page budget. Zero keeps the current value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Depth overrides the maximum crawl depth. Zero keeps the current
	// value; use -1 for a seed-only crawl.
	Depth int `yaml:"depth,omitempty"`

	// Concurrency overrides the fetch worker count.
	Concurrency int `yaml:"concurrency,omitempty"`

	// CrawlDelay overrides the pacing interval between requests.
	CrawlDelay Duration `yaml:"crawlDelay,omitempty"`

	// Timeout overrides the per-request timeout.
	Timeout Duration `yaml:"timeout,omitempty"`

	// MaxRetries overrides the transient-failure retry budget. Use -1 to
	// disable retries.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// RankMode overrides the importance scoring algorithm.
	RankMode string `yaml:"rankMode,omitempty"`
}

// File represents the structure of the .webrecon configuration file.
type File struct {
	// Presets maps preset names to option bundles. Built-in presets
	// (quick_scan, deep_analysis, polite_crawl) are available even
	// without a config file; file entries with the same name win.
	Presets map[string]Preset `yaml:"presets,omitempty"`
}

// builtinPresets are always available, config file or not.
//
// Design decision: The three bundles mirror how the tool is actually used:
//  1. quick_scan for a fast structural overview before deeper work
//  2. deep_analysis for an exhaustive map of a site the user owns
//  3. polite_crawl for third-party sites where request rate matters most
var builtinPresets = map[string]Preset{
	"quick_scan": {
		MaxPages:    20,
		Depth:       2,
		Concurrency: 5,
		CrawlDelay:  Duration(200 * time.Millisecond),
		Timeout:     Duration(5 * time.Second),
		MaxRetries:  1,
		RankMode:    RankModeInbound,
	},
	"deep_analysis": {
		MaxPages:    500,
		Depth:       8,
		Concurrency: 5,
		CrawlDelay:  Duration(250 * time.Millisecond),
		Timeout:     Duration(15 * time.Second),
		RankMode:    RankModePageRank,
	},
	"polite_crawl": {
		MaxPages:    100,
		Depth:       4,
		Concurrency: 1,
		CrawlDelay:  Duration(2 * time.Second),
		Timeout:     Duration(20 * time.Second),
	},
}

// LookupPreset resolves a preset by name, preferring entries from the
// loaded config file over the built-in bundles.
func (cf *File) LookupPreset(name string) (Preset, bool) {
	if cf != nil {
		if p, ok := cf.Presets[name]; ok {
			return p, true
		}
	}
	p, ok := builtinPresets[name]
	return p, ok
}

// ApplyPreset overlays the named preset onto the config. Unknown preset
// names are an error so typos fail fast instead of silently crawling with
// defaults.
func (c *Config) ApplyPreset(name string) error {
	p, ok := c.Presets.LookupPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}

	if p.MaxPages != 0 {
		c.MaxPages = p.MaxPages
	}
	if p.Depth != 0 {
		c.CrawlDepth = p.Depth
		if p.Depth < 0 {
			c.CrawlDepth = 0
		}
	}
	if p.Concurrency != 0 {
		c.Concurrency = p.Concurrency
	}
	if p.CrawlDelay != 0 {
		c.CrawlDelay = time.Duration(p.CrawlDelay)
	}
	if p.Timeout != 0 {
		c.Timeout = time.Duration(p.Timeout)
	}
	if p.MaxRetries != 0 {
		c.MaxRetries = p.MaxRetries
		if p.MaxRetries < 0 {
			c.MaxRetries = 0
		}
	}
	if p.RankMode != "" {
		c.RankMode = p.RankMode
	}
	return nil
}

// PresetNames returns the names of all available presets, built-in plus
// any loaded from the config file.
func (cf *File) PresetNames() []string {
	seen := make(map[string]bool, len(builtinPresets))
	names := make([]string, 0, len(builtinPresets))
	for name := range builtinPresets {
		seen[name] = true
		names = append(names, name)
	}
	if cf != nil {
		for name := range cf.Presets {
			if !seen[name] {
				names = append(names, name)
			}
		}
	}
	return names
}
