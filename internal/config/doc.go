// Package config provides configuration structures and utilities for
// webrecon. It defines the crawl options, politeness settings, report
// preferences, and the named presets that bundle them.
package config
