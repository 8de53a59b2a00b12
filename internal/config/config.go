// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling parameters.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Report formats understood by the report writer.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// LogConfig controls where and how much the crawler logs
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	MaxSizeMB  int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"` // Rotate the log file past this size
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files to keep
	Console    bool   `mapstructure:"console" yaml:"console"`         // Mirror log lines on stderr
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURL        string        `mapstructure:"seed_url" yaml:"seed_url"`               // Starting URL for crawling
	PageBudget     int           `mapstructure:"page_budget" yaml:"page_budget"`         // Stop after N processed pages
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Politeness interval between fetches
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`   // Response bodies above this size are rejected
	Headers        []string      `mapstructure:"headers" yaml:"headers,omitempty"`       // Extra request headers, "Name: Value"

	// Output
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"` // Directory for the report and log files
	Format    string `mapstructure:"format" yaml:"format"`         // markdown, html or json

	// Archive database (empty disables the archive)
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		PageBudget:     1000,
		RequestDelay:   2 * time.Second,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "SiteDigest/1.0",
		MaxBodyBytes:   5 * 1024 * 1024,
		OutputDir:      ".",
		Format:         FormatMarkdown,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			Console:    true,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if c.PageBudget <= 0 {
		return ErrInvalidPageBudget
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxBodyBytes <= 0 {
		return ErrInvalidBodyLimit
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	if _, err := c.HeaderMap(); err != nil {
		return err
	}

	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case FormatMarkdown, FormatHTML, FormatJSON:
	case "md":
		c.Format = FormatMarkdown
	default:
		return ErrUnknownFormat
	}

	return nil
}

// HeaderMap parses Headers into a name to value map. Later entries
// override earlier ones with the same name.
func (c *CrawlConfig) HeaderMap() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	for _, h := range c.Headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}
