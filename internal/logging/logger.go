// Package logging configures the crawl log: JSON lines in a per-domain file
// plus a human-readable console mirror.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Config represents the logging configuration
type Config struct {
	Level      slog.Level
	FilePath   string
	MaxSize    int64 // MB
	MaxBackups int
	Console    bool
	// ConsoleOutput overrides stderr for the console mirror.
	ConsoleOutput io.Writer
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      slog.LevelInfo,
		FilePath:   "",
		MaxSize:    100, // 100MB
		MaxBackups: 5,
		Console:    true,
	}
}

// ParseLevel converts a string log level to slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FileName returns the crawl log path for domain inside dir.
func FileName(dir, domain string) string {
	return filepath.Join(dir, strings.ReplaceAll(domain, ":", "_")+"_crawl.log")
}

// NewLogger creates a new logger with the given configuration.
// The returned closer releases the log file and must be called once the
// run is finished; it is never nil.
func NewLogger(config Config) (*slog.Logger, io.Closer, error) {
	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if config.FilePath != "" {
		dir := filepath.Dir(config.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}

		fileWriter, err := NewRotatingFileWriter(
			config.FilePath,
			config.MaxSize*1024*1024, // MB to bytes
			config.MaxBackups,
		)
		if err != nil {
			return nil, nil, err
		}
		closer = fileWriter

		handlers = append(handlers, slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{
			Level: config.Level,
		}))
	}

	// With no file configured the console is the only sink left.
	if config.Console || len(handlers) == 0 {
		out := config.ConsoleOutput
		if out == nil {
			out = os.Stderr
		}
		handlers = append(handlers, charmlog.NewWithOptions(out, charmlog.Options{
			Level:           charmlog.Level(config.Level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		}))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(NewFanoutHandler(handlers...)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
