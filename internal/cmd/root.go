// Package cmd provides the command-line interface for SiteDigest.
// It handles command parsing, configuration loading, and crawler execution.
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/sitedigest/internal/config"
	"github.com/masahif/sitedigest/internal/crawler"
	"github.com/masahif/sitedigest/internal/logging"
	"github.com/masahif/sitedigest/internal/report"
	"github.com/masahif/sitedigest/internal/storage"
)

const (
	appName          = "sitedigest"
	envPrefix        = "SD"
	defaultUserAgent = "SiteDigest/1.0"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sitedigest <url>",
	Short: "Crawl one website and compile its text into a single report",
	Long: `SiteDigest crawls every page of a single domain, starting from a seed URL.

It extracts the title and readable text of each page and writes them into one
report document, one page per section. Interrupting the crawl (Ctrl+C) still
writes a report with everything collected so far.`,
	Args:          validateArgs,
	RunE:          runCrawl,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sitedigest.yml or $XDG_CONFIG_HOME/sitedigest/sitedigest.yml)")

	// Output flags, shared with rebuild
	rootCmd.PersistentFlags().StringP("output-dir", "o", ".", "Directory for the report and log files")
	rootCmd.PersistentFlags().StringP("format", "f", config.FormatMarkdown, "Report format: markdown, html or json")
	rootCmd.PersistentFlags().StringP("database", "d", "", "Path to SQLite archive database (empty disables the archive)")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")
	rootCmd.Flags().Bool("progress", false, "Show a spinner with the last fetched URL (replaces console log output)")

	// Crawling flags
	rootCmd.Flags().IntP("budget", "n", 1000, "Stop after N processed pages")
	rootCmd.Flags().DurationP("delay", "r", 2*time.Second, "Politeness interval between requests")
	rootCmd.Flags().DurationP("timeout", "t", 5*time.Second, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaultUserAgent, "HTTP User-Agent header")
	rootCmd.Flags().Int64("max-body-bytes", 5*1024*1024, "Skip responses larger than this many bytes")
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")

	// Logging flags
	rootCmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.Flags().Int64("log-max-size", 100, "Rotate the crawl log past this many megabytes")
	rootCmd.Flags().Int("log-max-backups", 5, "Rotated crawl logs to keep")
	rootCmd.Flags().Bool("log-console", true, "Mirror log lines on stderr")

	bindFlag := func(key string, flag *pflag.Flag) {
		if err := viper.BindPFlag(key, flag); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", key, err)
		}
	}

	for key, name := range map[string]string{
		"output_dir":    "output-dir",
		"format":        "format",
		"database_path": "database",
	} {
		bindFlag(key, rootCmd.PersistentFlags().Lookup(name))
	}

	for key, name := range map[string]string{
		"page_budget":     "budget",
		"request_delay":   "delay",
		"request_timeout": "timeout",
		"user_agent":      "user-agent",
		"max_body_bytes":  "max-body-bytes",
		"headers":         "header",
		"log.level":       "log-level",
		"log.max_size_mb": "log-max-size",
		"log.max_backups": "log-max-backups",
		"log.console":     "log-console",
	} {
		bindFlag(key, rootCmd.Flags().Lookup(name))
	}

	rootCmd.AddCommand(rebuildCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		viper.SetConfigType("yaml")
		viper.SetConfigName(appName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// validateArgs requires exactly one URL unless --show-config is given.
func validateArgs(cmd *cobra.Command, args []string) error {
	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return cobra.MaximumNArgs(1)(cmd, args)
	}
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one URL argument, got %d\nUsage: %s", len(args), cmd.UseLine())
	}
	return nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("SiteDigest/%s", version)
	}
	return "SiteDigest/dev"
}

// loadConfig merges defaults, config file, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Update User-Agent with dynamic version if not explicitly set
	if f := cmd.Flags().Lookup("user-agent"); f != nil && !f.Changed && cfg.UserAgent == defaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	return cfg, nil
}

func showCurrentConfig(out io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(out, "# Current SiteDigest Configuration\n")
	fmt.Fprintf(out, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(out, "# Configuration file search paths: ./%s.yml, %s\n", appName, filepath.Join(xdg.ConfigHome, appName, appName+".yml"))
	fmt.Fprintf(out, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(out, string(yamlData))

	fmt.Fprintf(out, "\n# Configuration source priority:\n")
	fmt.Fprintf(out, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(out, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(out, "# 3. Configuration file (%s.yml)\n", appName)
	fmt.Fprintf(out, "# 4. Default values (lowest priority)\n")

	return nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")
	progress, _ := cmd.Flags().GetBool("progress")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.SeedURL = args[0]
	}

	// Handle --show-config: display current configuration and exit
	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// An invalid seed has no domain to name the log after; the crawler
	// still reports it, on the console only.
	logPath := ""
	if domain, err := crawler.Domain(cfg.SeedURL); err == nil {
		logPath = logging.FileName(cfg.OutputDir, domain)
	}

	logger, logCloser, err := logging.NewLogger(logConfig(cfg, logPath, progress, cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to open crawl log: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	writer, err := report.NewFileWriter(cfg.OutputDir, cfg.Format)
	if err != nil {
		return err
	}

	opts := []crawler.Option{crawler.WithLogger(logger)}

	if cfg.DatabasePath != "" {
		store, err := openArchive(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, crawler.WithArchive(store))
	}

	if progress {
		s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " starting"
		s.Start()
		defer s.Stop()
		opts = append(opts, crawler.WithProgress(func(p crawler.Progress) {
			s.Lock()
			s.Suffix = fmt.Sprintf(" [%d/%d, %d queued] %s", p.PagesProcessed, p.PageBudget, p.Pending, formatSpinnerMessage(p.URL))
			s.Unlock()
		}))
	}

	c, err := crawler.NewCrawler(cfg, writer, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := c.Crawl(ctx, cfg.SeedURL)
	if result != nil && result.Completion != crawler.FatalError {
		printSummary(cmd.OutOrStdout(), result, logPath)
	}
	return err
}

// logConfig builds the log sink settings for a crawl. The spinner redraws
// its line on stderr, so the console mirror is off while it runs and the
// log file remains the full record.
func logConfig(cfg *config.CrawlConfig, logPath string, progress bool, console io.Writer) logging.Config {
	return logging.Config{
		Level:         logging.ParseLevel(cfg.Log.Level),
		FilePath:      logPath,
		MaxSize:       cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
		Console:       cfg.Log.Console && !progress,
		ConsoleOutput: console,
	}
}

func openArchive(path string) (*storage.SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return store, nil
}

func printSummary(out io.Writer, result *crawler.Result, logPath string) {
	fmt.Fprintf(out, "Crawl of %s %s: %s pages, %s failures, %s new links, %s of text in %s\n",
		result.Domain,
		strings.ReplaceAll(result.Completion.String(), "_", " "),
		humanize.Comma(int64(result.PagesProcessed)),
		humanize.Comma(int64(result.Failures)),
		humanize.Comma(int64(result.Discovered)),
		humanize.Bytes(uint64(result.TextBytes)),
		result.Duration.Round(time.Millisecond))
	if result.ReportPath != "" {
		fmt.Fprintf(out, "Report saved to: %s\n", result.ReportPath)
	}
	if logPath != "" {
		fmt.Fprintf(out, "Log saved to: %s\n", logPath)
	}
}

// formatSpinnerMessage keeps spinner lines on one terminal row.
func formatSpinnerMessage(url string) string {
	const maxLen = 80
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}
