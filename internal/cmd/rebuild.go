package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/masahif/sitedigest/internal/crawler"
	"github.com/masahif/sitedigest/internal/report"
	"github.com/masahif/sitedigest/internal/storage"
)

// ErrNoDatabase is returned by rebuild when no archive is configured.
var ErrNoDatabase = errors.New("rebuild needs an archive database (--database or database_path)")

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <url-or-domain>",
	Short: "Regenerate a report from the archive database",
	Long: `Rebuild writes a report from the pages archived by an earlier crawl.

By default the most recent run for the domain is used. This recovers the
report of a crawl that was killed before it could write one.`,
	Args: cobra.ExactArgs(1),
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().Int64("run", 0, "Archived run ID to rebuild (default is the latest run for the domain)")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.DatabasePath == "" {
		return ErrNoDatabase
	}

	domain, err := crawler.Domain(args[0])
	if err != nil {
		return err
	}

	store, err := openArchive(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runID, _ := cmd.Flags().GetInt64("run")
	if runID == 0 {
		if runID, err = store.LatestRunID(domain); err != nil {
			return err
		}
	}

	run, err := store.LoadRun(runID)
	if err != nil {
		return err
	}
	if run.Domain != domain {
		return fmt.Errorf("%w: run %d belongs to %s, not %s", storage.ErrRunNotFound, runID, run.Domain, domain)
	}

	pages, err := store.LoadPages(runID)
	if err != nil {
		return err
	}
	failures, err := store.LoadFailures(runID)
	if err != nil {
		return err
	}

	writer, err := report.NewFileWriter(cfg.OutputDir, cfg.Format)
	if err != nil {
		return err
	}
	path, err := writer.Write(run.Domain, pages)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	status := "unfinished"
	if run.Finished {
		status = run.Completion
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rebuilt report for run %d of %s (%s, started %s): %d pages\n",
		run.ID, run.Domain, status, run.StartedAt.Local().Format("2006-01-02 15:04:05"), len(pages))
	fmt.Fprintf(out, "Report saved to: %s\n", path)
	printFailures(out, failures)

	return nil
}

// printFailures lists the pages the archived run could not include.
func printFailures(out io.Writer, failures []crawler.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(out, "Skipped pages: %d\n", len(failures))
	for _, f := range failures {
		status := "-"
		if f.StatusCode != 0 {
			status = fmt.Sprint(f.StatusCode)
		}
		fmt.Fprintf(out, "  %s [%s %s] %s\n", f.URL, f.Kind, status, f.Message)
	}
}
