// Package report renders crawled pages into a single document: a title
// page followed by one section per page, each starting on a new page.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/masahif/sitedigest/internal/config"
	"github.com/masahif/sitedigest/internal/crawler"
)

// Document is what every renderer receives.
type Document struct {
	Domain      string
	GeneratedAt time.Time
	Pages       []crawler.PageRecord
}

// Title is the heading of the title page.
func (d *Document) Title() string {
	return "Web Scraping Report for " + d.Domain
}

// FileWriter writes a report to <dir>/<domain>_report.<ext>.
type FileWriter struct {
	dir    string
	format string
	now    func() time.Time
}

// NewFileWriter creates a writer for one of the config.Format* values.
func NewFileWriter(dir, format string) (*FileWriter, error) {
	if _, err := extension(format); err != nil {
		return nil, err
	}
	return &FileWriter{dir: dir, format: format, now: time.Now}, nil
}

// Write renders records and replaces any previous report for domain. The
// file appears under its final name only once it is complete.
func (w *FileWriter) Write(domain string, records []crawler.PageRecord) (string, error) {
	path, err := FileName(w.dir, domain, w.format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".report-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	doc := &Document{Domain: domain, GeneratedAt: w.now(), Pages: records}
	if err := Render(tmp, w.format, doc); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}

	return path, nil
}

// Render writes doc to out in the given format.
func Render(out io.Writer, format string, doc *Document) error {
	switch format {
	case config.FormatMarkdown:
		return NewMarkdownWriter(out).Write(doc)
	case config.FormatHTML:
		return NewHTMLWriter(out).Write(doc)
	case config.FormatJSON:
		return NewJSONWriter(out).Write(doc)
	default:
		return fmt.Errorf("%w: %q", config.ErrUnknownFormat, format)
	}
}

// FileName returns the report path for domain. A port separator in the
// domain is replaced so the name is valid on every platform.
func FileName(dir, domain, format string) (string, error) {
	ext, err := extension(format)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.ReplaceAll(domain, ":", "_")+"_report."+ext), nil
}

func extension(format string) (string, error) {
	switch format {
	case config.FormatMarkdown:
		return "md", nil
	case config.FormatHTML:
		return "html", nil
	case config.FormatJSON:
		return "json", nil
	default:
		return "", fmt.Errorf("%w: %q", config.ErrUnknownFormat, format)
	}
}
