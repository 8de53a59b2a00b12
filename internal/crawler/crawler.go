// Package crawler provides the core web crawling functionality.
// It implements a sequential, breadth-first crawl of a single domain with
// a politeness interval between fetches, and hands the collected pages to
// a report writer exactly once when the run ends.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/masahif/sitedigest/internal/config"
	"github.com/masahif/sitedigest/internal/parser"
)

// Crawler drives crawl runs. A Crawler holds no per-run state, so
// sequential calls to Crawl are independent.
type Crawler struct {
	config     *config.CrawlConfig
	fetcher    Fetcher
	extractor  Extractor
	writer     ReportWriter
	archive    Archive
	limiter    *RateLimiter
	logger     *slog.Logger
	progress   func(Progress)
	httpClient *HTTPClient // set when the default fetcher is in use
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithExtractor replaces the HTML extractor.
func WithExtractor(e Extractor) Option {
	return func(c *Crawler) { c.extractor = e }
}

// WithArchive journals pages, failures and the run summary to a.
func WithArchive(a Archive) Option {
	return func(c *Crawler) { c.archive = a }
}

// WithLogger sets the log sink. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithProgress registers fn to be called after every loop iteration.
func WithProgress(fn func(Progress)) Option {
	return func(c *Crawler) { c.progress = fn }
}

// NewCrawler creates a crawler that writes its report through writer.
// The config must already be validated.
func NewCrawler(cfg *config.CrawlConfig, writer ReportWriter, opts ...Option) (*Crawler, error) {
	if writer == nil {
		return nil, ErrNoReportWriter
	}

	c := &Crawler{
		config:  cfg,
		writer:  writer,
		limiter: NewRateLimiter(cfg.RequestDelay),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		headers, err := cfg.HeaderMap()
		if err != nil {
			return nil, err
		}
		c.httpClient = NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout, cfg.MaxBodyBytes)
		c.httpClient.SetCustomHeaders(headers)
		c.fetcher = c.httpClient
	}
	if c.extractor == nil {
		c.extractor = parser.NewHTMLParser()
	}

	return c, nil
}

// Close releases idle connections held by the default fetcher.
func (c *Crawler) Close() error {
	if c.httpClient != nil {
		c.httpClient.Close()
	}
	return nil
}

// crawlState is everything one run mutates. It lives for a single call
// to Crawl and is never shared.
type crawlState struct {
	domain     string
	seedURL    string
	budget     int
	frontier   *Frontier
	pages      Accumulator
	processed  int
	failures   int
	discovered int
	runID      int64 // 0 when no archive run is open
}

// Crawl crawls the domain of seedURL breadth-first until the frontier is
// exhausted, the page budget is used up, or ctx is cancelled. The report
// writer is then called exactly once with every page processed so far.
//
// An invalid seed returns a FatalError result and an error wrapping
// ErrInvalidSeed; nothing is fetched and no report is written. A report
// writer failure is returned as an error alongside the full result.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (*Result, error) {
	startedAt := time.Now()

	domain, err := Domain(seedURL)
	if err != nil {
		c.logger.Error("Invalid seed URL", "seed", seedURL, "error", err)
		return &Result{SeedURL: seedURL, Completion: FatalError, StartedAt: startedAt}, err
	}

	seed, err := Normalize(seedURL, domain)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		c.logger.Error("Invalid seed URL", "seed", seedURL, "error", err)
		return &Result{SeedURL: seedURL, Domain: domain, Completion: FatalError, StartedAt: startedAt}, err
	}

	st := &crawlState{
		domain:   domain,
		seedURL:  seed,
		budget:   c.config.PageBudget,
		frontier: NewFrontier(),
	}
	st.frontier.Enqueue(seed)

	c.logger.Info("Starting crawl",
		"seed", seed,
		"domain", domain,
		"page_budget", st.budget,
		"request_delay", c.limiter.Delay(),
		"request_timeout", c.config.RequestTimeout)
	c.openRun(st)

	completion := c.run(ctx, st)
	return c.finish(st, completion, startedAt)
}

// run is the crawl loop. It returns why the loop stopped.
func (c *Crawler) run(ctx context.Context, st *crawlState) Completion {
	for !st.frontier.Empty() && st.processed < st.budget {
		if ctx.Err() != nil {
			break
		}

		u, _ := st.frontier.Dequeue()

		// Every fetch after the first waits out the politeness interval,
		// including fetches that follow a failure.
		if err := c.limiter.Wait(ctx, u); err != nil {
			c.logger.Debug("Politeness wait aborted", "url", u, "error", err)
			return Interrupted
		}

		c.processURL(ctx, st, u)

		if c.progress != nil {
			c.progress(Progress{
				URL:            u,
				PagesProcessed: st.processed,
				PageBudget:     st.budget,
				Pending:        st.frontier.Len(),
			})
		}
	}

	switch {
	case ctx.Err() != nil:
		return Interrupted
	case st.frontier.Empty():
		return Completed
	default:
		return BudgetReached
	}
}

// processURL fetches and extracts one page. Every failure is contained
// here: it is logged, journaled and the page is skipped.
func (c *Crawler) processURL(ctx context.Context, st *crawlState, u string) {
	c.logger.Info("Fetching page", "url", u, "pending", st.frontier.Len())

	resp, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Info("Fetch aborted by interruption", "url", u)
			return
		}
		c.fail(st, u, KindNetwork, 0, err)
		return
	}

	// The fetcher stops at a redirect that leaves the host and hands back
	// the 3xx itself; a fetcher that followed one anyway is caught by the
	// final URL check.
	if location := resp.Headers.Get("Location"); isRedirect(resp.StatusCode) && location != "" && !c.onDomain(st, u, location) {
		c.fail(st, u, KindOffDomain, resp.StatusCode, fmt.Errorf("%w: %s", ErrOffDomainRedirect, location))
		return
	}
	if resp.FinalURL != "" && !c.onDomain(st, u, resp.FinalURL) {
		c.fail(st, u, KindOffDomain, resp.StatusCode, fmt.Errorf("%w: %s", ErrOffDomainRedirect, resp.FinalURL))
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.fail(st, u, KindStatus, resp.StatusCode, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode))
		return
	}

	if !isHTML(resp.ContentType) {
		c.fail(st, u, KindUnsupported, resp.StatusCode, fmt.Errorf("%w: %q", ErrNotHTML, resp.ContentType))
		return
	}

	extracted, err := c.extractor.Extract(resp.Body, resp.ContentType)
	if err != nil {
		c.fail(st, u, KindExtraction, resp.StatusCode, err)
		return
	}

	record := PageRecord{
		URL:        u,
		Title:      extracted.Title,
		Text:       extracted.Text,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now().UTC(),
	}
	st.pages.Append(record)
	st.processed++

	c.logger.Info("Fetched page",
		"url", u,
		"status", resp.StatusCode,
		"title", record.Title,
		"text_bytes", len(record.Text),
		"ttfb", resp.Metrics.TTFB,
		"download_time", resp.Metrics.DownloadTime)

	if st.runID != 0 {
		if err := c.archive.SavePage(st.runID, st.processed, record); err != nil {
			c.logger.Warn("Failed to archive page", "url", u, "error", err)
		}
	}

	c.enqueueLinks(st, c.linkBase(u, resp.FinalURL), extracted.Links)
}

// linkBase picks the URL relative links are resolved against: the final
// URL after redirects when there is one, the requested one otherwise.
func (c *Crawler) linkBase(requested, final string) string {
	if final == "" {
		return requested
	}
	return final
}

// onDomain reports whether target, resolved against the page URL u, lies
// on the crawled domain.
func (c *Crawler) onDomain(st *crawlState, u, target string) bool {
	abs, err := Resolve(u, target)
	if err != nil {
		return false
	}
	_, err = Normalize(abs, st.domain)
	return err == nil
}

// enqueueLinks adds every same-domain link not seen before. Off-domain,
// malformed and known links are dropped without logging.
func (c *Crawler) enqueueLinks(st *crawlState, base string, links []string) {
	added := 0
	for _, href := range links {
		abs, err := Resolve(base, href)
		if err != nil {
			continue
		}
		normalized, err := Normalize(abs, st.domain)
		if err != nil {
			continue
		}
		if st.frontier.Enqueue(normalized) {
			added++
		}
	}
	st.discovered += added

	c.logger.Info("Discovered links", "url", base, "links", len(links), "new", added, "pending", st.frontier.Len())
}

func (c *Crawler) fail(st *crawlState, u, kind string, status int, err error) {
	st.failures++

	msg := "Failed to fetch page"
	if kind == KindExtraction {
		msg = "Failed to extract page"
	}
	c.logger.Error(msg, "url", u, "kind", kind, "status", status, "error", err)

	if st.runID != 0 {
		failure := &Failure{
			URL:        u,
			Kind:       kind,
			Message:    err.Error(),
			StatusCode: status,
			OccurredAt: time.Now().UTC(),
		}
		if err := c.archive.SaveFailure(st.runID, failure); err != nil {
			c.logger.Warn("Failed to archive failure", "url", u, "error", err)
		}
	}
}

func (c *Crawler) openRun(st *crawlState) {
	if c.archive == nil {
		return
	}
	runID, err := c.archive.StartRun(st.domain, st.seedURL, st.budget)
	if err != nil {
		c.logger.Warn("Archive disabled for this run", "error", err)
		return
	}
	st.runID = runID
}

// finish logs the completion reason, flushes the report once and logs the
// terminal summary.
func (c *Crawler) finish(st *crawlState, completion Completion, startedAt time.Time) (*Result, error) {
	switch completion {
	case Completed:
		c.logger.Info("Frontier exhausted, crawl complete", "pages", st.processed)
	case BudgetReached:
		c.logger.Info("Page budget reached", "pages", st.processed, "page_budget", st.budget, "pending", st.frontier.Len())
	case Interrupted:
		c.logger.Info("Crawl interrupted, saving collected content", "pages", st.processed, "pending", st.frontier.Len())
	}

	result := &Result{
		Domain:         st.domain,
		SeedURL:        st.seedURL,
		Completion:     completion,
		PagesProcessed: st.processed,
		Failures:       st.failures,
		Discovered:     st.discovered,
		TextBytes:      st.pages.TextBytes(),
		StartedAt:      startedAt,
	}

	path, writeErr := c.writer.Write(st.domain, st.pages.All())
	if writeErr != nil {
		writeErr = fmt.Errorf("failed to write report: %w", writeErr)
		c.logger.Error("Failed to write report", "domain", st.domain, "pages", st.processed, "error", writeErr)
	} else {
		result.ReportPath = path
		c.logger.Info("Saved report", "path", path, "pages", st.processed)
	}
	result.Duration = time.Since(startedAt)

	c.logger.Info("Crawl finished",
		"reason", completion.String(),
		"pages", result.PagesProcessed,
		"failures", result.Failures,
		"discovered", result.Discovered,
		"report", result.ReportPath,
		"duration", result.Duration)

	if st.runID != 0 {
		if err := c.archive.FinishRun(st.runID, result); err != nil {
			c.logger.Warn("Failed to archive run summary", "error", err)
		}
	}

	return result, writeErr
}

func isRedirect(status int) bool {
	return status >= 300 && status <= 399
}

// isHTML reports whether a Content-Type names an HTML document. A missing
// header is given the benefit of the doubt.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
