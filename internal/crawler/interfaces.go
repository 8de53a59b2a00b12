package crawler

import (
	"context"

	"github.com/masahif/sitedigest/internal/parser"
)

// Fetcher retrieves a single URL. Non-2xx responses are returned, not
// treated as errors; errors mean no usable response arrived.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*HTTPResponse, error)
}

// Extractor turns an HTML body into a title, text and raw links.
type Extractor interface {
	Extract(body []byte, contentType string) (*parser.Result, error)
}

// ReportWriter serializes the accumulated records. It is called exactly
// once per run and returns the path of the written document.
type ReportWriter interface {
	Write(domain string, records []PageRecord) (string, error)
}

// Archive keeps a durable journal of a run while it progresses.
// Archive failures never stop a crawl.
type Archive interface {
	StartRun(domain, seedURL string, pageBudget int) (int64, error)
	SavePage(runID int64, seq int, record PageRecord) error
	SaveFailure(runID int64, failure *Failure) error
	FinishRun(runID int64, result *Result) error
}
