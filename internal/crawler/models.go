package crawler

import "time"

// PageRecord is the content kept for one successfully processed page.
// Records are created once and never modified.
type PageRecord struct {
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"` // empty when the page had no title
	Text       string    `json:"text"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Heading returns the title, or the URL when no title was extracted.
func (r PageRecord) Heading() string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}

// Completion is the reason a crawl run ended.
type Completion int

const (
	// Completed means the frontier was exhausted.
	Completed Completion = iota
	// BudgetReached means the page budget was used up.
	BudgetReached
	// Interrupted means the run context was cancelled.
	Interrupted
	// FatalError means the run could not start.
	FatalError
)

func (c Completion) String() string {
	switch c {
	case Completed:
		return "completed"
	case BudgetReached:
		return "budget_reached"
	case Interrupted:
		return "interrupted"
	case FatalError:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// Failure describes a page that could not be processed.
type Failure struct {
	URL        string    // URL where the failure occurred
	Kind       string    // one of the Kind* constants
	Message    string    // Detailed error message
	StatusCode int       // HTTP status, 0 when no response was received
	OccurredAt time.Time // UTC
}

// Failure kinds.
const (
	KindNetwork     = "network_error"
	KindStatus      = "http_status"
	KindUnsupported = "unsupported_content"
	KindExtraction  = "extraction_error"
	KindOffDomain   = "off_domain_redirect"
)

// Result summarizes one crawl run.
type Result struct {
	Domain         string
	SeedURL        string
	Completion     Completion
	PagesProcessed int
	Failures       int
	Discovered     int   // links newly added to the frontier, seed excluded
	TextBytes      int64 // total extracted text
	ReportPath     string
	StartedAt      time.Time
	Duration       time.Duration
}

// Progress is reported after each loop iteration.
type Progress struct {
	URL            string
	PagesProcessed int
	PageBudget     int
	Pending        int
}
