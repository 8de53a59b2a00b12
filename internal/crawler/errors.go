package crawler

import "errors"

var (
	// ErrRejected is returned by Normalize for malformed, non-web or off-domain URLs
	ErrRejected = errors.New("url rejected")
	// ErrInvalidSeed is returned when the seed URL cannot start a crawl
	ErrInvalidSeed = errors.New("invalid seed")
	// ErrStatus is recorded for responses outside the 2xx range
	ErrStatus = errors.New("unexpected status")
	// ErrNotHTML is recorded for responses that are not HTML documents
	ErrNotHTML = errors.New("not an HTML document")
	// ErrOffDomainRedirect is recorded for redirects that leave the crawled domain
	ErrOffDomainRedirect = errors.New("redirect leaves the domain")
	// ErrBodyTooLarge is returned when a response exceeds the body limit
	ErrBodyTooLarge = errors.New("response body too large")
	// ErrNoReportWriter is returned by NewCrawler without a report writer
	ErrNoReportWriter = errors.New("report writer is required")
)
