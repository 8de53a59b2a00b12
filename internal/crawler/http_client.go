package crawler

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// HTTPClient is the Fetcher used for real crawls.
type HTTPClient struct {
	client        *http.Client
	userAgent     string
	maxBodyBytes  int64
	customHeaders map[string]string
}

// HTTPMetrics contains timing for an HTTP request
type HTTPMetrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
}

// HTTPResponse contains the response and metrics
type HTTPResponse struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte // decoded body
	ContentType string
	Metrics     HTTPMetrics
	FinalURL    string // After following redirects
}

// NewHTTPClient creates a client whose every request is bounded by timeout.
// Bodies larger than maxBodyBytes are rejected with ErrBodyTooLarge.
func NewHTTPClient(userAgent string, timeout time.Duration, maxBodyBytes int64) *HTTPClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: checkRedirect,
	}

	return &HTTPClient{
		client:        client,
		userAgent:     userAgent,
		maxBodyBytes:  maxBodyBytes,
		customHeaders: make(map[string]string),
	}
}

// checkRedirect follows at most 10 redirects and never leaves the host of
// the original request. A redirect to another host is handed back to the
// caller as the 3xx response itself.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("too many redirects")
	}
	if !strings.EqualFold(req.URL.Host, via[0].URL.Host) {
		return http.ErrUseLastResponse
	}
	return nil
}

// SetCustomHeaders sets extra HTTP headers sent with every request
func (h *HTTPClient) SetCustomHeaders(headers map[string]string) {
	for k, v := range headers {
		h.customHeaders[k] = v
	}
}

// Fetch performs a GET request and reads the decoded body.
func (h *HTTPClient) Fetch(ctx context.Context, url string) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	// Setting Accept-Encoding turns off the transport's transparent gzip,
	// so readBody decodes every encoding itself.
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for name, value := range h.customHeaders {
		req.Header.Set(name, value)
	}

	var firstByte time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByte = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := h.readBody(resp)
	if err != nil {
		return nil, err
	}

	var metrics HTTPMetrics
	if !firstByte.IsZero() {
		metrics.TTFB = firstByte.Sub(start)
	}
	metrics.DownloadTime = time.Since(start)

	return &HTTPResponse{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Metrics:     metrics,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

func (h *HTTPClient) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl, err := newDeflateReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("deflate decode: %w", err)
		}
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(reader, h.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > h.maxBodyBytes {
		// Error pages are never extracted, so an oversized one is cut
		// rather than turning a status failure into a body failure.
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return body[:h.maxBodyBytes], nil
		}
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, h.maxBodyBytes)
	}
	return body, nil
}

// newDeflateReader decodes "deflate" content, which is zlib-wrapped data.
// Some servers send a raw deflate stream instead; that is accepted too.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(header) == 0 {
		return io.NopCloser(br), nil
	}
	if len(header) == 2 && header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// Close closes idle connections
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
