package crawler

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "Test-Crawler/1.0" {
			t.Errorf("Expected User-Agent 'Test-Crawler/1.0', got '%s'", ua)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>Test Page</body></html>"))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 1<<20)
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if resp.ContentType != "text/html; charset=utf-8" {
		t.Errorf("Expected content type 'text/html; charset=utf-8', got '%s'", resp.ContentType)
	}
	if resp.Metrics.TTFB < 20*time.Millisecond {
		t.Errorf("TTFB should be at least 20ms, got %v", resp.Metrics.TTFB)
	}
	if resp.Metrics.DownloadTime < resp.Metrics.TTFB {
		t.Errorf("Download time should not be less than TTFB")
	}
	if string(resp.Body) != "<html><body>Test Page</body></html>" {
		t.Errorf("Unexpected body %q", string(resp.Body))
	}
}

func TestHTTPClientNonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 1<<20)
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error for 403: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", resp.StatusCode)
	}
}

func TestHTTPClientRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/final/" {
			http.Redirect(w, r, "/final/", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Final page"))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 1<<20)
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}
	if resp.FinalURL != server.URL+"/final/" {
		t.Errorf("Expected final URL '%s', got '%s'", server.URL+"/final/", resp.FinalURL)
	}
}

func TestHTTPClientStopsAtOffHostRedirect(t *testing.T) {
	var foreignHits int
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits++
		_, _ = w.Write([]byte("foreign"))
	}))
	defer foreign.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL+"/landing", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 1<<20)
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL+"/out")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("StatusCode = %d, want 302", resp.StatusCode)
	}
	if resp.FinalURL != server.URL+"/out" {
		t.Errorf("FinalURL = %q, want %q", resp.FinalURL, server.URL+"/out")
	}
	if got := resp.Headers.Get("Location"); got != foreign.URL+"/landing" {
		t.Errorf("Location = %q", got)
	}
	if foreignHits != 0 {
		t.Errorf("foreign server was requested %d times", foreignHits)
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 200*time.Millisecond, 1<<20)
	defer client.Close()

	start := time.Now()
	if _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Errorf("Expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestHTTPClientDecodesBodies(t *testing.T) {
	const page = "<html><body>compressed page</body></html>"

	var gz, br, zl, raw bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(page))
	_ = gw.Close()
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(page))
	_ = bw.Close()
	zw := zlib.NewWriter(&zl)
	_, _ = zw.Write([]byte(page))
	_ = zw.Close()
	fw, _ := flate.NewWriter(&raw, flate.DefaultCompression)
	_, _ = fw.Write([]byte(page))
	_ = fw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Errorf("Accept-Encoding = %q, want br offered", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gz.Bytes())
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(br.Bytes())
		case "/deflate":
			w.Header().Set("Content-Encoding", "deflate")
			_, _ = w.Write(zl.Bytes())
		case "/raw-deflate":
			w.Header().Set("Content-Encoding", "deflate")
			_, _ = w.Write(raw.Bytes())
		default:
			_, _ = w.Write([]byte(page))
		}
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 1<<20)
	defer client.Close()

	for _, path := range []string{"/plain", "/gzip", "/br", "/deflate", "/raw-deflate"} {
		resp, err := client.Fetch(context.Background(), server.URL+path)
		if err != nil {
			t.Fatalf("%s: Fetch failed: %v", path, err)
		}
		if string(resp.Body) != page {
			t.Errorf("%s: body = %q, want %q", path, resp.Body, page)
		}
	}
}

func TestHTTPClientBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 1024)
	defer client.Close()

	_, err := client.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Fetch error = %v, want ErrBodyTooLarge", err)
	}
}

func TestHTTPClientOversizedErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 1024)
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error for oversized 404: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	if len(resp.Body) != 1024 {
		t.Errorf("body length = %d, want 1024", len(resp.Body))
	}
}

func TestHTTPClientCustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Trace"); got != "abc" {
			t.Errorf("X-Trace = %q, want abc", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 1024)
	defer client.Close()
	client.SetCustomHeaders(map[string]string{"X-Trace": "abc"})

	if _, err := client.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
}

func TestHTTPClientErrorCases(t *testing.T) {
	client := NewHTTPClient("Test-Crawler/1.0", time.Second, 1024)
	defer client.Close()

	if _, err := client.Fetch(context.Background(), "://bad-url"); err == nil {
		t.Error("expected error for malformed URL")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Fetch(ctx, "http://127.0.0.1:1/"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
