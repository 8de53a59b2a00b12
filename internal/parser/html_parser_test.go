package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHTMLParser(t *testing.T) {
	htmlContent := `
<!DOCTYPE html>
<html>
<head>
	<title>
		Test Page Title
	</title>
	<style>body { color: red; }</style>
</head>
<body>
	<h1>Test Page</h1>
	<p>Some   content
	spread over lines</p>
	<script>var hidden = "not text";</script>
	<noscript>enable javascript</noscript>
	<a href="/relative-link">Relative Link</a>
	<a href="https://example.com/absolute-link">Absolute Link</a>
	<a href="https://external.com/page" rel="nofollow">External Link</a>
	<a href="#anchor">Anchor Link</a>
	<a href="">Empty</a>
	<a>No href</a>
	<a href="/relative-link">Duplicate</a>
	<a href="mailto:someone@example.com">Mail</a>
	<a href="/page-with-text">Link with <span>nested</span> text</a>
</body>
</html>
`

	result, err := NewHTMLParser().Extract([]byte(htmlContent), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}

	if result.Title != "Test Page Title" {
		t.Errorf("Expected title 'Test Page Title', got '%s'", result.Title)
	}
	if !result.HasTitle() {
		t.Error("HasTitle() = false, want true")
	}

	wantText := "Test Page Some content spread over lines Relative Link Absolute Link External Link " +
		"Anchor Link Empty No href Duplicate Mail Link with nested text"
	if diff := cmp.Diff(wantText, result.Text); diff != "" {
		t.Errorf("Text mismatch (-want +got):\n%s", diff)
	}

	wantLinks := []string{
		"/relative-link",
		"https://example.com/absolute-link",
		"https://external.com/page",
		"mailto:someone@example.com",
		"/page-with-text",
	}
	if diff := cmp.Diff(wantLinks, result.Links); diff != "" {
		t.Errorf("Links mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractWithoutTitle(t *testing.T) {
	result, err := NewHTMLParser().Extract([]byte(`<html><body><p>Only body</p></body></html>`), "text/html")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.HasTitle() {
		t.Errorf("HasTitle() = true, title %q", result.Title)
	}
	if result.Text != "Only body" {
		t.Errorf("Text = %q", result.Text)
	}
	if len(result.Links) != 0 {
		t.Errorf("Links = %v, want none", result.Links)
	}
}

func TestExtractEmptyBody(t *testing.T) {
	result, err := NewHTMLParser().Extract(nil, "text/html")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Title != "" || result.Text != "" {
		t.Errorf("got title %q text %q, want both empty", result.Title, result.Text)
	}
}

func TestExtractDecodesCharset(t *testing.T) {
	// "café" in ISO-8859-1
	body := []byte("<html><head><title>caf\xe9</title></head><body>men\xfa</body></html>")

	result, err := NewHTMLParser().Extract(body, "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Title != "café" {
		t.Errorf("Title = %q, want %q", result.Title, "café")
	}
	if result.Text != "menú" {
		t.Errorf("Text = %q, want %q", result.Text, "menú")
	}
}

func TestCustomStrip(t *testing.T) {
	body := []byte(`<html><body><nav>Menu</nav><main>Article</main></body></html>`)

	result, err := NewHTMLParserWithStrip([]string{"nav"}).Extract(body, "text/html")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Text != "Article" {
		t.Errorf("Text = %q, want %q", result.Text, "Article")
	}
}
