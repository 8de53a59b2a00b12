// Package parser turns an HTML page into the pieces the crawler keeps:
// the page title, its readable body text and the raw hrefs it links to.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Result contains the extracted page content.
type Result struct {
	// Title is the trimmed <title> text, or "" when the page has none.
	Title string
	// Text is the visible body text with runs of whitespace collapsed.
	// It may be empty.
	Text string
	// Links holds raw href values in document order, without duplicates.
	Links []string
}

// HasTitle reports whether a non-empty title was found.
func (r *Result) HasTitle() bool {
	return r.Title != ""
}

// defaultStrip lists elements whose content is never readable text.
var defaultStrip = []string{"script", "style", "noscript", "template"}

// HTMLParser extracts titles, text and links from HTML documents.
type HTMLParser struct {
	strip []string
}

// NewHTMLParser creates a parser that drops script, style, noscript and
// template content before collecting text.
func NewHTMLParser() *HTMLParser {
	return NewHTMLParserWithStrip(defaultStrip)
}

// NewHTMLParserWithStrip creates a parser that drops the given elements.
func NewHTMLParserWithStrip(strip []string) *HTMLParser {
	return &HTMLParser{strip: strip}
}

// Extract parses body, decoding it to UTF-8 using the charset named in
// contentType or sniffed from the document.
func (p *HTMLParser) Extract(body []byte, contentType string) (*Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &Result{Links: []string{}}, nil
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	if len(p.strip) > 0 {
		doc.Find(strings.Join(p.strip, ", ")).Remove()
	}

	result := &Result{
		Title: collapse(doc.Find("title").First().Text()),
		Links: []string{},
	}

	var parts []string
	for _, n := range doc.Find("body").Nodes {
		collectText(n, &parts)
	}
	result.Text = norm.NFC.String(collapse(strings.Join(parts, " ")))

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || seen[href] {
			return
		}
		seen[href] = true
		result.Links = append(result.Links, href)
	})

	return result, nil
}

// collectText appends every text node below n to parts.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// collapse trims s and replaces each run of whitespace with one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
