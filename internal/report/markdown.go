package report

import (
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/masahif/sitedigest/internal/crawler"
)

const (
	pageBreak  = `<div style="page-break-after: always;"></div>`
	noText     = "*No text content.*"
	dateLayout = "January 02, 2006"
)

// MarkdownWriter outputs reports in Markdown. Page breaks are inline
// HTML, which Markdown-to-PDF converters honour.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the full report.
func (w *MarkdownWriter) Write(doc *Document) error {
	md := markdown.NewMarkdown(w.output)

	writeTitlePage(md, doc, escapeMarkdown)
	md.PlainText(pageBreak)
	md.PlainText("")

	for _, page := range doc.Pages {
		writeSection(md, page, escapeMarkdown)
		md.PlainText(pageBreak)
		md.PlainText("")
	}

	return md.Build()
}

func writeTitlePage(md *markdown.Markdown, doc *Document, escape func(string) string) {
	md.H1(escape(doc.Title()))
	md.PlainText("")
	md.PlainTextf("Generated on %s", doc.GeneratedAt.Format(dateLayout))
	md.PlainText("")
	md.PlainTextf("Pages: %d", len(doc.Pages))
	md.PlainText("")
}

func writeSection(md *markdown.Markdown, page crawler.PageRecord, escape func(string) string) {
	md.H2(escape(page.Heading()))
	md.PlainText("")
	md.PlainTextf("Source: %s", escape(page.URL))
	md.PlainText("")
	if page.Text == "" {
		md.PlainText(noText)
	} else {
		md.PlainText(escape(page.Text))
	}
	md.PlainText("")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
	"|", `\|`,
	"<", `\<`,
	">", `\>`,
	"&", `\&`,
)

// escapeMarkdown makes s render as literal text.
func escapeMarkdown(s string) string {
	return escapeLeading(markdownEscaper.Replace(s))
}

// escapeLeading neutralizes list, heading-underline and ordered-list
// markers at the start of a line.
func escapeLeading(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '-', '+', '=':
		return `\` + s
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[:i] + `\` + s[i:]
	}
	return s
}
