package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/nao1215/markdown"
	rscmarkdown "rsc.io/markdown"
)

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 48em; margin: 2em auto; line-height: 1.5; }
.page-break { page-break-after: always; break-after: page; }
@media screen { .page-break { border-bottom: 1px solid #ccc; margin: 2em 0; } }
</style>
</head>
<body>
`

const htmlTail = `</body>
</html>
`

var htmlPageBreak = uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(`<div class="page-break"></div>` + "\n")

// HTMLWriter outputs reports as a standalone HTML document.
type HTMLWriter struct {
	output io.Writer
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{output: output}
}

// Write outputs the full report.
func (w *HTMLWriter) Write(doc *Document) error {
	parts := make([]safehtml.HTML, 0, 2*len(doc.Pages)+2)

	title := markdown.NewMarkdown(io.Discard)
	writeTitlePage(title, doc, escapeMarkdownText)
	parts = append(parts, markdownToSafeHTML(title.String()), htmlPageBreak)

	for _, page := range doc.Pages {
		section := markdown.NewMarkdown(io.Discard)
		writeSection(section, page, escapeMarkdownText)
		parts = append(parts, markdownToSafeHTML(section.String()), htmlPageBreak)
	}

	body := safehtml.HTMLConcat(parts...)
	if _, err := fmt.Fprintf(w.output, htmlHead, safehtml.HTMLEscaped(doc.Title())); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	if _, err := io.WriteString(w.output, body.String()); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	if _, err := io.WriteString(w.output, htmlTail); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	return nil
}

// markdownToSafeHTML converts untrusted markdown to HTML. Any HTML in the
// input is escaped before conversion.
func markdownToSafeHTML(text string) safehtml.HTML {
	escaped := safehtml.HTMLEscaped(text)
	p := rscmarkdown.Parser{}
	html := rscmarkdown.ToHTML(p.Parse(escaped.String()))
	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(html)
}

// HTML escaping happens after markdown generation, so the characters it
// handles are left alone here.
var markdownTextEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
	"|", `\|`,
)

func escapeMarkdownText(s string) string {
	return escapeLeading(markdownTextEscaper.Replace(s))
}
