// Package render converts issue markup bodies into HTML safe for
// embedding in work item description fields.
package render

import (
	"bytes"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// md is the shared converter. GFM enables bare-URL autolinking; the
// highlighting extension emits inline-styled syntax highlighting for
// fenced code blocks. Raw HTML passes through unchanged, which makes
// rendering idempotent on already-rendered text.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
			highlighting.WithFormatOptions(
				chromahtml.WithLineNumbers(false),
			),
		),
	),
	goldmark.WithRendererOptions(
		goldmarkhtml.WithUnsafe(),
	),
)

// Markdown renders src to HTML. It never fails: malformed input
// degrades to escaped plain text rather than an error, because the
// output is embedded in a best-effort description field downstream.
// Same input always produces the same output.
func Markdown(src string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>\n"
	}
	return buf.String()
}
