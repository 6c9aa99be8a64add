// Package templates renders the HTML pages of the efile server as templ
// components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const styles = `
body { font-family: system-ui, sans-serif; margin: 0; color: #1f2937; background: #f9fafb; }
header { background: #111827; color: #f9fafb; padding: 0.75rem 1.5rem; }
header a { color: inherit; text-decoration: none; font-weight: 600; }
main { padding: 1.5rem; max-width: 72rem; margin: 0 auto; }
table { border-collapse: collapse; margin: 0.5rem 0 1.5rem; background: #fff; }
th, td { border: 1px solid #e5e7eb; padding: 0.25rem 0.6rem; text-align: left; }
th small { color: #6b7280; font-weight: normal; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.alert { border: 1px solid #fca5a5; background: #fef2f2; padding: 0.75rem 1rem; margin-bottom: 1rem; }
.muted { color: #6b7280; }
`

// pageWriter wraps an io.Writer and keeps the first write error, so components can
// write straight-line markup and check once.
type pageWriter struct {
	out io.Writer
	err error
}

func (b *pageWriter) raw(s string) {
	if b.err == nil {
		_, b.err = io.WriteString(b.out, s)
	}
}

func (b *pageWriter) rawf(format string, args ...any) {
	b.raw(fmt.Sprintf(format, args...))
}

func (b *pageWriter) text(s string) {
	b.raw(templ.EscapeString(s))
}

func (b *pageWriter) render(ctx context.Context, c templ.Component) {
	if b.err == nil && c != nil {
		b.err = c.Render(ctx, b.out)
	}
}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		b := &pageWriter{out: out}
		b.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		b.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>")
		b.text(title)
		b.raw(" · efile</title><style>")
		b.raw(styles)
		b.raw("</style></head><body><header><a href=\"/\">efile</a></header><main>")
		b.render(ctx, body)
		b.raw("</main></body></html>")
		return b.err
	})
}

// ErrorAlert is the error box shown above page content.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		b := &pageWriter{out: out}
		b.raw("<div class=\"alert\" role=\"alert\"><strong>")
		b.text(message)
		b.raw("</strong>")
		if action != "" {
			b.raw("<p>")
			b.text(action)
			b.raw("</p>")
		}
		if code != "" {
			b.raw("<p class=\"muted\">Reference: ")
			b.text(code)
			b.raw("</p>")
		}
		b.raw("</div>")
		return b.err
	})
}

// ErrorPage is a full page around ErrorAlert.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Error", ErrorAlert(message, action, code))
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func quoteToken(s string) string {
	if strings.TrimSpace(s) == "" {
		return fmt.Sprintf("%q", s)
	}
	return s
}
