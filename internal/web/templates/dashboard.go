package templates

import (
	"context"
	"io"
	"time"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/a-h/templ"
)

// DashboardParams feeds the dashboard page.
type DashboardParams struct {
	Documents    []core.DocumentSummary
	Stored       []core.DocumentSummary
	StoreEnabled bool
	Format       efile.FormatSpec
	Limiter      core.ParseLimiterStatus
	Error        *core.UserMessage
}

// Dashboard lists cached and stored documents and offers an upload form.
func Dashboard(p DashboardParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		b := &pageWriter{out: out}
		if p.Error != nil {
			b.render(ctx, ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code))
		}

		b.raw("<h1>Documents</h1>")
		b.raw("<form method=\"post\" action=\"/upload\" enctype=\"multipart/form-data\">")
		b.raw("<input type=\"file\" name=\"file\" required> <button type=\"submit\">Parse</button></form>")
		b.rawf("<p class=\"muted\">Format: header <code>%s</code> split on <code>%s</code>, data <code>%s</code> split on <code>%s</code>. Parsing %d of %d.</p>",
			templ.EscapeString(quoteToken(p.Format.AttributeNameStarter)),
			templ.EscapeString(quoteToken(p.Format.AttributeBreaker)),
			templ.EscapeString(quoteToken(p.Format.DataLineStarter)),
			templ.EscapeString(quoteToken(p.Format.DataBreaker)),
			p.Limiter.Active, p.Limiter.MaxConcurrent)

		b.raw("<h2>Recent</h2>")
		documentList(b, p.Documents, "/documents/", "No documents parsed yet.")

		if p.StoreEnabled {
			b.raw("<h2>Stored</h2>")
			documentList(b, p.Stored, "/stored/", "No stored documents.")
		}
		return b.err
	})
	return Layout("Documents", body)
}

func documentList(b *pageWriter, docs []core.DocumentSummary, prefix, empty string) {
	if len(docs) == 0 {
		b.raw("<p class=\"muted\">")
		b.text(empty)
		b.raw("</p>")
		return
	}
	b.raw("<table><thead><tr><th>File</th><th>Parsed</th><th>Size</th><th>Tables</th><th>Anomalies</th></tr></thead><tbody>")
	for _, d := range docs {
		b.raw("<tr><td><a href=\"")
		b.text(prefix + d.ID.String())
		b.raw("\">")
		b.text(d.FileName)
		b.raw("</a></td><td>")
		b.text(d.ParsedAt.Format(time.DateTime))
		b.raw("</td><td class=\"num\">")
		b.text(humanSize(d.Size))
		b.rawf("</td><td class=\"num\">%d</td><td class=\"num\">%d</td></tr>", d.TableCount, d.Anomalies)
	}
	b.raw("</tbody></table>")
}
