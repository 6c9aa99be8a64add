package templates

import (
	"context"
	"io"
	"net/url"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/a-h/templ"
)

// DefaultMaxRows caps the rows rendered per table.
const DefaultMaxRows = 200

// DocumentParams feeds the document page.
type DocumentParams struct {
	Document     *core.Document
	StoreEnabled bool
	MaxRows      int
}

// DocumentPage shows every table of a document with its column types,
// followed by the anomalies found while parsing.
func DocumentPage(p DocumentParams) templ.Component {
	doc := p.Document
	maxRows := p.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		b := &pageWriter{out: out}
		base := "/api/documents/" + doc.ID.String()

		b.raw("<h1>")
		b.text(doc.FileName)
		b.raw("</h1><p class=\"muted\">")
		b.text(plural(doc.Result.Len(), "table") + ", " + humanSize(doc.Size) + ", parsed " + doc.ParsedAt.Format("2006-01-02 15:04:05 MST"))
		b.raw("</p><p>Export:")
		for _, f := range []core.Format{core.FormatEfile, core.FormatJSON, core.FormatYAML} {
			b.raw(" <a href=\"")
			b.text(base + "/export?format=" + string(f))
			b.raw("\">")
			b.text(string(f))
			b.raw("</a>")
		}
		b.raw("</p>")
		if p.StoreEnabled {
			b.raw("<form method=\"post\" action=\"")
			b.text("/documents/" + doc.ID.String() + "/save")
			b.raw("\"><button type=\"submit\">Save to database</button></form>")
		}

		if doc.Result.Len() == 0 {
			b.raw("<p class=\"muted\">The document has no tables.</p>")
		}
		for _, t := range doc.Result.Tables() {
			tableView(b, base, t, maxRows)
		}

		if len(doc.Anomalies) > 0 {
			b.raw("<h2>Anomalies</h2><table><thead><tr><th>Line</th><th>Kind</th><th>Section</th><th>Detail</th></tr></thead><tbody>")
			for _, a := range doc.Anomalies {
				b.rawf("<tr><td class=\"num\">%d</td><td>", a.Line)
				b.text(string(a.Kind))
				b.raw("</td><td>")
				b.text(a.Section)
				b.raw("</td><td>")
				b.text(a.Detail)
				b.raw("</td></tr>")
			}
			b.raw("</tbody></table>")
		}
		return b.err
	})
	return Layout(doc.FileName, body)
}

func tableView(b *pageWriter, base string, t *efile.Table, maxRows int) {
	tableURL := base + "/tables/" + url.PathEscape(t.Name()) + "/export?format="

	b.raw("<h2>")
	b.text(t.Name())
	b.raw("</h2><p class=\"muted\">")
	b.text(plural(t.NumRows(), "row"))
	b.raw(" · <a href=\"")
	b.text(tableURL + string(core.FormatCSV))
	b.raw("\">csv</a> <a href=\"")
	b.text(tableURL + string(core.FormatJSON))
	b.raw("\">json</a></p>")

	b.raw("<table><thead><tr>")
	for _, col := range t.Schema() {
		b.raw("<th>")
		b.text(col.Name)
		b.raw(" <small>")
		b.text(col.Type.String())
		b.raw("</small></th>")
	}
	b.raw("</tr></thead><tbody>")

	for i := 0; i < t.NumRows() && i < maxRows; i++ {
		b.raw("<tr>")
		for c := 0; c < t.Width(); c++ {
			v, ok := t.Cell(i, c)
			if !ok {
				b.raw("<td></td>")
				continue
			}
			if v.Kind().Numeric() {
				b.raw("<td class=\"num\">")
			} else {
				b.raw("<td>")
			}
			b.text(v.Text())
			b.raw("</td>")
		}
		b.raw("</tr>")
	}
	b.raw("</tbody></table>")

	if t.NumRows() > maxRows {
		b.rawf("<p class=\"muted\">Showing %d of %d rows.</p>", maxRows, t.NumRows())
	}
}
