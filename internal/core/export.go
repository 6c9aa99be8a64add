package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/efile/internal/efile"
	"gopkg.in/yaml.v2"
)

// Format is an export format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatEfile Format = "efile"
)

// Formats lists the export formats in display order.
var Formats = []Format{FormatEfile, FormatCSV, FormatJSON, FormatYAML}

// ParseFormat accepts a format name case-insensitively; "yml" and "qs" are
// aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "efile", "qs":
		return FormatEfile, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatEfile:
		return ".Qs"
	case FormatYAML:
		return ".yaml"
	default:
		return "." + string(f)
	}
}

// Export writes doc to w in format. With a table name only that table is
// written; CSV always needs one unless the document has a single table.
// The efile format is written with spec.
func Export(w io.Writer, doc *Document, table string, format Format, spec efile.FormatSpec) error {
	var tables []*efile.Table
	if table != "" {
		t, err := doc.Table(table)
		if err != nil {
			return err
		}
		tables = []*efile.Table{t}
	} else {
		tables = doc.Result.Tables()
	}

	switch format {
	case FormatCSV:
		if len(tables) != 1 {
			return ErrTableRequired
		}
		return writeCSV(w, tables[0])

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if table != "" {
			return enc.Encode(tables[0])
		}
		return enc.Encode(exportDocument{Name: doc.FileName, Tables: tables})

	case FormatYAML:
		var v interface{} = exportDocument{Name: doc.FileName, Tables: tables}
		if table != "" {
			v = tables[0]
		}
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("yaml export: %w", err)
		}
		_, err = w.Write(out)
		return err

	case FormatEfile:
		return efile.Encode(w, spec, tables...)
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

type exportDocument struct {
	Name   string         `json:"name" yaml:"name"`
	Tables []*efile.Table `json:"tables" yaml:"tables"`
}

// writeCSV writes the header followed by the verbatim cells. Ragged rows
// are written as they are.
func writeCSV(w io.Writer, t *efile.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.RawRows()); err != nil {
		return fmt.Errorf("csv export: %w", err)
	}
	return nil
}
