package store

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/google/uuid"
)

// documentRecord is the row stored per document.
type documentRecord struct {
	ID         uuid.UUID
	FileName   string
	ParsedAt   time.Time
	Size       int64
	TableCount int
}

// tableRecord is one stored table: header, type names and raw cells.
type tableRecord struct {
	Name     string
	Position int
	Columns  []string
	Types    []string
	Rows     [][]string
	RowCount int
	Uniform  bool
}

func recordsOf(doc *core.Document) (documentRecord, []tableRecord) {
	tables := doc.Result.Tables()
	recs := make([]tableRecord, len(tables))
	for i, t := range tables {
		types := make([]string, 0, t.Width())
		for _, typ := range t.Types() {
			types = append(types, typ.String())
		}
		recs[i] = tableRecord{
			Name:     t.Name(),
			Position: i,
			Columns:  t.Columns(),
			Types:    types,
			Rows:     t.RawRows(),
			RowCount: t.NumRows(),
			Uniform:  t.Uniform(),
		}
	}
	return documentRecord{
		ID:         doc.ID,
		FileName:   doc.FileName,
		ParsedAt:   doc.ParsedAt,
		Size:       doc.Size,
		TableCount: len(tables),
	}, recs
}

// rebuild types every table again from its raw cells.
func rebuild(d documentRecord, tables []tableRecord, anomalies []efile.Anomaly) (*core.Document, error) {
	built := make([]*efile.Table, 0, len(tables))
	for _, rec := range tables {
		t, ok := efile.NewTable(rec.Name, rec.Columns, rec.Rows)
		if !ok {
			return nil, fmt.Errorf("stored table %q of document %s has no rows", rec.Name, d.ID)
		}
		built = append(built, t)
	}
	return &core.Document{
		ID:        d.ID,
		FileName:  d.FileName,
		ParsedAt:  d.ParsedAt.UTC(),
		Size:      d.Size,
		Result:    efile.NewResult(built...),
		Anomalies: anomalies,
	}, nil
}

// summaryOf builds a listing entry without loading any cells.
func summaryOf(d documentRecord, tables []tableRecord, anomalies int) core.DocumentSummary {
	sum := core.DocumentSummary{
		ID:         d.ID,
		FileName:   d.FileName,
		ParsedAt:   d.ParsedAt.UTC(),
		Size:       d.Size,
		TableCount: d.TableCount,
		Anomalies:  anomalies,
	}
	for _, rec := range tables {
		cols := make([]efile.Column, len(rec.Types))
		for i, name := range rec.Types {
			var typ efile.ColumnType
			// unknown names fall back to string
			_ = typ.UnmarshalText([]byte(name))
			cols[i].Type = typ
			if i < len(rec.Columns) {
				cols[i].Name = rec.Columns[i]
			}
		}
		sum.Tables = append(sum.Tables, core.TableSummary{
			Name:    rec.Name,
			Columns: cols,
			Rows:    rec.RowCount,
			Uniform: rec.Uniform,
		})
	}
	return sum
}
