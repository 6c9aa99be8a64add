package efile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

// numericRegex accepts integers, decimals and scientific notation.
// strconv alone would also take "Inf", "NaN", hex floats and underscores.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ColumnType is the type inferred for a whole column.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnInt
	ColumnFloat
)

func (t ColumnType) String() string {
	switch t {
	case ColumnInt:
		return "int"
	case ColumnFloat:
		return "float"
	default:
		return "string"
	}
}

// Numeric reports whether the column holds numbers.
func (t ColumnType) Numeric() bool {
	return t == ColumnInt || t == ColumnFloat
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "string":
		*t = ColumnString
	case "int":
		*t = ColumnInt
	case "float":
		*t = ColumnFloat
	default:
		return fmt.Errorf("unknown column type %q", b)
	}
	return nil
}

// Value is one cell. It keeps the verbatim text next to the parsed number so
// that tables can be written back exactly as they were read.
type Value struct {
	kind ColumnType
	text string
	i    int64
	f    float64
}

// StringValue returns a string cell.
func StringValue(s string) Value {
	return Value{kind: ColumnString, text: s}
}

// Kind returns the type of the column the cell belongs to.
func (v Value) Kind() ColumnType { return v.kind }

// Text returns the cell exactly as it appeared in the document.
func (v Value) Text() string { return v.text }

func (v Value) String() string { return v.text }

// Int returns the value of an int cell.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == ColumnInt
}

// Float returns the value of a numeric cell; int cells are converted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case ColumnInt:
		return float64(v.i), true
	case ColumnFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Interface returns the cell as string, int64 or float64.
func (v Value) Interface() any {
	switch v.kind {
	case ColumnInt:
		return v.i
	case ColumnFloat:
		return v.f
	default:
		return v.text
	}
}

// MarshalJSON writes numeric cells as JSON numbers and the rest as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ColumnInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case ColumnFloat:
		return strconv.AppendFloat(nil, v.f, 'g', -1, 64), nil
	default:
		return json.Marshal(v.text)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// Column describes one column position of a table.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Table is a named, typed table. Tables are immutable; accessors return
// copies.
type Table struct {
	name    string
	columns []string
	types   []ColumnType
	rows    [][]Value
}

// NewTable types raw rows column by column. It returns false when columns
// or rows is empty: such a section has no table.
//
// A column is numeric only if every cell at that position parses as a
// number; it is int when every cell is integral, float otherwise. A single
// other cell, including an empty one, makes the whole column a string
// column. Rows may be shorter or longer than the header; each column is
// typed from the rows that reach it.
func NewTable(name string, columns []string, rows [][]string) (*Table, bool) {
	if len(columns) == 0 || len(rows) == 0 {
		return nil, false
	}

	width := len(columns)
	for _, row := range rows {
		width = max(width, len(row))
	}

	types := make([]ColumnType, width)
	for col := range types {
		types[col] = inferColumn(rows, col)
	}

	values := make([][]Value, len(rows))
	for r, row := range rows {
		values[r] = make([]Value, len(row))
		for c, cell := range row {
			values[r][c] = typedValue(cell, types[c])
		}
	}

	return &Table{
		name:    name,
		columns: slices.Clone(columns),
		types:   types,
		rows:    values,
	}, true
}

func inferColumn(rows [][]string, col int) ColumnType {
	kind := ColumnInt
	seen := false
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		seen = true
		cell := row[col]
		if !isNumeric(cell) {
			return ColumnString
		}
		if kind == ColumnInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				kind = ColumnFloat
			}
		}
	}
	if !seen {
		return ColumnString
	}
	return kind
}

func isNumeric(s string) bool {
	if !numericRegex.MatchString(s) {
		return false
	}
	// rejects values out of float64 range
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// typedValue converts a cell already known to fit kind.
func typedValue(cell string, kind ColumnType) Value {
	v := Value{kind: kind, text: cell}
	switch kind {
	case ColumnInt:
		v.i, _ = strconv.ParseInt(cell, 10, 64)
	case ColumnFloat:
		v.f, _ = strconv.ParseFloat(cell, 64)
	}
	return v
}

// Name returns the section name the table came from.
func (t *Table) Name() string { return t.name }

// Columns returns the header names.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Types returns the inferred type of every column position, Width() long.
func (t *Table) Types() []ColumnType { return slices.Clone(t.types) }

// ColumnType returns the type at column position i.
func (t *Table) ColumnType(i int) ColumnType {
	if i < 0 || i >= len(t.types) {
		return ColumnString
	}
	return t.types[i]
}

// Schema returns a Column for every position; positions past the header
// have an empty name.
func (t *Table) Schema() []Column {
	cols := make([]Column, len(t.types))
	for i, typ := range t.types {
		cols[i].Type = typ
		if i < len(t.columns) {
			cols[i].Name = t.columns[i]
		}
	}
	return cols
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.columns, name)
}

// NumColumns returns the number of header columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// Width returns the number of column positions: the header length or the
// longest row, whichever is greater.
func (t *Table) Width() int { return len(t.types) }

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value { return slices.Clone(t.rows[i]) }

// Rows returns a copy of all rows.
func (t *Table) Rows() [][]Value {
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		rows[i] = slices.Clone(row)
	}
	return rows
}

// Cell returns the cell at row r, column c. ok is false when the row does
// not reach column c.
func (t *Table) Cell(r, c int) (v Value, ok bool) {
	if r < 0 || r >= len(t.rows) || c < 0 || c >= len(t.rows[r]) {
		return Value{}, false
	}
	return t.rows[r][c], true
}

// RawRows returns the verbatim text of every cell.
func (t *Table) RawRows() [][]string {
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = v.text
		}
	}
	return rows
}

// Uniform reports whether every row has exactly one cell per header column.
func (t *Table) Uniform() bool {
	for _, row := range t.rows {
		if len(row) != len(t.columns) {
			return false
		}
	}
	return true
}

// Equal reports whether t and o have the same name, header, types and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.name != o.name || !slices.Equal(t.columns, o.columns) || !slices.Equal(t.types, o.types) {
		return false
	}
	return slices.EqualFunc(t.rows, o.rows, func(a, b []Value) bool {
		return slices.Equal(a, b)
	})
}

type tableJSON struct {
	Name    string    `json:"name" yaml:"name"`
	Columns []Column  `json:"columns" yaml:"columns"`
	Rows    [][]Value `json:"rows" yaml:"rows"`
}

func (t *Table) view() tableJSON {
	return tableJSON{Name: t.name, Columns: t.Schema(), Rows: t.rows}
}

// MarshalJSON writes the table as {"name", "columns": [{name, type}], "rows"}.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.view())
}

// MarshalYAML implements yaml.Marshaler with the same shape as MarshalJSON.
func (t *Table) MarshalYAML() (interface{}, error) {
	return t.view(), nil
}
