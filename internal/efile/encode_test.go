package efile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncoder_Output(t *testing.T) {
	a, _ := NewTable("units", []string{"year", "price"}, [][]string{{"-", "yuan/kWh"}})
	b, _ := NewTable("values", []string{"year", "price"}, [][]string{{"2023", "0.3500"}})

	var buf bytes.Buffer
	enc := NewEncoder(&buf, DefaultFormatSpec())
	enc.Comment("units", "exported")
	if err := enc.Encode(a, b); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := `<units>
// exported
@ year price
# - yuan/kWh
</units>

<values>
@ year price
# 2023 0.3500
</values>
`
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	specs := map[string]FormatSpec{
		"default": DefaultFormatSpec(),
		"custom":  {AttributeNameStarter: "H:", AttributeBreaker: ",", DataLineStarter: "D:", DataBreaker: ";"},
	}

	data, err := os.ReadFile(filepath.Join("testdata", "tariff.Qs"))
	if err != nil {
		t.Fatal(err)
	}
	original, err := NewParser(DefaultFormatSpec()).ParseBytes("tariff", data)
	if err != nil {
		t.Fatal(err)
	}

	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			out, err := Marshal(spec, original)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			back, err := NewParser(spec).ParseBytes("roundtrip", out)
			if err != nil {
				t.Fatalf("parse back: %v", err)
			}
			if !original.Equal(back) {
				t.Errorf("round trip changed the tables:\n%s", out)
			}
		})
	}
}

func TestEncoder_EmptyCells(t *testing.T) {
	middle, _ := NewTable("t", []string{"a", "b", "c"}, [][]string{{"1", "", "3"}})
	edge, _ := NewTable("t", []string{"a", "b"}, [][]string{{"", "2"}})

	out, err := Marshal(DefaultFormatSpec(), NewResult(middle))
	if err != nil {
		t.Fatalf("middle empty cell: %v", err)
	}
	back, _ := NewParser(DefaultFormatSpec()).ParseBytes("x", out)
	if !back.Table("t").Equal(middle) {
		t.Errorf("middle empty cell lost:\n%s", out)
	}

	var ee *EncodeError
	if err := Encode(&bytes.Buffer{}, DefaultFormatSpec(), edge); !errors.As(err, &ee) {
		t.Errorf("leading empty cell with space breaker: err = %v", err)
	}

	comma := FormatSpec{AttributeNameStarter: "@", AttributeBreaker: ",", DataLineStarter: "#", DataBreaker: ","}
	if err := Encode(&bytes.Buffer{}, comma, edge); err != nil {
		t.Errorf("leading empty cell with comma breaker: %v", err)
	}
}

func TestEncoder_Rejects(t *testing.T) {
	good, _ := NewTable("t", []string{"a"}, [][]string{{"1"}})
	tests := []struct {
		name  string
		spec  FormatSpec
		table *Table
	}{
		{
			name:  "cell contains breaker",
			spec:  DefaultFormatSpec(),
			table: mustTable(t, "t", []string{"a"}, [][]string{{"x y"}}),
		},
		{
			name:  "column contains breaker",
			spec:  FormatSpec{AttributeNameStarter: "@", AttributeBreaker: ",", DataLineStarter: "#", DataBreaker: " "},
			table: mustTable(t, "t", []string{"a,b"}, [][]string{{"1"}}),
		},
		{
			name:  "section name with bracket",
			spec:  DefaultFormatSpec(),
			table: mustTable(t, "a>b", []string{"a"}, [][]string{{"1"}}),
		},
		{
			name:  "section name starting with slash",
			spec:  DefaultFormatSpec(),
			table: mustTable(t, "/t", []string{"a"}, [][]string{{"1"}}),
		},
		{
			name:  "data starter begins with header starter",
			spec:  FormatSpec{AttributeNameStarter: "#", AttributeBreaker: " ", DataLineStarter: "##", DataBreaker: " "},
			table: good,
		},
		{
			name:  "header starter matches written data lines",
			spec:  FormatSpec{AttributeNameStarter: "# a", AttributeBreaker: ",", DataLineStarter: "#", DataBreaker: ","},
			table: good,
		},
		{
			name:  "starter looks like a comment",
			spec:  FormatSpec{AttributeNameStarter: "//@", AttributeBreaker: " ", DataLineStarter: "#", DataBreaker: " "},
			table: good,
		},
		{
			name:  "incomplete spec",
			spec:  FormatSpec{AttributeNameStarter: "@"},
			table: good,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tt.spec, good, tt.table); err == nil {
				t.Fatalf("Encode succeeded:\n%s", buf.String())
			}
			if buf.Len() != 0 {
				t.Errorf("Encode wrote %d bytes before failing", buf.Len())
			}
		})
	}
}

func TestEncoder_CommentWithNewline(t *testing.T) {
	table := mustTable(t, "t", []string{"a"}, [][]string{{"1"}})
	enc := NewEncoder(&bytes.Buffer{}, DefaultFormatSpec())
	enc.Comment("t", "one\ntwo")

	err := enc.Encode(table)
	if err == nil || !strings.Contains(err.Error(), "line break") {
		t.Errorf("err = %v, want line break error", err)
	}
}

func mustTable(t *testing.T, name string, columns []string, rows [][]string) *Table {
	t.Helper()
	table, ok := NewTable(name, columns, rows)
	if !ok {
		t.Fatalf("NewTable(%q) built no table", name)
	}
	return table
}
