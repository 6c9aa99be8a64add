package efile

import (
	"reflect"
	"testing"
)

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		prefix  string
		breaker string
		want    []string
	}{
		{"space breaker", "@ a b c", "@", " ", []string{"a", "b", "c"}},
		{"no space after starter", "@a b", "@", " ", []string{"a", "b"}},
		{"comma breaker trims pieces", "# 1 , 2,3 ", "#", ",", []string{"1", "2", "3"}},
		{"double space keeps empty field", "# a  b", "#", " ", []string{"a", "", "b"}},
		{"multi char starter", "##> x|y", "##>", "|", []string{"x", "y"}},
		{"only starter", "#", "#", " ", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitFields(tt.line, tt.prefix, tt.breaker)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitFields(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestBuildTable(t *testing.T) {
	lines := []string{
		"<t>",
		"// comment",
		"",
		"@ col1 col2",
		"# 1 2",
		"stray text",
		"  # 3 x  ",
		"</t>",
	}
	sec := Section{Name: "t", Start: 0, End: 7}

	table, ok := BuildTable(lines, sec, DefaultFormatSpec())
	if !ok {
		t.Fatal("BuildTable returned no table")
	}
	if table.Name() != "t" {
		t.Errorf("Name() = %q", table.Name())
	}
	if got := table.RawRows(); !reflect.DeepEqual(got, [][]string{{"1", "2"}, {"3", "x"}}) {
		t.Errorf("RawRows() = %q", got)
	}
	if got := table.Types(); !reflect.DeepEqual(got, []ColumnType{ColumnInt, ColumnString}) {
		t.Errorf("Types() = %v", got)
	}
}

func TestCollectSection_RepeatedHeader(t *testing.T) {
	lines := []string{"<t>", "@ a", "# 1", "@ b c", "# 2 3", "</t>"}

	var c AnomalyCollector
	body := collectSection(lines, Section{Name: "t", Start: 0, End: 5}, DefaultFormatSpec(), c.Add)

	if !reflect.DeepEqual(body.header, []string{"b", "c"}) {
		t.Errorf("header = %q, want last header", body.header)
	}
	if body.headerLine != 3 {
		t.Errorf("headerLine = %d, want 3", body.headerLine)
	}
	if len(body.rows) != 2 {
		t.Errorf("rows = %q, want rows from both sides of the header", body.rows)
	}
	if c.Count(AnomalyRepeatedHeader) != 1 {
		t.Errorf("anomalies = %v", c.Anomalies())
	}
}

func TestCollectSection_HeaderStarterWins(t *testing.T) {
	// "#" is both a prefix of the data starter and the header starter.
	spec := FormatSpec{AttributeNameStarter: "#", AttributeBreaker: " ", DataLineStarter: "##", DataBreaker: " "}
	lines := []string{"<t>", "# a", "## 1", "</t>"}

	body := collectSection(lines, Section{Name: "t", Start: 0, End: 3}, spec, nil)

	if body.headerLine != 2 || len(body.rows) != 0 {
		t.Errorf("headerLine = %d rows = %d, want the data line read as header", body.headerLine, len(body.rows))
	}
}

func TestCollectSection_IgnoredLine(t *testing.T) {
	lines := []string{"<t>", "@ a", "this line is neither header nor data and is quite long", "# 1", "</t>"}

	var c AnomalyCollector
	collectSection(lines, Section{Name: "t", Start: 0, End: 4}, DefaultFormatSpec(), c.Add)

	got := c.Anomalies()
	if len(got) != 1 || got[0].Kind != AnomalyIgnoredLine || got[0].Line != 3 {
		t.Fatalf("anomalies = %v", got)
	}
	if want := "this line is neither header nor data and..."; got[0].Detail != want {
		t.Errorf("Detail = %q, want %q", got[0].Detail, want)
	}
}
