package efile

import (
	"fmt"
	"strings"
)

// commentPrefix starts an ignored line inside a section. There is no
// escaping inside comments.
const commentPrefix = "//"

// sectionBody is the raw content of one section before typing.
type sectionBody struct {
	header     []string
	headerLine int // 0-based, -1 when no header
	rows       [][]string
	rowLines   []int // 0-based line of each row
}

// BuildTable tokenizes the lines strictly between sec.Start and sec.End and
// types the result. It returns false when the section has no header line or
// no data line.
func BuildTable(lines []string, sec Section, spec FormatSpec) (*Table, bool) {
	body := collectSection(lines, sec, spec, nil)
	return NewTable(sec.Name, body.header, body.rows)
}

// collectSection splits header and data lines of a section. The last header
// line wins; anything that is not blank, a comment, a header or a data line
// is skipped.
func collectSection(lines []string, sec Section, spec FormatSpec, report func(Anomaly)) sectionBody {
	body := sectionBody{headerLine: -1}
	anomaly := func(kind AnomalyKind, i int, detail string) {
		if report != nil {
			report(Anomaly{Kind: kind, Section: sec.Name, Line: i + 1, Detail: detail})
		}
	}

	start := max(sec.Start+1, 0)
	end := min(sec.End, len(lines))
	for i := start; i < end; i++ {
		line := strings.TrimSpace(lines[i])

		switch {
		case line == "", strings.HasPrefix(line, commentPrefix):
			continue

		case strings.HasPrefix(line, spec.AttributeNameStarter):
			if body.headerLine >= 0 {
				anomaly(AnomalyRepeatedHeader, i, fmt.Sprintf("replaces header from line %d", body.headerLine+1))
			}
			body.header = splitFields(line, spec.AttributeNameStarter, spec.AttributeBreaker)
			body.headerLine = i

		case strings.HasPrefix(line, spec.DataLineStarter):
			body.rows = append(body.rows, splitFields(line, spec.DataLineStarter, spec.DataBreaker))
			body.rowLines = append(body.rowLines, i)

		default:
			anomaly(AnomalyIgnoredLine, i, truncate(line, 40))
		}
	}
	return body
}

// splitFields strips prefix, trims, and splits on breaker, trimming every
// piece.
func splitFields(line, prefix, breaker string) []string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	fields := strings.Split(rest, breaker)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
