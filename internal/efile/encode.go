package efile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Encoder writes tables in the efile grammar. Cells are written with their
// verbatim text, so numbers keep their original spelling.
type Encoder struct {
	w        io.Writer
	spec     FormatSpec
	comments map[string][]string
}

// NewEncoder returns an Encoder that writes to w using spec's tokens.
func NewEncoder(w io.Writer, spec FormatSpec) *Encoder {
	return &Encoder{w: w, spec: spec, comments: make(map[string][]string)}
}

// Comment adds "//" comment lines written right after the opening marker of
// section. Comment lines must not contain newlines.
func (e *Encoder) Comment(section string, lines ...string) {
	e.comments[section] = append(e.comments[section], lines...)
}

// EncodeResult writes every table of r in file order.
func (e *Encoder) EncodeResult(r *Result) error {
	return e.Encode(r.Tables()...)
}

// Encode validates all tables first and writes nothing when one of them
// cannot be represented. Tables are separated by a blank line.
func (e *Encoder) Encode(tables ...*Table) error {
	if err := e.checkSpec(); err != nil {
		return err
	}
	for _, t := range tables {
		if err := e.checkTable(t); err != nil {
			return err
		}
	}

	bw := bufio.NewWriter(e.w)
	for i, t := range tables {
		if i > 0 {
			bw.WriteByte('\n')
		}
		e.writeTable(bw, t)
	}
	return bw.Flush()
}

func (e *Encoder) writeTable(bw *bufio.Writer, t *Table) {
	fmt.Fprintf(bw, "<%s>\n", t.name)
	for _, c := range e.comments[t.name] {
		bw.WriteString(commentPrefix + " " + c + "\n")
	}

	bw.WriteString(e.spec.AttributeNameStarter + " ")
	bw.WriteString(strings.Join(t.columns, e.spec.AttributeBreaker))
	bw.WriteByte('\n')

	for _, row := range t.rows {
		bw.WriteString(e.spec.DataLineStarter + " ")
		for j, v := range row {
			if j > 0 {
				bw.WriteString(e.spec.DataBreaker)
			}
			bw.WriteString(v.text)
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "</%s>\n", t.name)
}

// checkSpec rejects token combinations whose output would parse differently:
// a header starter that prefixes a written data line turns rows into
// headers, and starters beginning with a comment or marker prefix are never
// reached.
func (e *Encoder) checkSpec() error {
	if err := e.spec.Validate(); err != nil {
		return err
	}
	s := e.spec
	for _, starter := range []string{s.AttributeNameStarter, s.DataLineStarter} {
		if strings.HasPrefix(starter, commentPrefix) || strings.HasPrefix(starter, "<") {
			return fmt.Errorf("encode: line starter %q collides with comment or marker syntax", starter)
		}
		if strings.TrimSpace(starter) != starter {
			return fmt.Errorf("encode: line starter %q has surrounding whitespace", starter)
		}
	}
	if strings.HasPrefix(s.DataLineStarter, s.AttributeNameStarter) {
		return fmt.Errorf("encode: data starter %q begins with header starter %q", s.DataLineStarter, s.AttributeNameStarter)
	}
	if strings.HasPrefix(s.AttributeNameStarter, s.DataLineStarter+" ") {
		return fmt.Errorf("encode: header starter %q matches data lines written with %q", s.AttributeNameStarter, s.DataLineStarter)
	}
	return nil
}

func (e *Encoder) checkTable(t *Table) error {
	if t == nil {
		return errors.New("encode: nil table")
	}
	if reason := badSectionName(t.name); reason != "" {
		return &EncodeError{Section: t.name, Row: -1, Column: -1, Reason: reason}
	}
	for i, c := range e.comments[t.name] {
		if strings.ContainsAny(c, "\r\n") {
			return &EncodeError{Section: t.name, Row: -1, Column: -1, Reason: fmt.Sprintf("comment %d contains a line break", i)}
		}
	}
	for j, name := range t.columns {
		if reason := badField(name, e.spec.AttributeBreaker, atEdge(j, len(t.columns))); reason != "" {
			return &EncodeError{Section: t.name, Row: -1, Column: j, Reason: "column name " + reason}
		}
	}
	for i, row := range t.rows {
		if len(row) == 0 {
			return &EncodeError{Section: t.name, Row: i, Column: 0, Reason: "empty row"}
		}
		for j, v := range row {
			if reason := badField(v.text, e.spec.DataBreaker, atEdge(j, len(row))); reason != "" {
				return &EncodeError{Section: t.name, Row: i, Column: j, Reason: "cell " + reason}
			}
		}
	}
	return nil
}

func badSectionName(name string) string {
	switch {
	case strings.ContainsAny(name, "<>\r\n"):
		return "section name contains '<', '>' or a line break"
	case strings.HasPrefix(name, "/"):
		return "section name starts with '/'"
	case strings.TrimSpace(name) != name:
		return "section name has surrounding whitespace"
	}
	return ""
}

// badField explains why s would not survive a split on breaker followed by
// trimming. With a whitespace breaker an empty first or last field is
// trimmed away together with the line.
func badField(s, breaker string, edge bool) string {
	switch {
	case strings.ContainsAny(s, "\r\n"):
		return "contains a line break"
	case strings.Contains(s, breaker):
		return fmt.Sprintf("contains the breaker %q", breaker)
	case strings.TrimSpace(s) != s:
		return "has surrounding whitespace"
	case s == "" && edge && strings.TrimSpace(breaker) == "":
		return "is empty"
	}
	return ""
}

// atEdge reports whether field j of n is the first or last of several.
func atEdge(j, n int) bool {
	return n > 1 && (j == 0 || j == n-1)
}

// Encode writes tables to w with spec.
func Encode(w io.Writer, spec FormatSpec, tables ...*Table) error {
	return NewEncoder(w, spec).Encode(tables...)
}

// Marshal returns the encoding of every table in r.
func Marshal(spec FormatSpec, r *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf, spec).EncodeResult(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
