package efile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Parser turns efile documents into tables. A Parser holds no state between
// calls and is safe for concurrent use.
type Parser struct {
	spec           FormatSpec
	logger         *slog.Logger
	onAnomaly      func(Anomaly)
	strictRowWidth bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger anomalies and progress are written to.
// The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAnomalyHandler registers fn to receive every anomaly in the order it
// is found. fn is called synchronously from the parsing goroutine.
func WithAnomalyHandler(fn func(Anomaly)) Option {
	return func(p *Parser) {
		p.onAnomaly = fn
	}
}

// WithStrictRowWidth makes a data row whose cell count differs from its
// header fail the parse with a *RowWidthError. Without it such rows are
// kept as they are and reported as AnomalyRowWidth.
func WithStrictRowWidth() Option {
	return func(p *Parser) {
		p.strictRowWidth = true
	}
}

// NewParser returns a Parser for documents written with spec.
func NewParser(spec FormatSpec, opts ...Option) *Parser {
	p := &Parser{spec: spec, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Spec returns the parser's format tokens.
func (p *Parser) Spec() FormatSpec {
	return p.spec
}

// ParseFile reads the document at dataPath with spec.
func ParseFile(dataPath string, spec FormatSpec) (*Result, error) {
	return NewParser(spec).ParseFile(dataPath)
}

// Parse loads the format file at configPath and parses the document at
// dataPath with it.
func Parse(dataPath, configPath string) (*Result, error) {
	spec, err := LoadFormatSpec(configPath)
	if err != nil {
		return nil, err
	}
	return ParseFile(dataPath, spec)
}

// ParseFile reads and parses the document at path. Open, read and decoding
// failures are returned as *FileReadError.
func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	return p.ParseReader(path, f)
}

// ParseBytes parses an in-memory document; name is used in errors and logs.
func (p *Parser) ParseBytes(name string, data []byte) (*Result, error) {
	return p.ParseReader(name, bytes.NewReader(data))
}

// ParseReader parses the document read from r.
func (p *Parser) ParseReader(name string, r io.Reader) (*Result, error) {
	if err := p.spec.Validate(); err != nil {
		return nil, err
	}

	lines, err := ReadLines(r)
	if err != nil {
		return nil, &FileReadError{Path: name, Err: err}
	}

	result, err := p.ParseLines(lines)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	p.logger.Debug("efile parsed",
		"file", name,
		"lines", len(lines),
		"tables", result.Names(),
	)
	return result, nil
}

// ParseLines parses a document that is already split into lines. It fails
// only for an invalid FormatSpec or, in strict mode, a row width mismatch.
func (p *Parser) ParseLines(lines []string) (*Result, error) {
	if err := p.spec.Validate(); err != nil {
		return nil, err
	}

	sections := scanSections(lines, p.report)

	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		names := make([]string, len(sections))
		for i, sec := range sections {
			names[i] = sec.Name
		}
		p.logger.Debug("efile sections found", "sections", names)
	}

	result := newResult()
	for _, sec := range sections {
		body := collectSection(lines, sec, p.spec, p.report)
		if err := p.checkRowWidths(sec, body); err != nil {
			return nil, err
		}

		table, ok := NewTable(sec.Name, body.header, body.rows)
		if !ok {
			p.report(Anomaly{
				Kind:    AnomalyEmptySection,
				Section: sec.Name,
				Line:    sec.Start + 1,
				Detail:  emptyReason(body),
			})
			continue
		}

		if result.put(table) {
			p.report(Anomaly{
				Kind:    AnomalyDuplicateSection,
				Section: sec.Name,
				Line:    sec.Start + 1,
				Detail:  "replaces an earlier table with the same name",
			})
		}
		p.logger.Debug("efile table built",
			"section", sec.Name,
			"columns", table.NumColumns(),
			"rows", table.NumRows(),
		)
	}
	return result, nil
}

// checkRowWidths reports rows that do not match the header, or fails on the
// first one in strict mode. Sections without a header are left alone since
// they produce no table.
func (p *Parser) checkRowWidths(sec Section, body sectionBody) error {
	if body.headerLine < 0 {
		return nil
	}
	want := len(body.header)
	for i, row := range body.rows {
		if len(row) == want {
			continue
		}
		if p.strictRowWidth {
			return &RowWidthError{Section: sec.Name, Line: body.rowLines[i] + 1, Want: want, Got: len(row)}
		}
		p.report(Anomaly{
			Kind:    AnomalyRowWidth,
			Section: sec.Name,
			Line:    body.rowLines[i] + 1,
			Detail:  fmt.Sprintf("%d cells, header has %d columns", len(row), want),
		})
	}
	return nil
}

func (p *Parser) report(a Anomaly) {
	p.logger.Log(context.Background(), a.Kind.level(), "efile anomaly",
		"kind", a.Kind,
		"section", a.Section,
		"line", a.Line,
		"detail", a.Detail,
	)
	if p.onAnomaly != nil {
		p.onAnomaly(a)
	}
}

func emptyReason(body sectionBody) string {
	switch {
	case body.headerLine < 0 && len(body.rows) == 0:
		return "no header and no data lines"
	case body.headerLine < 0:
		return "no header line"
	default:
		return "no data lines"
	}
}
