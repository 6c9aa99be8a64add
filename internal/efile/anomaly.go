package efile

import (
	"fmt"
	"log/slog"
)

// AnomalyKind classifies a non-fatal irregularity found while parsing.
type AnomalyKind string

const (
	// AnomalyDiscardedOpen: an opening marker was replaced by another one
	// before it was closed.
	AnomalyDiscardedOpen AnomalyKind = "discarded_open"
	// AnomalyUnmatchedClose: a closing marker did not match the open section,
	// or no section was open.
	AnomalyUnmatchedClose AnomalyKind = "unmatched_close"
	// AnomalyDanglingOpen: the document ended inside a section.
	AnomalyDanglingOpen AnomalyKind = "dangling_open"
	// AnomalyEmptySection: a section had no header or no data rows.
	AnomalyEmptySection AnomalyKind = "empty_section"
	// AnomalyDuplicateSection: a table replaced an earlier one with the same name.
	AnomalyDuplicateSection AnomalyKind = "duplicate_section"
	// AnomalyRepeatedHeader: a section declared its header more than once.
	AnomalyRepeatedHeader AnomalyKind = "repeated_header"
	// AnomalyRowWidth: a data row's cell count differs from the header.
	AnomalyRowWidth AnomalyKind = "row_width"
	// AnomalyIgnoredLine: a line inside a section was neither blank, a
	// comment, a header nor a data line.
	AnomalyIgnoredLine AnomalyKind = "ignored_line"
)

// AnomalyKinds lists every kind, in a stable order.
var AnomalyKinds = []AnomalyKind{
	AnomalyDiscardedOpen,
	AnomalyUnmatchedClose,
	AnomalyDanglingOpen,
	AnomalyEmptySection,
	AnomalyDuplicateSection,
	AnomalyRepeatedHeader,
	AnomalyRowWidth,
	AnomalyIgnoredLine,
}

// Anomaly describes one irregularity. Line is 1-based.
type Anomaly struct {
	Kind    AnomalyKind `json:"kind" yaml:"kind"`
	Section string      `json:"section,omitempty" yaml:"section,omitempty"`
	Line    int         `json:"line" yaml:"line"`
	Detail  string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (a Anomaly) String() string {
	if a.Detail == "" {
		return fmt.Sprintf("line %d: %s in section %q", a.Line, a.Kind, a.Section)
	}
	return fmt.Sprintf("line %d: %s in section %q: %s", a.Line, a.Kind, a.Section, a.Detail)
}

// level is the log level anomalies of this kind are reported at.
// Kinds that usually mean a broken writer are warnings.
func (k AnomalyKind) level() slog.Level {
	switch k {
	case AnomalyIgnoredLine, AnomalyEmptySection:
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}

// AnomalyCollector accumulates anomalies. Its Add method can be passed to
// WithAnomalyHandler. It is not safe for concurrent use.
type AnomalyCollector struct {
	items []Anomaly
}

// Add records a.
func (c *AnomalyCollector) Add(a Anomaly) {
	c.items = append(c.items, a)
}

// Anomalies returns the recorded anomalies in report order.
func (c *AnomalyCollector) Anomalies() []Anomaly {
	return c.items
}

// Count returns how many anomalies of kind were recorded.
func (c *AnomalyCollector) Count(kind AnomalyKind) int {
	n := 0
	for _, a := range c.items {
		if a.Kind == kind {
			n++
		}
	}
	return n
}
