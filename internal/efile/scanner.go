package efile

import (
	"fmt"
	"strings"
)

// Section is a named span of lines. Start and End are the 0-based indices
// of the opening "<name>" and the matching closing "</name>" lines.
type Section struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// scanState is either outside any section or inside exactly one.
type scanState struct {
	inSection bool
	name      string
	start     int
}

var outside = scanState{}

// sectionScanner walks lines once and emits closed sections in file order.
type sectionScanner struct {
	state  scanState
	report func(Anomaly)
}

// Scan returns the sections of lines in file order. Sections do not nest:
// an opening marker seen while a section is open replaces it, a closing
// marker is honoured only when it names the open section, and a section
// still open at the end of input is dropped.
func Scan(lines []string) []Section {
	return scanSections(lines, nil)
}

func scanSections(lines []string, report func(Anomaly)) []Section {
	s := &sectionScanner{state: outside, report: report}
	var sections []Section
	for i, line := range lines {
		if sec, ok := s.step(i, strings.TrimSpace(line)); ok {
			sections = append(sections, sec)
		}
	}
	if s.state.inSection {
		s.anomaly(AnomalyDanglingOpen, s.state.name, s.state.start, "no closing marker before end of input")
	}
	return sections
}

// step applies one trimmed line to the state machine.
func (s *sectionScanner) step(i int, line string) (Section, bool) {
	name, closing, ok := parseMarker(line)
	if !ok {
		return Section{}, false
	}

	switch {
	case !closing:
		if s.state.inSection {
			s.anomaly(AnomalyDiscardedOpen, s.state.name, s.state.start,
				fmt.Sprintf("replaced by <%s> at line %d", name, i+1))
		}
		s.state = scanState{inSection: true, name: name, start: i}
		return Section{}, false

	case s.state.inSection && name == s.state.name:
		sec := Section{Name: name, Start: s.state.start, End: i}
		s.state = outside
		return sec, true

	default:
		open := ""
		if s.state.inSection {
			open = s.state.name
		}
		s.anomaly(AnomalyUnmatchedClose, open, i, fmt.Sprintf("</%s> does not close an open section", name))
		return Section{}, false
	}
}

func (s *sectionScanner) anomaly(kind AnomalyKind, section string, index int, detail string) {
	if s.report == nil {
		return
	}
	s.report(Anomaly{Kind: kind, Section: section, Line: index + 1, Detail: detail})
}

// parseMarker recognises "<name>" and "</name>" in a trimmed line. The name
// is everything after the prefix, minus one trailing '>'.
func parseMarker(line string) (name string, closing, ok bool) {
	switch {
	case strings.HasPrefix(line, "</"):
		return strings.TrimSuffix(line[2:], ">"), true, true
	case strings.HasPrefix(line, "<"):
		return strings.TrimSuffix(line[1:], ">"), false, true
	default:
		return "", false, false
	}
}
