// Package application is the terminal browser behind "efile browse": a
// menu of tables, a scrollable view of each table and its column types,
// the anomaly list, and exports to disk.
package application

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

const maxColumnWidth = 24

// DoneMsg reports a finished action in the status line.
type DoneMsg string

// ErrMsg reports a failed action.
type ErrMsg struct{ Err error }

type openTableMsg struct{ name string }

type openAnomaliesMsg struct{}

type mode int

const (
	modeMenu mode = iota
	modeTable
	modeAnomalies
)

// Options configures the browser.
type Options struct {
	// Spec writes efile exports; the zero value uses DefaultFormatSpec.
	Spec efile.FormatSpec

	// OutDir receives exports; default is the working directory.
	OutDir string
}

// Model is the bubbletea model of the browser.
type Model struct {
	doc  *core.Document
	opts Options
	keys keyMap

	root   *Menu
	menu   *Menu
	cursor int

	mode    mode
	current string
	table   table.Model

	status string
	err    error
	width  int
	height int
}

// New returns a browser for doc.
func New(doc *core.Document, opts Options) *Model {
	if opts.Spec == (efile.FormatSpec{}) {
		opts.Spec = efile.DefaultFormatSpec()
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}

	m := &Model{doc: doc, opts: opts, keys: defaultKeys(), height: 24}
	m.root = buildMenuTree(m)
	m.menu = m.root
	return m
}

// Run shows the browser until the user quits.
func Run(doc *core.Document, opts Options) error {
	_, err := tea.NewProgram(New(doc, opts), tea.WithAltScreen()).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(m.tableHeight())
		return m, nil

	case openTableMsg:
		t, ok := m.doc.Result.Get(msg.name)
		if !ok {
			m.err = fmt.Errorf("table %q not found", msg.name)
			return m, nil
		}
		m.table = newTableView(t, m.tableHeight())
		m.mode, m.current = modeTable, msg.name
		return m, nil

	case openAnomaliesMsg:
		m.table = newAnomalyView(m.doc.Anomalies, m.tableHeight())
		m.mode, m.current = modeAnomalies, ""
		return m, nil

	case DoneMsg:
		m.status, m.err = string(msg), nil
		return m, nil

	case ErrMsg:
		m.status, m.err = "", msg.Err
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.mode == modeMenu {
			return m.updateMenu(msg)
		}
		return m.updateTable(msg)
	}
	return m, nil
}

func (m *Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.menu.Items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Back):
		if m.menu.Parent != nil {
			m.menu, m.cursor = m.menu.Parent, 0
		}

	case key.Matches(msg, m.keys.Select):
		item := m.menu.Items[m.cursor]
		if item.Submenu != nil {
			m.menu, m.cursor = item.Submenu, 0
			return m, nil
		}
		if item.Action != nil {
			return m, item.Action()
		}
	}
	return m, nil
}

func (m *Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = modeMenu
		return m, nil

	case m.mode == modeTable && key.Matches(msg, m.keys.CSV):
		return m, m.export(m.current, core.FormatCSV)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) tableHeight() int {
	return max(m.height-6, 3)
}

func (m *Model) showTable(name string) tea.Cmd {
	return func() tea.Msg { return openTableMsg{name: name} }
}

func (m *Model) showAnomalies() tea.Cmd {
	return func() tea.Msg { return openAnomaliesMsg{} }
}

// export writes the document, or one table, to OutDir.
func (m *Model) export(tableName string, format core.Format) tea.Cmd {
	doc, opts := m.doc, m.opts
	return func() tea.Msg {
		base := strings.TrimSuffix(filepath.Base(doc.FileName), filepath.Ext(doc.FileName))
		if tableName != "" {
			base += "_" + tableName
		}
		if format == core.FormatEfile {
			// never overwrite the document being browsed
			base += "_export"
		}
		path := filepath.Join(opts.OutDir, base+format.Extension())

		f, err := os.Create(path)
		if err != nil {
			return ErrMsg{Err: err}
		}
		if err := core.Export(f, doc, tableName, format, opts.Spec); err != nil {
			f.Close()
			os.Remove(path)
			return ErrMsg{Err: err}
		}
		if err := f.Close(); err != nil {
			return ErrMsg{Err: err}
		}
		return DoneMsg("wrote " + path)
	}
}

func newTableView(t *efile.Table, height int) table.Model {
	schema := t.Schema()
	raw := t.RawRows()

	columns := make([]table.Column, len(schema))
	for i, col := range schema {
		title := col.Name + ":" + col.Type.String()
		width := utf8.RuneCountInString(title)
		for _, row := range raw {
			if i < len(row) {
				width = max(width, utf8.RuneCountInString(row[i]))
			}
		}
		columns[i] = table.Column{Title: title, Width: min(width, maxColumnWidth)}
	}

	rows := make([]table.Row, len(raw))
	for i, cells := range raw {
		row := make(table.Row, len(schema))
		copy(row, cells)
		rows[i] = row
	}

	return newTable(columns, rows, height)
}

func newAnomalyView(anomalies []efile.Anomaly, height int) table.Model {
	columns := []table.Column{
		{Title: "Line", Width: 6},
		{Title: "Kind", Width: 18},
		{Title: "Section", Width: 16},
		{Title: "Detail", Width: 48},
	}
	rows := make([]table.Row, len(anomalies))
	for i, a := range anomalies {
		rows[i] = table.Row{fmt.Sprint(a.Line), string(a.Kind), a.Section, a.Detail}
	}
	return newTable(columns, rows, height)
}

func newTable(columns []table.Column, rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(tableStyles())
	return t
}
