package application

import (
	"fmt"

	"github.com/JonMunkholm/efile/internal/core"
	tea "github.com/charmbracelet/bubbletea"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type MenuItem struct {
	Label   string
	Submenu *Menu
	Action  func() tea.Cmd
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

// linkParents sets Parent throughout the tree and points every "Back"
// item at the enclosing menu.
func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		item := &menu.Items[i]

		if item.Label == "Back" {
			item.Submenu = parent
			continue
		}

		if item.Submenu != nil {
			linkParents(item.Submenu, menu)
		}
	}
}

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

func buildMenuTree(m *Model) *Menu {
	root := &Menu{
		Title: m.doc.FileName,
		Items: []MenuItem{
			{Label: "Tables ->", Submenu: loadTables(m)},
			{Label: fmt.Sprintf("Anomalies (%d)", len(m.doc.Anomalies)), Action: m.showAnomalies},
			{Label: "Export ->", Submenu: loadExport(m)},
			{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	LOAD MENUS
---------------------------------------- */

func loadTables(m *Model) *Menu {
	var items []MenuItem
	for _, t := range m.doc.Result.Tables() {
		name := t.Name()
		items = append(items, MenuItem{
			Label:  fmt.Sprintf("%s  (%d × %d)", name, t.NumRows(), t.Width()),
			Action: func() tea.Cmd { return m.showTable(name) },
		})
	}
	if len(items) == 0 {
		items = append(items, MenuItem{Label: "No tables"})
	}
	items = append(items, MenuItem{Label: "Back"})

	return &Menu{Title: "Tables", Items: items}
}

func loadExport(m *Model) *Menu {
	var items []MenuItem
	for _, format := range core.Formats {
		if format == core.FormatCSV {
			// CSV holds one table; it is offered from the table view
			continue
		}
		items = append(items, MenuItem{
			Label:  "As " + string(format),
			Action: func() tea.Cmd { return m.export("", format) },
		})
	}
	items = append(items, MenuItem{Label: "Back"})

	return &Menu{Title: "Export", Items: items}
}
