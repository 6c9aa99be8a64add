package application

import (
	"fmt"
	"strings"
)

func (m *Model) View() string {
	var b strings.Builder

	switch m.mode {
	case modeTable:
		t, _ := m.doc.Result.Get(m.current)
		b.WriteString(styleTitle.Render(fmt.Sprintf("%s · %d rows", m.current, t.NumRows())))
		b.WriteString("\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(styleHelp.Render(helpLine(m.keys.Up, m.keys.Down, m.keys.CSV, m.keys.Back, m.keys.Quit)))

	case modeAnomalies:
		b.WriteString(styleTitle.Render(fmt.Sprintf("Anomalies · %d", len(m.doc.Anomalies))))
		b.WriteString("\n")
		if len(m.doc.Anomalies) == 0 {
			b.WriteString(styleItem.Render("none"))
		} else {
			b.WriteString(m.table.View())
		}
		b.WriteString("\n")
		b.WriteString(styleHelp.Render(helpLine(m.keys.Up, m.keys.Down, m.keys.Back, m.keys.Quit)))

	default:
		b.WriteString(styleTitle.Render(m.menu.Title))
		b.WriteString("\n")
		for i, item := range m.menu.Items {
			if i == m.cursor {
				b.WriteString(styleSelected.Render("> " + item.Label))
			} else {
				b.WriteString(styleItem.Render(item.Label))
			}
			b.WriteString("\n")
		}
		b.WriteString(styleHelp.Render(helpLine(m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Back, m.keys.Quit)))
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(styleError.Render("error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(styleStatus.Render(m.status))
	}
	return b.String()
}
