package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"netforensic/internal/reporting"
)

func (m AnalysisModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.loading = false
		m.result, m.err = msg.result, msg.err
		if m.result == nil {
			return m, nil
		}

		rows := make([]table.Row, len(m.result.TopTalkers))
		for i, c := range m.result.TopTalkers {
			rows[i] = table.Row{c.Src, c.Dst, fmt.Sprintf("%d", c.TotalPackets), reporting.FormatBytes(c.TotalBytes)}
		}
		m.table.SetRows(rows)
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}
