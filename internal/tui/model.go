// Package tui shows the analysis of a single capture in the terminal.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"netforensic/internal/models"
)

// AnalyzeFunc runs the pipeline for the capture being viewed.
type AnalyzeFunc func() (*models.AnalysisResult, error)

type resultMsg struct {
	result *models.AnalysisResult
	err    error
}

type AnalysisModel struct {
	filename string
	analyze  AnalyzeFunc

	spinner spinner.Model
	table   table.Model

	loading bool
	result  *models.AnalysisResult
	err     error
}

func NewAnalysisModel(filename string, analyze AnalyzeFunc) AnalysisModel {
	columns := []table.Column{
		{Title: "Source", Width: 16},
		{Title: "Destination", Width: 16},
		{Title: "Packets", Width: 9},
		{Title: "Bytes", Width: 11},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))),
	)

	return AnalysisModel{
		filename: filename,
		analyze:  analyze,
		spinner:  sp,
		table:    t,
		loading:  true,
	}
}

func (m AnalysisModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, analyzeCmd(m.analyze))
}

// Result returns the finished analysis, or nil while it is still running or
// after it failed.
func (m AnalysisModel) Result() *models.AnalysisResult {
	return m.result
}

// Err returns the analysis failure, if any.
func (m AnalysisModel) Err() error {
	return m.err
}

func analyzeCmd(analyze AnalyzeFunc) tea.Cmd {
	return func() tea.Msg {
		result, err := analyze()
		return resultMsg{result: result, err: err}
	}
}
