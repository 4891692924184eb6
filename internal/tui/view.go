package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"netforensic/internal/models"
	"netforensic/internal/reporting"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	errorStyle = infoStyle.
			BorderForeground(lipgloss.Color("#E74C3C"))

	levelColors = map[models.RiskLevel]lipgloss.Color{
		models.RiskHigh:   lipgloss.Color("#E74C3C"),
		models.RiskMedium: lipgloss.Color("#F39C12"),
		models.RiskLow:    lipgloss.Color("#27AE60"),
	}
)

func (m AnalysisModel) View() string {
	title := titleStyle.Render("netforensic - " + m.filename)

	switch {
	case m.loading:
		return title + "\n\n " + m.spinner.View() + " Running tshark...\n\nPress q to quit."
	case m.err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, title,
			errorStyle.Render("Analysis failed:\n"+m.err.Error())) + "\nPress q to quit."
	case m.result == nil:
		return title + "\nNo result.\nPress q to quit."
	}

	riskBox := infoStyle.Render(riskPanel(m.result.Risk))
	protoBox := infoStyle.Render("Protocols:\n" + protocolList(m.result.Protocols))

	var talkers string
	if len(m.result.TopTalkers) == 0 {
		talkers = "Top Talkers\nNo host conversation data available."
	} else {
		talkers = "Top Talkers\n" + m.table.View()
	}
	ttBox := infoStyle.Render(talkers)

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, riskBox, protoBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, ttBox)

	return body + "\nPress q to quit."
}

func riskPanel(risk models.RiskAssessment) string {
	level := lipgloss.NewStyle().Bold(true).Foreground(levelColors[risk.Level])
	var b strings.Builder
	fmt.Fprintf(&b, "Risk: %s (%d/100)\n", level.Render(string(risk.Level)), risk.Score)
	for _, r := range risk.Reasons {
		b.WriteString("- " + r + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func protocolList(protocols []models.ProtocolRecord) string {
	if len(protocols) == 0 {
		return "No protocol data."
	}
	lines := make([]string, len(protocols))
	for i, p := range protocols {
		lines[i] = fmt.Sprintf("%s: %d frames, %s", p.Protocol, p.Frames, reporting.FormatBytes(p.Bytes))
	}
	return strings.Join(lines, "\n")
}
