package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"netforensic/internal/logging"
	"netforensic/internal/models"
)

// GenerationError is returned when a report cannot be rendered or written.
type GenerationError struct {
	Filename string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate report for %s: %v", e.Filename, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// DownloadName is the filename offered to clients downloading the report.
func DownloadName(result *models.AnalysisResult) string {
	return fmt.Sprintf("Forensics_Report_%s.html", result.Filename)
}

// Generator renders analysis results as standalone HTML documents.
type Generator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{
		logger: logging.Component(logger, "reporting"),
		now:    time.Now,
	}
}

// Render writes the HTML report for result to w. Nothing is written when
// rendering fails.
func (g *Generator) Render(w io.Writer, result *models.AnalysisResult) error {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, newReportView(result, g.now())); err != nil {
		return g.fail(result, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return g.fail(result, err)
	}
	return nil
}

// WriteFile renders the report to path, replacing any previous artifact.
// The file only appears once it is complete.
func (g *Generator) WriteFile(path string, result *models.AnalysisResult) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return g.fail(result, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := g.Render(tmp, result); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return g.fail(result, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return g.fail(result, err)
	}

	g.logger.Info("report written", "file", result.Filename, "path", path)
	return nil
}

func (g *Generator) fail(result *models.AnalysisResult, err error) error {
	g.logger.Error("report generation failed", "file", result.Filename, "error", err)
	return &GenerationError{Filename: result.Filename, Err: err}
}

type talkerRow struct {
	Src, Dst     string
	TotalBytes   string
	TotalPackets int64
}

type reportView struct {
	Result    *models.AnalysisResult
	Generated string
	LevelCSS  string
	Talkers   []talkerRow
}

func newReportView(result *models.AnalysisResult, now time.Time) reportView {
	view := reportView{
		Result:    result,
		Generated: now.Format(time.RFC1123),
		LevelCSS:  "risk-low",
	}
	switch result.Risk.Level {
	case models.RiskHigh:
		view.LevelCSS = "risk-high"
	case models.RiskMedium:
		view.LevelCSS = "risk-medium"
	}
	for _, c := range result.TopTalkers {
		view.Talkers = append(view.Talkers, talkerRow{
			Src:          c.Src,
			Dst:          c.Dst,
			TotalBytes:   FormatBytes(c.TotalBytes),
			TotalPackets: c.TotalPackets,
		})
	}
	return view
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Forensics Report: {{.Result.Filename}}</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1 { color: #3b82f6; }
        h2 { color: #2c3e50; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: center; }
        th { background-color: #3b82f6; color: #f5f5f5; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        pre { background: #f5f5f5; padding: 10px; font-size: 12px; overflow-x: auto; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .risk-high { color: #d9534f; font-weight: bold; }
        .risk-medium { color: #f0ad4e; font-weight: bold; }
        .risk-low { color: #5cb85c; font-weight: bold; }
    </style>
</head>
<body>
    <h1>Forensics Report: {{.Result.Filename}}</h1>
    <div class="summary">
        <p><strong>Generated:</strong> {{.Generated}}</p>
        {{- if .Result.SessionID}}
        <p><strong>Session:</strong> {{.Result.SessionID}}</p>
        {{- end}}
        {{- if .Result.Digest}}
        <p><strong>BLAKE3:</strong> <code>{{.Result.Digest}}</code></p>
        {{- end}}
        {{- if .Result.LinkType}}
        <p><strong>Link Type:</strong> {{.Result.LinkType}}</p>
        {{- end}}
    </div>

    <h2>Risk Assessment</h2>
    <p class="{{.LevelCSS}}">{{.Result.Risk.Level}} ({{.Result.Risk.Score}}/100)</p>
    <ul>
        {{- range .Result.Risk.Reasons}}
        <li>{{.}}</li>
        {{- end}}
    </ul>

    <h2>Protocol Hierarchy Statistics</h2>
    <pre>{{.Result.ProtocolHierarchy}}</pre>

    <h2>Host Communication Analysis (Top Talkers)</h2>
    {{- if .Talkers}}
    <table>
        <thead>
            <tr>
                <th>Source</th>
                <th>Destination</th>
                <th>Bytes</th>
                <th>Packets</th>
            </tr>
        </thead>
        <tbody>
            {{- range .Talkers}}
            <tr><td>{{.Src}}</td><td>{{.Dst}}</td><td>{{.TotalBytes}}</td><td>{{.TotalPackets}}</td></tr>
            {{- end}}
        </tbody>
    </table>
    {{- else}}
    <p>No host conversation data available.</p>
    {{- end}}

    {{- if .Result.ExpertInfo}}

    <h2>Expert Info Details</h2>
    <pre>{{.Result.ExpertInfo}}</pre>
    {{- end}}
</body>
</html>
`))

// FormatBytes renders a byte count with binary units, e.g. "1.5 MB".
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
