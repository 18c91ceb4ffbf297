package reporter

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Sla0ui/secheaders/internal/analyzer"
	"github.com/Sla0ui/secheaders/internal/models"
)

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"grade":  analyzer.Grade,
	"keys":   sortedKeys[string],
	"join":   strings.Join,
	"score":  func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"status": statusText,
	"insecure": func(m map[string][]string) []string {
		var out []string
		for _, name := range sortedKeys(m) {
			out = append(out, name+": "+strings.Join(m[name], ", "))
		}
		return out
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Security Headers Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        h1, h2, h3 { color: #2c3e50; }
        .container { max-width: 1200px; margin: 0 auto; }
        .summary { background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .stats { display: flex; gap: 20px; margin: 20px 0; }
        .stat-box { flex: 1; padding: 15px; border-radius: 5px; text-align: center; }
        .active { background-color: #d4edda; color: #155724; }
        .inactive { background-color: #f8d7da; color: #721c24; }
        .total { background-color: #e2e3e5; color: #383d41; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th, td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; vertical-align: top; }
        th { background-color: #f2f2f2; }
        tr:hover { background-color: #f5f5f5; }
        .badge { display: inline-block; padding: 3px 7px; border-radius: 3px; font-size: 12px; margin: 0 5px 3px 0; }
        .badge-success { background-color: #d4edda; color: #155724; }
        .badge-danger { background-color: #f8d7da; color: #721c24; }
        .badge-warning { background-color: #fff3cd; color: #856404; }
        .grade-A { color: #155724; } .grade-B { color: #856404; } .grade-C { color: #a04000; } .grade-F { color: #721c24; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Security Headers Report</h1>
        <div class="summary">
            <p>Report generated on: {{.Generated}}</p>
            <p>Total URLs scanned: {{.Summary.Total}}</p>
            <p>Average security score: {{score .Summary.AverageScore}}</p>
        </div>

        <div class="stats">
            <div class="stat-box active"><h3>Successful</h3><p>{{.Summary.Successful}}</p></div>
            <div class="stat-box inactive"><h3>Failed</h3><p>{{.Summary.Failed}}</p></div>
            <div class="stat-box total"><h3>Total</h3><p>{{.Summary.Total}}</p></div>
        </div>

        <h2>Scanned URLs</h2>
        <table>
            <tr>
                <th>URL</th>
                <th>Status</th>
                <th>Score</th>
                <th>Present</th>
                <th>Missing</th>
                <th>Issues</th>
            </tr>
{{- range .Results}}
            <tr>
                <td>{{.URL}}</td>
                <td>{{status .}}</td>
{{- if .IsSuccess}}
                <td class="grade-{{grade .Score}}">{{score .Score}} ({{grade .Score}})</td>
                <td>{{range keys .PresentHeaders}}<span class="badge badge-success">{{.}}</span>{{end}}</td>
                <td>{{range .MissingHeaders}}<span class="badge badge-danger">{{.}}</span>{{end}}</td>
                <td>{{range keys .DeprecatedHeaders}}<span class="badge badge-warning">deprecated: {{.}}</span>{{end}}{{range insecure .InsecureValues}}<span class="badge badge-danger">{{.}}</span>{{end}}</td>
{{- else}}
                <td>-</td>
                <td colspan="3">{{.Error}}</td>
{{- end}}
            </tr>
{{- end}}
        </table>
    </div>
</body>
</html>
`))

type htmlData struct {
	Generated string
	Summary   models.Summary
	Results   []*models.Result
}

func statusText(r *models.Result) string {
	if r.StatusCode == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *r.StatusCode)
}

// WriteHTML renders the results as a standalone HTML page
func (r *Reporter) WriteHTML(w io.Writer) error {
	data := htmlData{
		Generated: time.Now().Format("January 2, 2006 15:04:05"),
		Summary:   models.Summarize(r.results),
		Results:   r.results,
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}

// GenerateHTML creates an HTML report
func (r *Reporter) GenerateHTML(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create HTML file: %w", err)
	}
	defer file.Close()

	if err := r.WriteHTML(file); err != nil {
		return err
	}
	return file.Close()
}
