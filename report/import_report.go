package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// EntityRow is one line of the per-sheet summary table.
type EntityRow struct {
	Sheet   string
	Input   int
	Success int
	Errors  []string
}

// ReportData is the view model of the import report.
type ReportData struct {
	SessionID   string
	Filename    string
	Status      string
	UploadedAt  time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Rows        []EntityRow
	BatchErrors []string
	GeneratedAt time.Time
}

// Created returns the total number of accepted rows.
func (d ReportData) Created() int {
	total := 0
	for _, r := range d.Rows {
		total += r.Success
	}
	return total
}

// Failed returns the total number of rejected rows.
func (d ReportData) Failed() int {
	total := 0
	for _, r := range d.Rows {
		total += len(r.Errors)
	}
	return total
}

var importTemplate = template.Must(template.New("import").Funcs(template.FuncMap{
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Import report {{.SessionID}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px; text-align: left; vertical-align: top; }
.err { color: #a00; }
</style></head>
<body>
<h1>Import report</h1>
<p>File: {{.Filename}}<br>Session: {{.SessionID}}<br>Status: {{.Status}}<br>
Uploaded: {{ts .UploadedAt}}<br>Started: {{ts .StartedAt}}<br>Finished: {{ts .FinishedAt}}</p>
<p>Created {{.Created}} rows, {{.Failed}} rejected.</p>
{{if .BatchErrors}}<h2>Batch errors</h2><ul>{{range .BatchErrors}}<li class="err">{{.}}</li>{{end}}</ul>{{end}}
<table>
<tr><th>Sheet</th><th>Rows</th><th>Created</th><th>Errors</th></tr>
{{range .Rows}}<tr><td>{{.Sheet}}</td><td>{{.Input}}</td><td>{{.Success}}</td><td>{{range .Errors}}<div class="err">{{.}}</div>{{end}}</td></tr>
{{end}}</table>
<p>Generated {{ts .GeneratedAt}}</p>
</body></html>`))

// NewReportData flattens an executed session into the report view model.
func NewReportData(sess *importer.Session, now time.Time) ReportData {
	data := ReportData{
		SessionID:   sess.ID,
		Filename:    sess.Filename,
		Status:      string(sess.Status),
		UploadedAt:  sess.UploadedAt,
		GeneratedAt: now,
	}
	if sess.Result == nil {
		return data
	}
	data.StartedAt = sess.Result.StartedAt
	data.FinishedAt = sess.Result.FinishedAt
	data.BatchErrors = sess.Result.Errors

	order := make(map[string]int)
	for i, name := range sheets.ImportOrder() {
		order[name] = i
	}
	for name, summary := range sess.Result.Entities {
		data.Rows = append(data.Rows, EntityRow{
			Sheet:   name,
			Input:   sess.Counts[name],
			Success: summary.Success,
			Errors:  summary.Errors,
		})
	}
	sort.Slice(data.Rows, func(i, j int) bool {
		return order[data.Rows[i].Sheet] < order[data.Rows[j].Sheet]
	})
	return data
}

// RenderImportHTML renders the report as an HTML document.
func RenderImportHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := importTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("report: render import html: %w", err)
	}
	return buf.String(), nil
}

// Renderer turns import sessions into PDF documents via Gotenberg.
type Renderer struct {
	client *Client
	now    func() time.Time
}

// NewRenderer constructs a Renderer.
func NewRenderer(client *Client) *Renderer {
	return &Renderer{client: client, now: time.Now}
}

// RenderImportReport renders the executed session as a PDF.
func (r *Renderer) RenderImportReport(ctx context.Context, sess *importer.Session) ([]byte, error) {
	html, err := RenderImportHTML(NewReportData(sess, r.now()))
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}
