// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package report

import "html/template"

var pageTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
h1, h2 { color: #333; }
table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
.summary-table th { background-color: #e0e0e0; width: 20%; }
.failed { background-color: #ffcccc; }
.passed { background-color: #ccffcc; }
.skipped { background-color: #ffffcc; }
.unknown { background-color: #eeeeee; }
.details { white-space: pre-wrap; font-family: monospace; }
.timestamp { font-size: 0.9em; color: #555; margin-bottom: 20px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="timestamp">Report generated on: {{.Generated}}</div>
<h2>Overall Summary</h2>
<table class="summary-table">
{{- range .Overall}}
<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- range .Suites}}
<h2>Test Suite: {{.Name}}</h2>
<p>Tests: {{.Raw.Tests}}, Failures: {{.Raw.Failures}}, Disabled: {{.Raw.Disabled}}, Errors: {{.Raw.Errors}}, Time: {{.Raw.Time}}s</p>
<table>
<tr><th>Name</th><th>Status</th><th>Result</th><th>Time (s)</th><th>Failure Details</th></tr>
{{- range .Cases}}
<tr class="{{.Outcome}}">
<td>{{.Name}}</td>
<td>{{.RawStatus}}</td>
<td>{{.Outcome}}</td>
<td>{{.RawTime}}</td>
{{- if .Failure}}
<td class="details">{{.Failure.Message}}</td>
{{- else}}
<td>N/A</td>
{{- end}}
</tr>
{{- end}}
</table>
{{- end}}
</body>
</html>
`))
