package web

const tmplBase = `
{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
{{if .Status.Loading}}<meta http-equiv="refresh" content="2">{{end}}
<title>{{.Title}} · Event Dashboard</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,-apple-system,'Segoe UI',sans-serif;background:#f5f6f8;color:#1f2937;font-size:14px;line-height:1.5}
a{color:#2563eb;text-decoration:none}
a:hover{text-decoration:underline}
nav{background:#1f2937;padding:10px 20px;display:flex;gap:20px;align-items:center}
nav .brand{color:#fff;font-weight:700;font-size:17px;margin-right:12px}
nav a{color:#d1d5db;padding:4px 10px;border-radius:4px}
nav a.active{background:#374151;color:#fff}
nav .meta{margin-left:auto;color:#9ca3af;font-size:12px}
main{padding:20px}
.page-header{display:flex;justify-content:space-between;align-items:center;flex-wrap:wrap;gap:12px;margin-bottom:16px}
h2{font-size:20px}
h3{font-size:15px}
.loading{padding:60px;text-align:center;color:#6b7280;font-size:16px}
.banner{padding:10px 14px;border-radius:6px;margin-bottom:16px;display:flex;gap:12px;align-items:center}
.banner.err{background:#fee2e2;color:#991b1b}
.banner.warn{background:#fef3c7;color:#92400e}
button,.btn{background:#2563eb;color:#fff;border:0;border-radius:4px;padding:5px 12px;cursor:pointer;font-size:13px}
button:disabled,.btn.disabled{background:#9ca3af;cursor:default;pointer-events:none}
.panel{background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:16px;margin-bottom:16px}
.cards{display:flex;gap:12px;flex-wrap:wrap;margin-bottom:16px}
.card{background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:10px 16px;min-width:140px}
.card .val{font-size:20px;font-weight:700}
.card .lbl{font-size:11px;color:#6b7280;text-transform:uppercase;letter-spacing:.05em}
.date-range-selector{display:flex;gap:16px;align-items:center}
.date-range-selector label{font-weight:600;margin-right:6px}
table{width:100%;border-collapse:collapse;font-size:13px;background:#fff}
th{text-align:left;padding:8px;border-bottom:2px solid #e5e7eb;vertical-align:top}
th .sort{color:#1f2937;font-weight:600}
td{padding:6px 8px;border-bottom:1px solid #f0f1f3}
tr:hover td{background:#f9fafb}
.filter-input{width:100%;margin-top:4px;padding:3px 6px;border:1px solid #d1d5db;border-radius:4px;font-size:12px}
.columns{display:flex;flex-wrap:wrap;gap:6px;margin-bottom:12px}
.columns a{border:1px solid #d1d5db;border-radius:12px;padding:1px 10px;font-size:12px;color:#6b7280}
.columns a.on{background:#dbeafe;border-color:#93c5fd;color:#1e40af}
.pagination{display:flex;justify-content:space-between;align-items:center;margin-top:12px}
.pagination-controls{display:flex;gap:10px;align-items:center}
svg text{font-size:11px;fill:#6b7280}
svg .grid{stroke:#e5e7eb}
svg .axis{stroke:#9ca3af}
svg rect.bar{fill:#7cb5ec}
svg rect.bar:hover{fill:#4a90d9}
.dim{color:#6b7280}
</style>
</head>
<body>
<nav>
  <span class="brand">Event Dashboard</span>
  <a href="/graph" class="{{if eq .Active "graph"}}active{{end}}">Graph</a>
  <a href="/table" class="{{if eq .Active "table"}}active{{end}}">Table</a>
  <span class="meta">{{if .Status.Loaded}}{{comma .Status.Count}} events from {{.Status.Source}}, loaded {{ago .Status.LoadedAt}}{{end}}</span>
</nav>
<main>
{{if .Status.Error}}
<div class="banner err">
  <span>Failed to load events: {{.Status.Error}}</span>
  <form method="post" action="/reload"><button type="submit">Reload</button></form>
</div>
{{end}}
{{if .Status.Loading}}
<div class="loading">Loading events...</div>
{{else}}
{{template "content" .}}
{{end}}
</main>
</body>
</html>
{{end}}
`

const tmplGraph = `
{{define "content"}}
<div class="graph-page">
  <div class="page-header">
    <h2>Event Timeline</h2>
    <form class="date-range-selector" method="post" action="/graph/range">
      <div>
        <label for="start">Start Date:</label>
        <input type="date" id="start" name="start" value="{{.Start}}" min="{{.Min}}" max="{{.Max}}" onchange="this.form.submit()">
      </div>
      <div>
        <label for="end">End Date:</label>
        <input type="date" id="end" name="end" value="{{.End}}" min="{{.Min}}" max="{{.Max}}" onchange="this.form.submit()">
      </div>
      <noscript><button type="submit">Apply</button></noscript>
    </form>
  </div>
  {{if .FormError}}<div class="banner err">{{.FormError}}</div>{{end}}
  {{if .View.Inverted}}<div class="banner warn">The start date is after the end date, so no events are selected.</div>{{end}}
  <div class="cards">
    <div class="card"><div class="val">{{comma .View.Summary.Total}}</div><div class="lbl">Events</div></div>
    <div class="card"><div class="val">{{comma .View.Summary.Attackers}}</div><div class="lbl">Attackers</div></div>
    {{with .View.Summary.PeakHour}}<div class="card"><div class="val">{{comma .Count}}</div><div class="lbl">Peak hour {{hour .Hour}}</div></div>{{end}}
    {{range .TopSeverities}}<div class="card"><div class="val">{{comma .Count}}</div><div class="lbl">Severity {{.Severity}}</div></div>{{end}}
  </div>
  <div class="panel chart-container">
    <div class="chart-header">
      <h3>Events Over Time</h3>
      <p class="dim">Total events in selected range: {{.View.Summary.Total}}</p>
    </div>
    {{with .Chart}}
    <svg viewBox="0 0 {{.Width}} {{.Height}}" width="100%" role="img" aria-label="Hourly event counts">
      {{range .YTicks}}
      <line class="grid" x1="{{$.Chart.Left}}" x2="{{$.Chart.Right}}" y1="{{f1 .Pos}}" y2="{{f1 .Pos}}"/>
      <text x="{{f1 (sub $.Chart.Left 6)}}" y="{{f1 (add .Pos 4)}}" text-anchor="end">{{.Label}}</text>
      {{end}}
      {{range .Bars}}<rect class="bar" x="{{f1 .X}}" y="{{f1 .Y}}" width="{{f1 .W}}" height="{{f1 .H}}"><title>{{.Title}}</title></rect>
      {{end}}
      <line class="axis" x1="{{.Left}}" x2="{{.Right}}" y1="{{.Bottom}}" y2="{{.Bottom}}"/>
      {{range .XTicks}}
      <line class="axis" x1="{{f1 .Pos}}" x2="{{f1 .Pos}}" y1="{{$.Chart.Bottom}}" y2="{{f1 (add $.Chart.Bottom 5)}}"/>
      <text x="{{f1 .Pos}}" y="{{f1 (add $.Chart.Bottom 18)}}" text-anchor="middle">{{.Label}}</text>
      {{end}}
      <text x="{{f1 (half .Left .Right)}}" y="{{f1 (sub (float .Height) 6)}}" text-anchor="middle">Time</text>
      <text transform="translate(14 {{f1 (half .Top .Bottom)}}) rotate(-90)" text-anchor="middle">Event Count</text>
      {{if .Empty}}<text x="{{f1 (half .Left .Right)}}" y="{{f1 (half .Top .Bottom)}}" text-anchor="middle">No events in range</text>{{end}}
    </svg>
    {{end}}
  </div>
</div>
{{end}}
`

const tmplTable = `
{{define "content"}}
<div class="table-page">
  <div class="page-header">
    <h2>Event Table</h2>
    <a class="btn" href="{{.ExportURL}}">Export CSV</a>
  </div>
  <div class="columns">
    <span class="dim">Select Columns:</span>
    {{range .ColumnLinks}}<a class="{{if .Visible}}on{{end}}" href="{{.URL}}">{{.Label}}</a>{{end}}
  </div>
  <form method="get" action="/table">
    {{range .Hidden}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">{{end}}
    <div class="table-container">
      <table class="events-table">
        <thead><tr>
          {{range .Headers}}
          <th>
            <a class="sort" href="{{.SortURL}}">{{.Label}}{{if .Indicator}} {{.Indicator}}{{end}}</a>
            <input class="filter-input" type="text" name="{{.FilterName}}" value="{{.FilterText}}" placeholder="Filter {{.Label}}..." onchange="this.form.submit()">
          </th>
          {{end}}
        </tr></thead>
        <tbody>
          {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
          {{end}}
        </tbody>
      </table>
    </div>
    <noscript><button type="submit">Filter</button></noscript>
  </form>
  <div class="pagination">
    <div class="pagination-info">Showing {{.Page.First}} to {{.Page.Last}} of {{comma .Page.TotalCount}} events</div>
    <div class="pagination-controls">
      <a class="btn{{if not .PrevURL}} disabled{{end}}" href="{{or .PrevURL "#"}}">Previous</a>
      <span>Page {{.Page.Page}} of {{.Page.TotalPages}}</span>
      <a class="btn{{if not .NextURL}} disabled{{end}}" href="{{or .NextURL "#"}}">Next</a>
    </div>
  </div>
</div>
{{end}}
`
