package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/darshan-golchha/code-complexity/internal/dashboard"
)

var funcs = template.FuncMap{
	"mark": func() string { return dashboard.ImportantMark },
}

// The review block is sanitized markup; everything else is escaped by
// html/template.
var page = template.Must(template.New("index").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Code Risk Dashboard</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; display: flex; background: #f5f6f8; color: #1f2430; }
aside { width: 220px; padding: 24px; background: #1f2430; color: #e8eaf0; min-height: 100vh; }
aside a { color: #e8eaf0; display: block; margin: 8px 0; }
main { flex: 1; padding: 24px 32px; }
.status { font-size: 0.9em; color: #5b6275; }
.stale { color: #b7791f; }
.error { color: #c53030; font-weight: bold; }
.metrics-grid, .severities-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(180px, 1fr)); gap: 12px; }
.card { background: #fff; border-radius: 8px; padding: 12px; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
.important-metric { border-left: 4px solid #dd6b20; }
.important-indicator { color: #dd6b20; margin-left: 4px; }
.code-diff { background: #1f2430; color: #e8eaf0; padding: 12px; overflow-x: auto; }
.gauge { width: 120px; }
.circle-bg { fill: none; stroke: #e2e4ea; stroke-width: 3.8; }
.circle { fill: none; stroke: #dd6b20; stroke-width: 2.8; stroke-linecap: round; }
.percentage { font-size: 0.5em; text-anchor: middle; }
button[disabled] { opacity: .6; }
</style>
</head>
<body>
<aside>
<h2>Code Risk</h2>
<a href="#metrics">Key Metrics</a>
<a href="#code-review">Code Review</a>
{{if .HasDiff}}<a href="#code-diff">Code Diff</a>{{end}}
<a href="#severities">Severities</a>
<form method="post" action="/api/refresh" id="refresh">
<button type="submit"{{if .Loading}} disabled{{end}}>{{.RefreshLabel}}</button>
</form>
</aside>
<main>
<header>
<div class="gauge" data-severity="{{.MasterSeverityRaw}}">
<svg viewBox="0 0 36 36">
<path class="circle-bg" d="M18 2.0845 a 15.9155 15.9155 0 0 1 0 31.831 a 15.9155 15.9155 0 0 1 0 -31.831"/>
<path class="circle" stroke-dasharray="{{printf "%.2f" .GaugePercent}}, 100" d="M18 2.0845 a 15.9155 15.9155 0 0 1 0 31.831 a 15.9155 15.9155 0 0 1 0 -31.831"/>
<text x="18" y="20.35" class="percentage">{{.MasterSeverity}}</text>
</svg>
<span>Master Severity</span>
</div>
<p class="status">mode: {{.Mode}}{{if .Live}} · live: <span{{if .Stale}} class="stale"{{end}}>{{.Connection}}{{if .Stale}} (stale){{end}}</span>{{end}}{{if .Source}} · source: {{.Source}}{{end}}{{if .Loading}} · refreshing{{end}}</p>
{{if .Error}}<p class="error">Refresh failed: {{.Error}}</p>{{end}}
{{if .LiveError}}<p class="stale">{{.LiveError}}</p>{{end}}
</header>

<section id="metrics">
<h2>Key Metrics</h2>
<div class="metrics-grid">
{{range .Cards}}<div class="card{{if .Important}} important-metric{{end}}">
<h3>{{.Name}}{{if .Important}}<span class="important-indicator">{{mark}}</span>{{end}}</h3>
<p>{{.Display}}</p>
</div>
{{else}}<div class="card"><h3>{{.NoMetricsText}}</h3></div>
{{end}}
</div>
</section>

<section id="code-review">
<h2>Code Review</h2>
<div class="code-review">{{.Review.HTML}}</div>
</section>

{{if .HasDiff}}<section id="code-diff">
<h2>Code Diff</h2>
<pre class="code-diff">{{.Diff}}</pre>
</section>{{end}}

<section id="severities">
<h2>Severities</h2>
<div class="severities-grid">
{{range .Severities}}<div class="card"><h3>{{.Title}}</h3><p>{{.Value}}</p></div>
{{end}}
</div>
</section>
</main>
<script>
document.getElementById("refresh").addEventListener("submit", function (e) {
  e.preventDefault();
  fetch("/api/refresh", {method: "POST"}).then(function () { location.reload(); });
});
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/api/stream");
  var first = true;
  ws.onmessage = function () {
    if (first) { first = false; return; }
    location.reload();
  };
})();
</script>
</body>
</html>
`))

type pageData struct {
	dashboard.View
	NoMetricsText string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, pageData{View: s.session.View(), NoMetricsText: dashboard.NoMetricsText}); err != nil {
		s.logger.Errorf("failed to render page: %v", err)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
