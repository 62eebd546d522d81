package web

import "net/http"

// ServeDashboard serves the embedded monitoring dashboard.
func ServeDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CloseGuard</title>
<style>
  body { font-family: -apple-system, sans-serif; margin: 2rem; background: #0f1419; color: #e6e6e6; }
  h1 { font-size: 1.4rem; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #2a3036; }
  .score-good { color: #6fcf6f; }
  .score-warn { color: #e6c84a; }
  .score-bad { color: #e66a6a; }
  #status { font-size: 0.85rem; color: #8a939e; }
</style>
</head>
<body>
<h1>CloseGuard &mdash; document analyses</h1>
<div id="status">connecting&hellip;</div>
<table>
  <thead>
    <tr><th>Report</th><th>File</th><th>Score</th><th>Flags</th><th>High</th><th>Medium</th><th>Low</th></tr>
  </thead>
  <tbody id="analyses"></tbody>
</table>
<script>
  const status = document.getElementById('status');
  const tbody = document.getElementById('analyses');
  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
  ws.onopen = () => { status.textContent = 'live'; };
  ws.onclose = () => { status.textContent = 'disconnected'; };
  ws.onmessage = (msg) => {
    const event = JSON.parse(msg.data);
    if (event.type !== 'analysis') return;
    const a = event.data;
    const cls = a.forensic_score >= 80 ? 'score-good' : (a.forensic_score >= 50 ? 'score-warn' : 'score-bad');
    const row = document.createElement('tr');
    row.innerHTML = '<td><a href="/report/' + a.report_id + '">' + a.report_id.slice(0, 8) + '</a></td>' +
      '<td>' + a.filename + '</td>' +
      '<td class="' + cls + '">' + a.forensic_score + '</td>' +
      '<td>' + a.total_flags + '</td>' +
      '<td>' + a.high_severity + '</td>' +
      '<td>' + a.medium_severity + '</td>' +
      '<td>' + a.low_severity + '</td>';
    tbody.prepend(row);
  };
</script>
</body>
</html>
`
