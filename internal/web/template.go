package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/autoclave-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"f1": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"clock": func(t time.Time) string {
		return t.UTC().Format("15:04:05")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Autoclave Monitor</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.bar { background: #eee; height: 12px; width: 100%; }
.bar div { background: green; height: 12px; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
button { font-family: monospace; margin-right: 4px; }
#chat-log p { margin: 4px 0; }
</style>
</head>
<body>
<h1>Autoclave Monitor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Chamber</h2>
<table>
<tr><th>State</th><td id="state">{{.StatusText}}</td></tr>
<tr><th>Source</th><td id="source">{{.Source}}</td></tr>
<tr><th>Temperature</th><td><span id="temperature">{{f1 .Current.Temperature}}</span> &deg;C</td></tr>
<tr><th>Pressure</th><td><span id="pressure">{{f1 .Current.Pressure}}</span> kPa</td></tr>
<tr><th>Pathogen elimination</th><td><span id="kill">{{f1 .KillPercentage}}</span>%
<div class="bar"><div id="kill-bar" style="width: {{f1 .KillPercentage}}%"></div></div></td></tr>
<tr><th>Analysis</th><td id="analysis">{{.Analysis}}</td></tr>
<tr><th>Insight</th><td id="insight">{{.Insight}}</td></tr>
</table>

<p>
<button onclick="control('start')">Start simulation</button>
<button onclick="control('stop')">Stop</button>
<button onclick="control('toggle')">Toggle source</button>
<button onclick="control('abort')">Abort cycle</button>
</p>

<h2>Cycles</h2>
<table id="cycles">
<tr><th>End</th><th>Status</th><th>Max &deg;C</th><th>Min kPa</th><th>Kill %</th></tr>
{{range .Cycles}}<tr><td>{{clock .EndTime}}</td><td>{{.Status}}</td><td>{{f1 .MaxTemp}}</td><td>{{f1 .MinPressure}}</td><td>{{f1 .KillPercentage}}</td></tr>
{{else}}<tr><td colspan="5">No cycles recorded yet.</td></tr>
{{end}}</table>

<h2>Assistant</h2>
<div id="chat-log"></div>
<form id="chat-form"><input id="chat-input" size="50" placeholder="Ask about the cycle"> <button type="submit">Send</button></form>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ticks</th><td id="ticks">{{.Ticks}}</td></tr>
<tr><th>Fetch errors</th><td id="fetch-errors">{{.FetchErrors}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Target</th><td>{{.Config.TargetKillPoints}} kill points</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var history = [];
  function text(id, v) { document.getElementById(id).textContent = v; }
  function setDot(cls, title) { dot.className = "live-dot " + cls; dot.title = title; }

  window.control = function(cmd) {
    fetch("/api/control", { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify({ command: cmd }) });
  };

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        text("state", s.state);
        text("source", s.source);
        text("temperature", s.temperature.toFixed(1));
        text("pressure", s.pressure.toFixed(1));
        text("kill", s.kill_percentage.toFixed(1));
        document.getElementById("kill-bar").style.width = s.kill_percentage + "%";
        text("analysis", s.analysis);
        text("insight", s.insight);
        text("ticks", s.ticks);
        text("fetch-errors", s.fetch_errors);
      } catch (e) {}
    };
  }
  connect();

  document.getElementById("chat-form").onsubmit = function(ev) {
    ev.preventDefault();
    var input = document.getElementById("chat-input");
    var msg = input.value;
    if (!msg) { return; }
    input.value = "";
    var log = document.getElementById("chat-log");
    var p = document.createElement("p");
    p.textContent = "> " + msg;
    log.appendChild(p);
    fetch("/api/chat", { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify({ message: msg, history: history }) })
      .then(function(r) { return r.json(); })
      .then(function(d) {
        var reply = d.content || ("AI Error: " + (d.error || "Failed to connect to Gemini"));
        history.push({ role: "user", content: msg }, { role: "assistant", content: reply });
        var a = document.createElement("p");
        a.textContent = reply;
        log.appendChild(a);
      })
      .catch(function() {
        var a = document.createElement("p");
        a.textContent = "I'm having trouble connecting to the AI brain right now. Please check your internet or API configuration.";
        log.appendChild(a);
      });
  };
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
