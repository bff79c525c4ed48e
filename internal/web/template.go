package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/contact-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
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
	"seconds": func(n int64) time.Duration {
		return time.Duration(n) * time.Second
	},
	"stateClass": func(s string) string {
		switch s {
		case "OPEN":
			return "open"
		case "CLOSED":
			return "closed"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Config.Name}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.open { color: #c60; font-weight: bold; }
.closed { color: green; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>{{.Config.Name}}<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Contact</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .State.String}}">{{.State}}</td></tr>
<tr><th>Times Opened</th><td id="times-opened">{{.Metrics.TimesOpened}}</td></tr>
<tr><th>Open Duration</th><td id="open-duration">{{duration (seconds .Metrics.OpenDuration)}}</td></tr>
<tr><th>Closed Duration</th><td id="closed-duration">{{duration (seconds .Metrics.ClosedDuration)}}</td></tr>
<tr><th>Last Activation</th><td id="last-activation">{{duration (seconds .Metrics.LastActivation)}}</td></tr>
<tr><th>Recording Since</th><td>{{if .HasInitial}}{{.InitialAt.UTC.Format "2006-01-02T15:04:05Z"}}{{else}}never{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic Prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Opened</th><td>{{.Counts.Opened}}</td></tr>
<tr><th>Closed</th><td>{{.Counts.Closed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Serial</th><td>{{.Config.Serial}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}} ({{.Config.Listen}})</td></tr>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/history.json">History</a> | <a href="/metrics">Metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("state");

  function fmt(n) {
    var d = Math.floor(n / 86400), h = Math.floor(n / 3600) % 24, m = Math.floor(n / 60) % 60, s = n % 60;
    if (d > 0) return d + "d " + h + "h " + m + "m " + s + "s";
    if (h > 0) return h + "h " + m + "m " + s + "s";
    if (m > 0) return m + "m " + s + "s";
    return s + "s";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("pending", "reconnecting");
      setTimeout(connect, 5000);
    };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type !== "status") return;
        var c = msg.data.status.contact;
        stateEl.textContent = c.state;
        stateEl.className = c.state === "OPEN" ? "open" : c.state === "CLOSED" ? "closed" : "unknown";
        document.getElementById("times-opened").textContent = c.times_opened;
        document.getElementById("open-duration").textContent = fmt(c.open_duration);
        document.getElementById("closed-duration").textContent = fmt(c.closed_duration);
        document.getElementById("last-activation").textContent = fmt(c.last_activation);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		InitialAt time.Time
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		InitialAt: time.Unix(snap.InitialTime, 0),
	}
	indexTmpl.Execute(w, data)
}
