package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tank-controller/internal/logic"
	"github.com/sweeney/tank-controller/internal/status"
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
	"onOff":      logic.OnOff,
	"openClosed": logic.OpenClosed,
	"yesNo": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Tank Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on, .open { color: green; font-weight: bold; }
.off, .closed { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
button { font-family: monospace; margin-right: 0.5em; }
</style>
</head>
<body>
<h1>Tank Controller<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Display</th><td id="display">{{.State.Display}}</td></tr>
<tr><th>Pump 1</th><td id="pump-1" class="{{if .State.Pump1}}on{{else}}off{{end}}">{{onOff .State.Pump1}}</td></tr>
<tr><th>Pump 2</th><td id="pump-2" class="{{if .State.Pump2}}on{{else}}off{{end}}">{{onOff .State.Pump2}}</td></tr>
<tr><th>Valve</th><td id="valve" class="{{if .State.Valve}}open{{else}}closed{{end}}">{{openClosed .State.Valve}}</td></tr>
<tr><th>Discharge at</th><td id="discharge-at">{{if .State.DischargePending}}{{.State.DischargeAt.UTC.Format "2006-01-02T15:04:05Z"}}{{else}}-{{end}}</td></tr>
</table>

<h2>Inputs</h2>
<table>
<tr><th>Low level</th><td id="low-level">{{yesNo .State.LowLevel}}</td></tr>
<tr><th>High level</th><td id="high-level">{{yesNo .State.HighLevel}}</td></tr>
<tr><th>Stop requested</th><td id="stop-requested">{{yesNo .State.StopRequested}}</td></tr>
<tr><th>Ready</th><td>{{yesNo .Ready}}</td></tr>
</table>

<p>
<button data-command="LOW_LEVEL">Low level</button>
<button data-command="HIGH_LEVEL">High level</button>
<button data-command="STOP">Stop</button>
</p>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Fills</th><td>{{.Counts.Fills}}</td></tr>
<tr><th>Tank full</th><td>{{.Counts.Fulls}}</td></tr>
<tr><th>Discharges</th><td>{{.Counts.Discharges}}</td></tr>
<tr><th>Stops</th><td>{{.Counts.Stops}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO driver</th><td>{{.Config.Driver}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/status.txt">text</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setText(id, text, cls) {
    var el = document.getElementById(id);
    el.textContent = text;
    if (cls !== undefined) { el.className = cls; }
  }

  function yesNo(b) { return b ? "yes" : "no"; }

  function apply(s) {
    setText("display", s.display);
    setText("pump-1", s.pump_1, s.pump_1.toLowerCase());
    setText("pump-2", s.pump_2, s.pump_2.toLowerCase());
    setText("valve", s.valve, s.valve.toLowerCase());
    setText("discharge-at", s.discharge_at || "-");
    setText("low-level", yesNo(s.low_level_sensor));
    setText("high-level", yesNo(s.high_level_sensor));
    setText("stop-requested", yesNo(s.stop_requested));
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(e) {
      try { apply(JSON.parse(e.data).status); } catch (err) {}
    };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(function() { setDot("pending", "reconnecting"); connect(); }, 5000);
    };
  }

  function send(command, retried) {
    var headers = {};
    var token = localStorage.getItem("tankToken");
    if (token) headers["Authorization"] = "Bearer " + token;
    fetch("/command", { method: "POST", headers: headers, body: command }).then(function(r) {
      if (r.status !== 401 || retried) return;
      var t = prompt("Command token");
      if (!t) return;
      localStorage.setItem("tankToken", t);
      send(command, true);
    });
  }

  document.querySelectorAll("button[data-command]").forEach(function(b) {
    b.addEventListener("click", function() { send(b.dataset.command, false); });
  });

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
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
