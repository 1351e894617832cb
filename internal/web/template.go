package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sonar-array/internal/sonar"
	"github.com/sweeney/sonar-array/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"statusClass": func(s sonar.Status) string {
		switch s {
		case sonar.StatusOK:
			return "ok"
		case sonar.StatusNoReading:
			return "none"
		}
		return "pending"
	},
	"distance": func(d sonar.Distance) string {
		if !d.Valid() {
			return "–"
		}
		return d.String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sonar Array{{if .Config.Name}} · {{.Config.Name}}{{end}}</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.ok { color: green; font-weight: bold; }
.none { color: #888; }
.pending { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Sonar Array{{if .Config.Name}} · {{.Config.Name}}{{end}}</h1>

<h2>Sensors</h2>
<table>
<tr><th>#</th><th>Trigger</th><th>Echo</th><th>Distance</th><th>Status</th><th>Readings</th><th>Timeouts</th><th>Garbage</th></tr>
{{range .Sensors}}<tr>
<td>{{.Index}}</td><td>{{.TriggerPin}}</td><td>{{.EchoPin}}</td>
<td class="{{statusClass .Status}}">{{distance .Distance}}</td>
<td class="{{statusClass .Status}}">{{if .Status}}{{.Status}}{{else}}PENDING{{end}}</td>
<td>{{.Counts.Readings}}</td><td>{{.Counts.Timeouts}}</td><td>{{.Counts.Garbage}}</td>
</tr>
{{end}}</table>

<h2>Machine</h2>
<table>
<tr><th>State</th><td>{{stateOrUnknown .Machine.State}}</td></tr>
<tr><th>Active sensor</th><td>{{.Machine.ActiveSensor}}</td></tr>
<tr><th>Ticks</th><td>{{.Machine.Ticks}}</td></tr>
<tr><th>Revolutions</th><td>{{.Machine.Revolutions}}</td></tr>
<tr><th>Dropped</th><td>{{.Machine.Dropped}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickUs}}µs</td></tr>
<tr><th>Max loops</th><td>{{.Config.MaxLoops}}</td></tr>
<tr><th>Garbage filter</th><td>{{.Config.GarbageTicks}} ticks</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/state.dot">State graph</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Ready() methods but the template wants fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	indexTmpl.Execute(w, data)
}
