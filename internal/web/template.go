package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/freezerx/freezerd/internal/status"
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
	"celsius": func(v float64) string {
		return fmt.Sprintf("%.1f °C", v)
	},
	"stateClass": func(s string) string {
		switch s {
		case "COOLING":
			return "on"
		case "WITHIN_TARGET":
			return "off"
		case "OVERHEAT", "FAULT":
			return "alarm"
		case "DEAD_TIME", "MAX_RUNTIME", "STARTUP_DELAY":
			return "hold"
		}
		return "hold"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Freezer Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alarm { color: red; font-weight: bold; }
.hold { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Freezer Controller</h1>

<h2>State</h2>
<table>
<tr><th>Status</th><td class="{{stateClass .Output.Status.String}}">{{.Output.Status.String}}</td></tr>
<tr><th>Compressor</th><td class="{{if .Output.ActualOn}}on{{else}}off{{end}}">{{if .Output.ActualOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Cabinet</th><td>{{celsius .Output.Primary}}</td></tr>
<tr><th>Compressor head</th><td>{{celsius .Output.Secondary}}</td></tr>
</table>

<h2>Control</h2>
<table>
<tr><th>Target</th><td>{{printf "%.1f" .Control.TargetTemperature}} °C</td></tr>
<tr><th>Hysteresis</th><td>{{.Control.HysteresisSeconds}}s</td></tr>
<tr><th>Dead time</th><td>{{.Control.DeadTimeMinutes}}m</td></tr>
<tr><th>Max runtime</th><td>{{.Control.MaxRunTimeMinutes}}m</td></tr>
<tr><th>Overheat limit</th><td>{{printf "%.1f" .Control.OverheatTemperature}} °C</td></tr>
<tr><th>Startup delay</th><td>{{.Control.StartupDelayMinutes}}m</td></tr>
</table>

<h2>Datalog</h2>
<table>
<tr><th>Card</th><td class="{{if .LoggingEnabled}}connected{{else}}disconnected{{end}}">{{if .LoggingEnabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Records written</th><td>{{.Log.Appended}}</td></tr>
<tr><th>Write failures</th><td>{{.Log.Failed}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
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
