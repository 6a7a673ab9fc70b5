package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/flashlight/internal/status"
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
	"tierClass": func(s string) string {
		switch s {
		case "LOW", "HIGH":
			return "on"
		case "OFF":
			return "off"
		}
		return "unknown"
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Flashlight</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
form { display: inline; }
</style>
</head>
<body>
<h1>Flashlight</h1>

<h2>Torch</h2>
<table>
<tr><th>Device</th><td>{{.Name}}</td></tr>
<tr><th>Registered</th><td class="{{if .Registered}}connected{{else}}disconnected{{end}}">{{if .Registered}}yes{{else}}no{{end}}</td></tr>
<tr><th>Brightness</th><td>{{.Brightness}}</td></tr>
<tr><th>Tier</th><td class="{{tierClass (printf "%s" .Tier)}}">{{stateOrUnknown (printf "%s" .Tier)}}</td></tr>
<tr><th>Lines (low/high)</th><td>{{.Pattern.Low}} / {{.Pattern.High}}</td></tr>
<tr><th>Changes</th><td>{{.SetCount}}</td></tr>
{{if not .LastChange.IsZero}}<tr><th>Last change</th><td>{{.LastChange.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
{{if .LoadError}}<tr><th>Load error</th><td class="error">{{.LoadError}}</td></tr>{{end}}
</table>
{{if .Registered}}
<p>
<form method="post" action="/brightness"><input type="hidden" name="value" value="0"><button>Off</button></form>
<form method="post" action="/brightness"><input type="hidden" name="value" value="25"><button>Low</button></form>
<form method="post" action="/brightness"><input type="hidden" name="value" value="255"><button>High</button></form>
</p>
{{end}}

<h2>Hardware</h2>
<table>
<tr><th>Compatible</th><td>{{.Config.Compatible}}</td></tr>
{{if .Hardware}}<tr><th>Node</th><td>{{.Hardware.Node}}</td></tr>
<tr><th>Chip</th><td>{{.Hardware.Chip}}</td></tr>
<tr><th>Low line</th><td>{{.Hardware.Low}}</td></tr>
<tr><th>High line</th><td>{{.Hardware.High}}</td></tr>{{else}}<tr><th>Node</th><td class="unknown">not bound</td></tr>{{end}}
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
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
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
