package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/ggtrigg/touch-switch/internal/status"
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
	"percent": func(b uint8) string {
		return fmt.Sprintf("%.0f%%", float64(b)/255*100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Touch Switch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.bar { display: inline-block; height: 10px; background: #e8c04a; vertical-align: middle; }
.connected { color: green; }
.disconnected { color: red; }
.pending { color: orange; }
</style>
</head>
<body>
<h1>Touch Switch</h1>

<h2>Light</h2>
<table>
<tr><th>State</th><td id="light-state">{{.Light}}</td></tr>
<tr><th>Brightness</th><td>{{.Brightness}} ({{percent .Brightness}}) <span class="bar" style="width: {{.Brightness}}px"></span></td></tr>
</table>

<h2>Touch</h2>
<table>
<tr><th>Gesture</th><td id="gesture">{{.Gesture}}</td></tr>
<tr><th>Held</th><td>{{if .Held}}yes{{else}}no{{end}}</td></tr>
<tr><th>Ready</th><td class="{{if .Ready}}connected{{else}}pending{{end}}">{{if .Ready}}yes{{else}}calibrating{{end}}</td></tr>
<tr><th>Window</th><td>{{if ge .WindowHi .WindowLo}}{{.WindowLo}} – {{.WindowHi}}{{else}}empty{{end}}</td></tr>
<tr><th>Level</th><td>{{if .HasLevel}}{{printf "%.3f" .Level}}{{else}}n/a{{end}}</td></tr>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Samples dropped</th><td>{{.Dropped}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Short</th><td>{{.Counts.Short}}</td></tr>
<tr><th>Long</th><td>{{.Counts.Long}}</td></tr>
<tr><th>On / Off</th><td>{{.Counts.On}} / {{.Counts.Off}}</td></tr>
<tr><th>Rising / Falling</th><td>{{.Counts.Rising}} / {{.Counts.Falling}}</td></tr>
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
<tr><th>Sampler</th><td>{{.Config.Sampler}}</td></tr>
<tr><th>Fixture</th><td>{{.Config.Fixture}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollUs}}µs</td></tr>
<tr><th>Debounce</th><td>{{.Config.Tuning.DebounceTicks}} ticks</td></tr>
<tr><th>Long press</th><td>{{.Config.Tuning.LongPressTicks}} ticks</td></tr>
<tr><th>Ramp</th><td>{{.Config.Tuning.RampDivisor}} ticks/step</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
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
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
