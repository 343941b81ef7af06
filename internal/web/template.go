package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/humidifier/internal/logic"
	"github.com/sweeney/humidifier/internal/status"
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
	"colorClass": func(c logic.Color) string {
		switch c {
		case logic.ColorRed:
			return "red"
		case logic.ColorGreen:
			return "green"
		case logic.ColorBlue:
			return "blue"
		case logic.ColorYellow:
			return "yellow"
		}
		return "unknown"
	},
	"code": func(v any) string {
		switch v := v.(type) {
		case logic.Status:
			return string(rune(v))
		case logic.Event:
			return string(rune(v))
		}
		return ""
	},
	"events": func() []logic.Event { return logic.Events },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Humidifier Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.red { color: #c00; font-weight: bold; }
.green { color: green; font-weight: bold; }
.blue { color: #03c; font-weight: bold; }
.yellow { color: #b90; font-weight: bold; }
.unknown { color: orange; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
form { display: inline; }
</style>
</head>
<body>
<h1>Humidifier Controller</h1>

<h2>State</h2>
<table>
<tr><th>Status</th><td id="state" class="{{colorClass .Output.Color}}">{{.Status}} ({{code .Status}})</td></tr>
<tr><th>Indicator</th><td class="{{colorClass .Output.Color}}">{{.Output.Color}}</td></tr>
<tr><th>Fan</th><td class="{{if .Output.FanOn}}on{{else}}off{{end}}">{{if .Output.FanOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Initialized}}yes{{else}}no{{end}}</td></tr>
{{with .LastEvent}}<tr><th>Last event</th><td>{{.Event}}: {{.From}} &rarr; {{.To}} at {{.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Reservoir</h2>
<table>
<tr><th>Sample</th><td>{{if .SampleValid}}{{.Sample}}{{else}}none{{end}}</td></tr>
<tr><th>Low</th><td class="{{if .ReservoirLow}}red{{else}}off{{end}}">{{if .ReservoirLow}}yes{{else}}no{{end}}</td></tr>
<tr><th>Threshold</th><td>{{.Config.LowThreshold}} (hysteresis {{.Config.Hysteresis}})</td></tr>
<tr><th>ADC channel</th><td>{{.Config.ADCChannel}}</td></tr>
<tr><th>ADC faults</th><td>{{.ADCFaults}}{{if .LastADCError}} ({{.LastADCError}}){{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Reset</th><td>{{.Counts.Reset}}</td></tr>
<tr><th>Start/Stop</th><td>{{.Counts.ToggleStartStop}}</td></tr>
<tr><th>Low reservoir</th><td>{{.Counts.LowReservoir}}</td></tr>
<tr><th>Run/Idle</th><td>{{.Counts.ToggleRunIdle}}</td></tr>
<tr><th>Ignored</th><td>{{.Counts.Ignored}}</td></tr>
</table>

<h2>Send Event</h2>
<p>{{range events}}<form method="post" action="/event"><input type="hidden" name="code" value="{{code .}}"><button type="submit">{{.}}</button></form> {{end}}</p>

<h2>System</h2>
<table>
<tr><th>Boot ID</th><td>{{.BootID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Toggle</th><td>{{if eq .Config.ToggleMs 0}}disabled{{else}}{{.Config.ToggleMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Hardware</th><td>{{if .Config.Simulated}}simulated{{else}}gpio{{end}}</td></tr>
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
