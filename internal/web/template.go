package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/horn-controller/internal/logic"
	"github.com/sweeney/horn-controller/internal/status"
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
	"stateClass": func(s logic.GuardState) string {
		switch s {
		case logic.StateDead:
			return "dead"
		case logic.StateEndBeep:
			return "warn"
		case "":
			return "unknown"
		}
		return "ok"
	},
	"stateOrUnknown": func(s logic.GuardState) string {
		if s == "" {
			return "UNKNOWN"
		}
		return string(s)
	},
	"switchString": status.SwitchString,
	"latchOrIdle": func(s string) string {
		if s == "" {
			return "IDLE"
		}
		return s
	},
	"stamp": func(t time.Time) string {
		return t.UTC().Format("15:04:05.000")
	},
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Horn Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok, .on { color: green; font-weight: bold; }
.off { color: #888; }
.warn, .unknown { color: orange; }
.dead { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Horn Controller</h1>

<h2>State</h2>
<table>
<tr><th>Guard</th><td id="guard-state" class="{{stateClass .Device.Guard}}">{{stateOrUnknown .Device.Guard}}</td></tr>
<tr><th>Switch</th><td>{{switchString .Device.SwitchPressed}}</td></tr>
<tr><th>Horn</th><td class="{{onOff .Device.HornOn}}">{{onOff .Device.HornOn}}</td></tr>
<tr><th>Tone playing</th><td>{{if .Device.Playing}}yes{{else}}no{{end}}</td></tr>
<tr><th>Charging</th><td>{{if .Device.Charging}}yes{{else}}no{{end}}</td></tr>
<tr><th>Low voltage</th><td class="{{if .Device.LowVoltage}}warn{{else}}ok{{end}}">{{if .Device.LowVoltage}}yes{{else}}no{{end}} ({{.Device.DetectCount}})</td></tr>
<tr><th>Mode</th><td>{{.Device.Mode}}</td></tr>
<tr><th>Config latch</th><td id="latch">{{latchOrIdle .Device.Latch}}{{if .Device.ConfigPresses}} ({{.Device.ConfigPresses}} presses){{end}}</td></tr>
<tr><th>In state since</th><td>{{stamp .StateSince}}</td></tr>
<tr><th>Last honk</th><td>{{if .LastHonk.IsZero}}never{{else}}{{stamp .LastHonk}}{{end}}</td></tr>
</table>

<h2>Recent Events</h2>
{{if .Recent}}<table id="recent">
<tr><th>Time</th><th>Tick</th><th>Event</th></tr>
{{range .Recent}}<tr><td>{{stamp .Timestamp}}</td><td>{{.Tick}}</td><td>{{.Type}}{{if .To}} {{.From}} &rarr; {{.To}}{{end}}</td></tr>
{{end}}</table>{{else}}<p>none yet</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Honks</th><td>{{.Counts.Honks}}</td></tr>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>Mode changes</th><td>{{.Counts.ModeChanges}}</td></tr>
<tr><th>Charge cycles</th><td>{{.Counts.ChargeCycles}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>PWM</th><td>{{.Config.PWM}}</td></tr>
<tr><th>State file</th><td>{{.Config.StateFile}}</td></tr>
<tr><th>Config file</th><td>{{if .Config.ConfigFile}}{{.Config.ConfigFile}}{{else}}built-in defaults{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/state.json">state</a> | <a href="/patterns.json">tone table</a></p>
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
