package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Horn          HornJSON     `json:"horn"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// HornJSON is the JSON representation of the controller state.
type HornJSON struct {
	State       string `json:"state"`
	Switch      string `json:"switch"`
	HornOn      bool   `json:"horn_on"`
	Playing     bool   `json:"playing"`
	Charging    bool   `json:"charging"`
	LowVoltage  bool   `json:"low_voltage"`
	DetectCount uint16 `json:"detect_count"`
	Mode        string `json:"mode"`
	Latch       string `json:"latch"`
	Presses     uint8  `json:"config_presses"`
	StateSince  string `json:"state_since"`
	LastHonk    string `json:"last_honk,omitempty"`
}

// StateJSON is the controller view: current state plus the recent events.
type StateJSON struct {
	Horn   HornJSON    `json:"horn"`
	Recent []EventJSON `json:"recent_events"`
}

// EventJSON is one remembered controller event.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Tick      uint16 `json:"tick"`
	Event     string `json:"event"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Honks        int `json:"honks"`
	Transitions  int `json:"transitions"`
	ModeChanges  int `json:"mode_changes"`
	ChargeCycles int `json:"charge_cycles"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	StateFile   string `json:"state_file"`
	ConfigFile  string `json:"config_file,omitempty"`
	PWM         string `json:"pwm"`
}

// SwitchString renders the debounced switch level.
func SwitchString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

func buildHorn(snap Snapshot) HornJSON {
	state := string(snap.Device.Guard)
	if state == "" {
		state = "UNKNOWN"
	}
	latch := snap.Device.Latch
	if latch == "" {
		latch = "IDLE"
	}

	h := HornJSON{
		State:       state,
		Switch:      SwitchString(snap.Device.SwitchPressed),
		HornOn:      snap.Device.HornOn,
		Playing:     snap.Device.Playing,
		Charging:    snap.Device.Charging,
		LowVoltage:  snap.Device.LowVoltage,
		DetectCount: snap.Device.DetectCount,
		Mode:        snap.Device.Mode.String(),
		Latch:       latch,
		Presses:     snap.Device.ConfigPresses,
		StateSince:  snap.StateSince.UTC().Format(time.RFC3339Nano),
	}
	if !snap.LastHonk.IsZero() {
		h.LastHonk = snap.LastHonk.UTC().Format(time.RFC3339Nano)
	}
	return h
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Horn:          buildHorn(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Honks:        snap.Counts.Honks,
			Transitions:  snap.Counts.Transitions,
			ModeChanges:  snap.Counts.ModeChanges,
			ChargeCycles: snap.Counts.ChargeCycles,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			StateFile:   snap.Config.StateFile,
			ConfigFile:  snap.Config.ConfigFile,
			PWM:         snap.Config.PWM,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatState returns the controller view served at /state.json.
func FormatState(snap Snapshot) []byte {
	out := StateJSON{
		Horn:   buildHorn(snap),
		Recent: make([]EventJSON, 0, len(snap.Recent)),
	}
	for _, e := range snap.Recent {
		out.Recent = append(out.Recent, EventJSON{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Tick:      e.Tick,
			Event:     string(e.Type),
			From:      string(e.From),
			To:        string(e.To),
		})
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
