// Package status provides a thread-safe status tracker for the horn-controller daemon.
// It is read by the HTTP handlers and used to build MQTT lifecycle payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/horn-controller/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	StateFile   string
	ConfigFile  string // empty = built-in defaults
	PWM         string // e.g. "pwmchip0/pwm0"
}

// RecentEvents is how many controller events the tracker remembers.
const RecentEvents = 16

// Snapshot is a point-in-time view of daemon state.
// Recent is a copy, so the snapshot stays valid after the lock is released.
type Snapshot struct {
	Device        logic.DeviceState
	Counts        logic.EventCounts
	StateSince    time.Time     // time of the last guard transition
	LastHonk      time.Time     // zero until the horn has been driven
	Recent        []logic.Event // oldest first
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Device:     logic.DeviceState{Guard: logic.StateInit},
			StateSince: startTime,
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// Update sets the controller state and event counts.
// Called from runLoop on every iteration.
func (t *Tracker) Update(device logic.DeviceState, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Device = device
	t.snap.Counts = counts
	t.mu.Unlock()
}

// Record remembers controller events for the status views. STATE and HONK
// events also move StateSince and LastHonk.
func (t *Tracker) Record(events ...logic.Event) {
	if len(events) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range events {
		switch e.Type {
		case logic.EventState:
			t.snap.StateSince = e.Timestamp
		case logic.EventHonk:
			t.snap.LastHonk = e.Timestamp
		}
	}

	recent := append(t.snap.Recent, events...)
	if n := len(recent) - RecentEvents; n > 0 {
		recent = append([]logic.Event(nil), recent[n:]...)
	}
	t.snap.Recent = recent
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = append([]logic.Event(nil), t.snap.Recent...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
