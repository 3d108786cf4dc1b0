// Package logic contains the pure control logic of the horn: the debounced
// switch, the tone sequencer, the low-voltage guard, the charge monitor and
// the configuration latch.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time advances only through the tick value carried by each Input.
package logic

import "time"

// GuardState is a state of the low-voltage guard state machine.
type GuardState string

const (
	StateInit            GuardState = "INIT"
	StateKill            GuardState = "KILL"
	StateCheckBell       GuardState = "CHECK_BELL"
	StateCheckHornIdle   GuardState = "CHECK_HORN_IDLE"
	StateCheckHornActive GuardState = "CHECK_HORN_ACTIVE"
	StateEndBeep         GuardState = "END_BEEP"
	StateDead            GuardState = "DEAD"
)

// Mode is the persisted release behaviour of the horn.
type Mode uint8

const (
	// ModeMiniBell rings the bell pattern when the switch is released.
	ModeMiniBell Mode = 0
	// ModeMini extends the honk by a few milliseconds instead of ringing.
	ModeMini Mode = 1

	DefaultMode = ModeMiniBell
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeMiniBell || m == ModeMini
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeMiniBell {
		return ModeMini
	}
	return ModeMiniBell
}

func (m Mode) String() string {
	switch m {
	case ModeMiniBell:
		return "MINIBELL"
	case ModeMini:
		return "MINI"
	}
	return "UNKNOWN"
}

// Indicator identifies a status LED.
type Indicator int

const (
	IndicatorRed Indicator = iota
	IndicatorGreen
)

func (i Indicator) String() string {
	if i == IndicatorRed {
		return "red"
	}
	return "green"
}

// Threshold selects the comparator reference level.
type Threshold int

const (
	// ThresholdCritical trips when the battery cannot sustain the horn at all.
	ThresholdCritical Threshold = iota
	// ThresholdLowBattery trips earlier and is used to detect a tired battery while honking.
	ThresholdLowBattery
)

func (t Threshold) String() string {
	if t == ThresholdCritical {
		return "CRITICAL"
	}
	return "LOW_BATTERY"
}

// ToneOutput is the PWM peripheral used by the sequencer.
// Programming is double-buffered by the hardware: a new period/compare pair
// takes effect at the next waveform cycle boundary.
type ToneOutput interface {
	ProgramTone(period, compare uint32)
	StopTone()
}

// Outputs are the actuators driven by the controller.
// Every call is idempotent; hardware adapters log their own write failures.
type Outputs interface {
	ToneOutput
	SetHorn(on bool)
	SetIndicator(id Indicator, on bool)
	SetThreshold(level Threshold)
}

// Input represents a single sample of the (already polarity-normalised) inputs.
type Input struct {
	Tick              uint16
	Switch            bool // true = pressed
	ComparatorTripped bool // true = battery below the selected threshold
	PowerGood         bool // true = external charging power present
	ChargerFault      bool // true = charger status line asserted
	Time              time.Time
}

// EventType identifies a notable controller event.
type EventType string

const (
	EventState           EventType = "STATE"
	EventHonk            EventType = "HONK"
	EventLowVoltage      EventType = "LOW_VOLTAGE"
	EventDead            EventType = "DEAD"
	EventModeChanged     EventType = "MODE_CHANGED"
	EventConfigLocked    EventType = "CONFIG_LOCKED"
	EventChargingStarted EventType = "CHARGING_STARTED"
	EventChargingStopped EventType = "CHARGING_STOPPED"
)

// Event is emitted by Controller.Step and published by the daemon.
type Event struct {
	Timestamp  time.Time
	Tick       uint16
	Type       EventType
	From       GuardState // STATE only
	To         GuardState // STATE only
	Mode       Mode
	LowVoltage bool
}

// EventCounts tracks the number of notable events since startup.
type EventCounts struct {
	Honks        int
	Transitions  int
	ModeChanges  int
	ChargeCycles int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// DeviceState is a point-in-time view of the controller.
type DeviceState struct {
	Guard         GuardState
	SwitchPressed bool
	HornOn        bool
	Playing       bool
	Charging      bool
	LowVoltage    bool
	DetectCount   uint16
	Mode          Mode
	Latch         string // configuration latch state, e.g. "COUNTING"
	ConfigPresses uint8
}

// tickEdge turns the free-running tick into a "time has advanced" signal.
// Only equality is used, so wraparound needs no special handling.
type tickEdge struct {
	last uint16
}

func (e *tickEdge) advanced(now uint16) bool {
	if now == e.last {
		return false
	}
	e.last = now
	return true
}

func decSat(v uint16) uint16 {
	if v > 0 {
		return v - 1
	}
	return 0
}

func incSat(v uint16) uint16 {
	if v < ^uint16(0) {
		return v + 1
	}
	return v
}
