package logic

import "time"

// Config configures a Controller.
type Config struct {
	Timing   Timing
	Timebase ToneTimebase
	Mode     Mode // mode read from persistent storage at boot
}

// Controller owns every component and runs them in the fixed loop order:
// switch first, then either the charging logic or the low-voltage guard.
type Controller struct {
	out Outputs

	sw     *Switch
	seq    *Sequencer
	guard  *Guard
	charge *ChargeMonitor
	latch  *Latch

	charging      bool
	startTime     time.Time
	lastHeartbeat time.Time
	eventCounts   EventCounts
}

// NewController creates a controller in its power-on state.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(cfg Config, out Outputs, startTime time.Time) *Controller {
	sw := NewSwitch(cfg.Timing)
	seq := NewSequencer(cfg.Timebase, out)
	return &Controller{
		out:           out,
		sw:            sw,
		seq:           seq,
		guard:         NewGuard(cfg.Timing, cfg.Mode, sw, seq, out),
		charge:        NewChargeMonitor(out),
		latch:         NewLatch(cfg.Timing, cfg.Mode, out),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Step runs one iteration of the control loop and returns the events it produced.
func (c *Controller) Step(in Input) []Event {
	c.sw.Update(in.Tick, in.Switch)

	var events []Event
	if in.PowerGood {
		if !c.charging {
			c.charging = true
			c.seq.Stop()
			c.guard.ForceHornOff()
			events = append(events, Event{Type: EventChargingStarted})
		}
		events = append(events, c.latch.Update(in.Tick, c.sw.Status())...)
		c.guard.SetMode(c.latch.Mode())
		// The latch owns both LEDs while it shows the mode change.
		c.charge.Update(in.ChargerFault, !c.latch.Feedback())
	} else {
		if c.charging {
			c.charging = false
			c.latch.Reset()
			c.out.SetIndicator(IndicatorRed, c.guard.LowVoltage() || c.guard.State() == StateDead)
			c.out.SetIndicator(IndicatorGreen, false)
			events = append(events, Event{Type: EventChargingStopped})
		}
		events = append(events, c.guard.Update(in.Tick, in.ComparatorTripped)...)
	}

	for i := range events {
		events[i].Timestamp = in.Time
		events[i].Tick = in.Tick
		events[i].LowVoltage = c.guard.LowVoltage()
		events[i].Mode = c.latch.Mode()
		c.count(events[i])
	}
	return events
}

func (c *Controller) count(e Event) {
	switch e.Type {
	case EventState:
		c.eventCounts.Transitions++
	case EventHonk:
		c.eventCounts.Honks++
	case EventModeChanged:
		c.eventCounts.ModeChanges++
	case EventChargingStarted:
		c.eventCounts.ChargeCycles++
	}
}

// State returns the current device state.
func (c *Controller) State() DeviceState {
	return DeviceState{
		Guard:         c.guard.State(),
		SwitchPressed: c.sw.Status(),
		HornOn:        c.guard.HornOn(),
		Playing:       c.seq.Playing(),
		Charging:      c.charging,
		LowVoltage:    c.guard.LowVoltage(),
		DetectCount:   c.guard.DetectCount(),
		Mode:          c.latch.Mode(),
		Latch:         c.latch.State(),
		ConfigPresses: c.latch.Presses(),
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.latch.Mode()
}

// EventCountsSnapshot returns a copy of the event counters.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
