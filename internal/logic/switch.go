package logic

// debounceCeiling is the saturation value of the switch integrator.
const debounceCeiling = 255

// Switch debounces the horn button with a saturating up/down counter.
//
// While the input is active the counter climbs; reaching the press threshold
// latches "pressed" and parks the counter at the ceiling, so the press is
// reported exactly once. While inactive the counter falls; reaching
// ceiling-release latches "released" and parks the counter at the floor.
type Switch struct {
	edge         tickEdge
	pressTicks   uint8
	releaseTicks uint8
	counter      uint8
	pressed      bool
}

// NewSwitch creates a released switch with the counter at the configured seed.
func NewSwitch(t Timing) *Switch {
	return &Switch{
		pressTicks:   t.SwitchPressTicks,
		releaseTicks: t.SwitchReleaseTicks,
		counter:      t.SwitchSeed,
	}
}

// Update consumes one tick edge. It is a no-op if the tick has not advanced
// since the previous call. active is the raw input, true while the button is
// held.
func (s *Switch) Update(tick uint16, active bool) {
	if !s.edge.advanced(tick) {
		return
	}

	if active {
		if s.counter < debounceCeiling {
			s.counter++
		}
		if s.counter == s.pressTicks {
			s.counter = debounceCeiling
			s.pressed = true
		}
		return
	}

	if s.counter > 0 {
		s.counter--
	}
	if s.counter == debounceCeiling-s.releaseTicks {
		s.counter = 0
		s.pressed = false
	}
}

// Status returns the latched (debounced) state, not the raw reading.
func (s *Switch) Status() bool {
	return s.pressed
}

// ClearStatus forces the switch to released without waiting for the debounce.
// The counter stays parked, so a held button is not reported again until it
// has been released and pressed anew.
func (s *Switch) ClearStatus() {
	s.pressed = false
}

// Counter returns the integrator value.
func (s *Switch) Counter() uint8 {
	return s.counter
}
