package logic

// Guard is the low-voltage guard: it arbitrates between the user honking,
// detection of a tired battery, the end-of-life beep and the dead latch.
//
// It is the only owner of the horn line outside charging and decides when
// the sequencer may use the tone output, so the two never drive the horn at
// the same time.
type Guard struct {
	timing Timing
	mode   Mode
	sw     *Switch
	seq    *Sequencer
	out    Outputs

	edge  tickEdge
	state GuardState

	// timer is the kill timeout in KILL, the max horn-on time in
	// CHECK_HORN_ACTIVE and the re-beep delay in CHECK_HORN_IDLE.
	timer uint16
	// commit delays driving the horn so that a tap only rings the bell.
	commit uint16

	detectCount uint16
	lowVoltage  bool // sticky until re-initialisation

	bootPattern PatternID
	bootPending bool
	hornOn      bool

	events []Event
}

// NewGuard creates a guard in INIT. The switch must be updated before the
// guard within each loop iteration.
func NewGuard(t Timing, mode Mode, sw *Switch, seq *Sequencer, out Outputs) *Guard {
	return &Guard{
		timing: t,
		mode:   mode,
		sw:     sw,
		seq:    seq,
		out:    out,
		state:  StateInit,
	}
}

// Update runs one tick of the state machine. It is a no-op if the tick has
// not advanced. tripped is the comparator output: true while the battery is
// below the selected threshold.
func (g *Guard) Update(tick uint16, tripped bool) []Event {
	if !g.edge.advanced(tick) {
		return nil
	}
	g.events = nil

	g.timer = decSat(g.timer)
	g.commit = decSat(g.commit)

	switch g.state {
	case StateInit:
		g.initialise()
	case StateKill:
		g.kill(tripped)
	case StateCheckBell:
		g.checkBell(tick)
	case StateCheckHornIdle:
		g.checkHornIdle()
	case StateCheckHornActive:
		g.checkHornActive(tripped)
	case StateEndBeep:
		g.endBeep(tick)
	case StateDead:
		g.dead()
	}
	return g.events
}

func (g *Guard) initialise() {
	g.out.SetThreshold(ThresholdCritical)
	g.timer = g.timing.KillTimeout
	g.commit = g.timing.CommitDebounce
	g.detectCount = 0
	g.lowVoltage = false

	// Powered up with the button held: the first release rings as usual.
	// Otherwise the first release after boot confirms power-up with the chime.
	if g.sw.Status() {
		g.bootPattern = ReleasePattern(g.mode)
	} else {
		g.bootPattern = PatternChime
	}
	g.bootPending = true

	g.transition(StateKill)
}

// kill catches a battery that is already flat before the horn is ever driven.
func (g *Guard) kill(tripped bool) {
	if tripped {
		g.setHorn(false)
		g.transition(StateDead)
		return
	}
	if g.timer == 0 {
		g.out.SetThreshold(ThresholdLowBattery)
		g.timer = g.timing.MaxHornOn
		g.transition(StateCheckHornActive)
	}
}

func (g *Guard) checkBell(tick uint16) {
	if g.seq.Update(tick) {
		if g.sw.Status() {
			g.seq.Stop()
			g.armHonk()
			g.transition(StateCheckHornActive)
		}
		return
	}

	if g.lowVoltage {
		g.startEndBeep()
		return
	}
	g.timer = g.timing.WaitLowBatteryBeep
	g.transition(StateCheckHornIdle)
}

func (g *Guard) checkHornIdle() {
	g.setHorn(false)

	if g.sw.Status() {
		g.armHonk()
		g.transition(StateCheckHornActive)
		return
	}
	if g.timer == 0 && g.lowVoltage {
		g.startEndBeep()
	}
}

func (g *Guard) checkHornActive(tripped bool) {
	if !g.sw.Status() {
		id := ReleasePattern(g.mode)
		if g.bootPending && !g.hornOn {
			id = g.bootPattern
		}
		g.bootPending = false

		g.setHorn(false)
		g.seq.Start(g.timing.Pattern(id))
		g.transition(StateCheckBell)
		return
	}

	if g.commit == 0 {
		if !g.hornOn {
			g.emit(Event{Type: EventHonk})
		}
		g.setHorn(true)
	}

	if g.timer == 0 {
		g.sw.ClearStatus()
	}

	// Leaky integrator: transient dips while honking do not count.
	if tripped {
		g.detectCount = incSat(g.detectCount)
		if g.detectCount >= g.timing.LowBatteryDetect {
			if !g.lowVoltage {
				g.lowVoltage = true
				g.emit(Event{Type: EventLowVoltage})
			}
			g.out.SetIndicator(IndicatorRed, true)
		}
	} else {
		g.detectCount = decSat(g.detectCount)
	}
}

func (g *Guard) endBeep(tick uint16) {
	if g.sw.Status() {
		g.seq.Stop()
		g.armHonk()
		g.transition(StateCheckHornActive)
	} else if !g.seq.Update(tick) {
		g.setHorn(false)
		g.out.StopTone()
		g.timer = 0
	}

	// END_BEEP also performs DEAD's indicator action on every tick.
	g.out.SetIndicator(IndicatorRed, true)
}

// dead is absorbing: only a power cycle leaves it.
func (g *Guard) dead() {
	g.setHorn(false)
	g.seq.Stop()
	g.out.SetIndicator(IndicatorRed, true)
}

func (g *Guard) startEndBeep() {
	g.setHorn(false)
	g.seq.Start(PatternLowBattery.Steps())
	g.transition(StateEndBeep)
}

func (g *Guard) armHonk() {
	g.timer = g.timing.MaxHornOn
	g.commit = g.timing.CommitDebounce
}

func (g *Guard) setHorn(on bool) {
	g.hornOn = on
	g.out.SetHorn(on)
}

func (g *Guard) transition(to GuardState) {
	from := g.state
	g.state = to
	g.emit(Event{Type: EventState, From: from, To: to})
	if to == StateDead {
		g.emit(Event{Type: EventDead})
	}
}

func (g *Guard) emit(e Event) {
	g.events = append(g.events, e)
}

// SetMode changes the release behaviour used from the next release on.
func (g *Guard) SetMode(m Mode) {
	g.mode = m
}

// ForceHornOff records that another owner silenced the horn line.
func (g *Guard) ForceHornOff() {
	g.hornOn = false
}

// State returns the current state.
func (g *Guard) State() GuardState {
	return g.state
}

// LowVoltage reports the sticky low-voltage flag.
func (g *Guard) LowVoltage() bool {
	return g.lowVoltage
}

// HornOn reports whether the guard is driving the horn line.
func (g *Guard) HornOn() bool {
	return g.hornOn
}

// DetectCount returns the leaky low-voltage integrator value.
func (g *Guard) DetectCount() uint16 {
	return g.detectCount
}
