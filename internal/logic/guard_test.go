package logic

import "testing"

// guardRig wires a guard to a switch, a sequencer and a recorder, and steps
// them in loop order one tick at a time.
type guardRig struct {
	t         *testing.T
	out       *recorder
	sw        *Switch
	seq       *Sequencer
	g         *Guard
	tick      uint16
	states    []GuardState
	events    []Event
	firstHorn uint16
}

func newGuardRig(t *testing.T, timing Timing, mode Mode) *guardRig {
	t.Helper()
	out := &recorder{}
	sw := NewSwitch(timing)
	seq := NewSequencer(DefaultTimebase(), out)
	return &guardRig{
		t:   t,
		out: out,
		sw:  sw,
		seq: seq,
		g:   NewGuard(timing, mode, sw, seq, out),
	}
}

func (r *guardRig) step(pressed, tripped bool) {
	r.tick++
	r.sw.Update(r.tick, pressed)
	for _, e := range r.g.Update(r.tick, tripped) {
		r.events = append(r.events, e)
		if e.Type == EventState {
			r.states = append(r.states, e.To)
		}
	}
	if r.out.horn && r.firstHorn == 0 {
		r.firstHorn = r.tick
	}
}

func (r *guardRig) run(n int, pressed, tripped bool) {
	for i := 0; i < n; i++ {
		r.step(pressed, tripped)
	}
}

// runUntil steps until the guard reaches want, failing after limit ticks.
func (r *guardRig) runUntil(want GuardState, pressed, tripped bool, limit int) {
	r.t.Helper()
	for i := 0; i < limit; i++ {
		if r.g.State() == want {
			return
		}
		r.step(pressed, tripped)
	}
	if r.g.State() != want {
		r.t.Fatalf("state %s not reached after %d ticks (at %s)", want, limit, r.g.State())
	}
}

// settle boots without a press and waits until the boot chime has played.
func (r *guardRig) settle() {
	r.t.Helper()
	r.runUntil(StateCheckHornIdle, false, false, 2000)
	r.states = nil
	r.events = nil
	r.firstHorn = 0
	r.out.hornOnes = 0
}

func (r *guardRig) countEvents(typ EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func assertStates(t *testing.T, got, want []GuardState) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("states: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states: got %v, want %v", got, want)
		}
	}
}

func TestGuardStartsInInit(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMiniBell)
	if r.g.State() != StateInit {
		t.Errorf("expected INIT, got %s", r.g.State())
	}
	r.step(false, false)
	if r.g.State() != StateKill {
		t.Errorf("expected KILL after first tick, got %s", r.g.State())
	}
	if r.out.threshold != ThresholdCritical {
		t.Errorf("expected critical threshold armed, got %s", r.out.threshold)
	}
}

func TestGuardSameTickIsNoop(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMiniBell)
	r.g.Update(1, false)
	r.g.Update(1, false)
	r.g.Update(1, true)
	if r.g.State() != StateKill {
		t.Errorf("expected a single transition to KILL, got %s", r.g.State())
	}
}

func TestGuardKillToDeadOnEarlyTrip(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMiniBell)

	r.run(5, false, true)
	assertStates(t, r.states, []GuardState{StateKill, StateDead})
	if !r.out.red {
		t.Error("expected red LED asserted in DEAD")
	}
	if r.countEvents(EventDead) != 1 {
		t.Errorf("expected 1 DEAD event, got %d", r.countEvents(EventDead))
	}

	// Absorbing: pressing the button or recovering voltage changes nothing.
	r.run(5000, true, false)
	if r.g.State() != StateDead {
		t.Fatalf("left DEAD: %s", r.g.State())
	}
	if r.out.hornOnes != 0 {
		t.Errorf("horn driven %d times while dead", r.out.hornOnes)
	}
	if r.out.toneOn {
		t.Error("tone playing while dead")
	}
}

func TestGuardKillTimeoutArmsLowBatteryThreshold(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)

	r.step(false, false) // INIT
	for i := 0; i < int(timing.KillTimeout)-1; i++ {
		r.step(false, false)
		if r.g.State() != StateKill {
			t.Fatalf("left KILL early at tick %d", r.tick)
		}
	}
	r.step(false, false)
	if r.g.State() != StateCheckHornActive {
		t.Fatalf("expected CHECK_HORN_ACTIVE after kill timeout, got %s", r.g.State())
	}
	if r.out.threshold != ThresholdLowBattery {
		t.Errorf("expected low-battery threshold, got %s", r.out.threshold)
	}

	// A trip after the kill window is no longer fatal.
	r.run(50, false, true)
	if r.g.State() == StateDead {
		t.Error("trip after kill timeout must not kill the device")
	}
}

func TestGuardBootHoldScenario(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)

	// Held from power-on for one second, then released.
	r.run(1000, true, false)
	if !r.out.horn {
		t.Fatal("expected horn on while held")
	}
	// The seeded switch latches on tick 1; the horn follows after the commit debounce.
	if want := 1 + timing.CommitDebounce; r.firstHorn != want {
		t.Errorf("horn first driven at tick %d, want %d", r.firstHorn, want)
	}

	r.runUntil(StateCheckHornIdle, false, false, 2000)
	assertStates(t, r.states, []GuardState{StateKill, StateCheckHornActive, StateCheckBell, StateCheckHornIdle})
	if r.out.horn {
		t.Error("expected horn off in CHECK_HORN_IDLE")
	}
	if r.countEvents(EventHonk) != 1 {
		t.Errorf("expected 1 HONK event, got %d", r.countEvents(EventHonk))
	}
}

func TestGuardBootWithoutPressPlaysChime(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMiniBell)
	r.runUntil(StateCheckBell, false, false, 100)

	// The chime opens at 1319 Hz.
	if want := DefaultTimebase().Period(1319); r.out.tonePeriod != want {
		t.Errorf("expected chime period %d, got %d", want, r.out.tonePeriod)
	}
}

func TestGuardTapDoesNotDriveHorn(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	// Long enough to latch, shorter than the commit debounce.
	r.run(int(timing.SwitchPressTicks)+10, true, false)
	if r.g.State() != StateCheckHornActive {
		t.Fatalf("expected CHECK_HORN_ACTIVE during tap, got %s", r.g.State())
	}
	r.runUntil(StateCheckBell, false, false, 100)

	if r.out.hornOnes != 0 {
		t.Errorf("horn driven %d times during a tap", r.out.hornOnes)
	}
	if !r.out.toneOn {
		t.Error("expected the bell to ring after a tap")
	}
	if want := DefaultTimebase().Period(1800); r.out.tonePeriod != want {
		t.Errorf("expected bell period %d, got %d", want, r.out.tonePeriod)
	}
}

func TestGuardHoldDrivesHornAfterCommit(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	start := r.tick
	r.run(200, true, false)
	latched := start + uint16(timing.SwitchPressTicks)
	if want := latched + timing.CommitDebounce; r.firstHorn != want {
		t.Errorf("horn first driven at tick %d, want %d", r.firstHorn, want)
	}
}

func TestGuardBellAbortedByPress(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	r.run(100, true, false)
	r.runUntil(StateCheckBell, false, false, 100)
	r.run(5, false, false)

	r.runUntil(StateCheckHornActive, true, false, 100)
	if r.out.toneOn {
		t.Error("expected bell silenced when pressed mid-ring")
	}
	if r.seq.Playing() {
		t.Error("expected sequencer stopped")
	}
}

func TestGuardMiniModeExtendsHonk(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMini)
	r.settle()

	r.run(100, true, false)
	r.runUntil(StateCheckBell, false, false, 100)

	if !r.out.toneOn {
		t.Fatal("expected mini honk extension on the tone output")
	}
	if r.out.toneCmp != r.out.tonePeriod {
		t.Errorf("expected full duty extension, got %d/%d", r.out.toneCmp, r.out.tonePeriod)
	}
	r.runUntil(StateCheckHornIdle, false, false, 20)
}

func TestGuardMiniHonkExtensionFromTiming(t *testing.T) {
	timing := DefaultTiming()
	timing.MiniHonkExtension = 50
	r := newGuardRig(t, timing, ModeMini)
	r.settle()

	r.run(100, true, false)
	r.runUntil(StateCheckBell, false, false, 100)

	r.run(49, false, false)
	if r.g.State() != StateCheckBell || !r.out.toneOn {
		t.Fatalf("extension ended early: state %s tone %v", r.g.State(), r.out.toneOn)
	}
	r.runUntil(StateCheckHornIdle, false, false, 5)
	if r.out.toneOn {
		t.Error("expected tone stopped after the extension")
	}
}

func TestGuardMiniHonkExtensionDisabled(t *testing.T) {
	timing := DefaultTiming()
	timing.MiniHonkExtension = 0
	r := newGuardRig(t, timing, ModeMini)
	r.settle()

	r.run(100, true, false)
	programs := r.out.programs
	r.runUntil(StateCheckHornIdle, false, false, 40)

	if r.out.programs != programs || r.out.toneOn {
		t.Errorf("expected no extension tone, got %d new programs", r.out.programs-programs)
	}
}

func TestGuardIdleHoldsHornOff(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMiniBell)
	r.settle()

	r.out.horn = true
	r.step(false, false)
	if r.out.horn {
		t.Error("expected CHECK_HORN_IDLE to drive the horn line low")
	}
}

func TestGuardMaxHornOnCutsHonk(t *testing.T) {
	timing := DefaultTiming()
	timing.MaxHornOn = 300
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	r.run(2000, true, false)
	if r.out.horn {
		t.Error("horn still on after max horn-on time")
	}
	if r.g.State() == StateCheckHornActive {
		t.Error("expected honk to end while the button is still held")
	}
	if r.countEvents(EventHonk) != 1 {
		t.Errorf("expected a single honk while held, got %d", r.countEvents(EventHonk))
	}
}

func TestGuardStickyLowVoltage(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	r.run(int(timing.SwitchPressTicks), true, false)
	r.run(int(timing.LowBatteryDetect)-1, true, true)
	if r.g.LowVoltage() {
		t.Fatal("flag set before the detection time")
	}
	r.step(true, true)
	if !r.g.LowVoltage() {
		t.Fatal("expected sticky low-voltage flag")
	}
	if !r.out.red {
		t.Error("expected red LED on low voltage")
	}
	if r.countEvents(EventLowVoltage) != 1 {
		t.Errorf("expected 1 LOW_VOLTAGE event, got %d", r.countEvents(EventLowVoltage))
	}

	// Recovered readings never clear it.
	r.run(5000, true, false)
	r.run(5000, false, false)
	if !r.g.LowVoltage() {
		t.Error("sticky flag cleared")
	}
	if r.countEvents(EventLowVoltage) != 1 {
		t.Errorf("LOW_VOLTAGE emitted %d times", r.countEvents(EventLowVoltage))
	}
}

func TestGuardLeakyIntegratorIgnoresAlternatingTrips(t *testing.T) {
	r := newGuardRig(t, DefaultTiming(), ModeMiniBell)
	r.settle()

	r.run(20, true, false)
	for i := 0; i < 5000; i++ {
		r.step(true, i%2 == 0)
	}
	if r.g.LowVoltage() {
		t.Error("alternating comparator readings set the sticky flag")
	}
	if r.g.DetectCount() > 1 {
		t.Errorf("expected integrator to stay near zero, got %d", r.g.DetectCount())
	}
}

func TestGuardEndBeepAfterLowVoltage(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	r.run(int(timing.SwitchPressTicks), true, false)
	r.run(int(timing.LowBatteryDetect)+10, true, true)
	r.runUntil(StateEndBeep, false, false, 2000)
	assertStates(t, r.states, []GuardState{StateCheckHornActive, StateCheckBell, StateEndBeep})

	if want := DefaultTimebase().Period(880); r.out.tonePeriod != want {
		t.Errorf("expected low-battery beep period %d, got %d", want, r.out.tonePeriod)
	}

	// Let the end-of-life beep finish: everything off, state kept.
	r.run(int(PatternLowBattery.Steps().Duration())+10, false, false)
	if r.g.State() != StateEndBeep {
		t.Fatalf("expected to remain in END_BEEP, got %s", r.g.State())
	}
	if r.out.horn || r.out.toneOn {
		t.Error("expected horn and tone off after the end-of-life beep")
	}
	if !r.out.red {
		t.Error("expected red LED asserted in END_BEEP")
	}
	programs := r.out.programs
	r.run(1000, false, false)
	if r.out.programs != programs {
		t.Error("end-of-life beep restarted while idle in END_BEEP")
	}

	// The user can still honk once more.
	r.runUntil(StateCheckHornActive, true, false, 100)
}

func TestGuardIdleRebeepsWhenLowVoltage(t *testing.T) {
	timing := DefaultTiming()
	r := newGuardRig(t, timing, ModeMiniBell)
	r.settle()

	// Flag latched by an earlier honk while the guard waits in CHECK_HORN_IDLE.
	r.g.lowVoltage = true
	r.g.timer = timing.WaitLowBatteryBeep

	r.run(int(timing.WaitLowBatteryBeep)-1, false, false)
	if r.g.State() != StateCheckHornIdle {
		t.Fatalf("left CHECK_HORN_IDLE before the re-beep delay: %s", r.g.State())
	}
	r.step(false, false)
	if r.g.State() != StateEndBeep {
		t.Fatalf("expected END_BEEP after the re-beep delay, got %s", r.g.State())
	}
	if !r.out.toneOn {
		t.Error("expected the end-of-life beep to start")
	}
}
