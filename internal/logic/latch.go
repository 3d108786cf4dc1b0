package logic

type latchState int

const (
	latchIdle latchState = iota
	latchCounting
	latchChanged
	latchFeedback
	latchLocked
)

var latchStateNames = [...]string{
	latchIdle:     "IDLE",
	latchCounting: "COUNTING",
	latchChanged:  "CHANGED",
	latchFeedback: "FEEDBACK",
	latchLocked:   "LOCKED",
}

func (s latchState) String() string {
	return latchStateNames[s]
}

// feedbackBlinkBit selects the LED blink rate during mode feedback (256 ticks).
const feedbackBlinkBit = 0x100

// Latch is the one-shot configuration toggle evaluated while charging.
//
// Exactly ConfigPresses press edges, each within ConfigWindow of the last,
// toggle the mode once the window expires. Overshooting, or a second attempt
// in the same charge cycle, locks the latch without toggling. Only Reset
// (unplugging) re-arms it.
type Latch struct {
	timing Timing
	out    Outputs
	edge   tickEdge

	mode  Mode
	state latchState
	count uint8
	timer uint16
	held  bool
	used  bool

	events []Event
}

// NewLatch creates an idle latch holding the mode read at boot.
func NewLatch(t Timing, mode Mode, out Outputs) *Latch {
	return &Latch{timing: t, mode: mode, out: out}
}

// Reset re-arms the latch for the next charge cycle.
func (l *Latch) Reset() {
	l.count = 0
	l.timer = 0
	l.held = false
	l.used = false
	l.state = latchIdle
}

// Mode returns the current mode.
func (l *Latch) Mode() Mode {
	return l.mode
}

// Feedback reports whether the latch is driving the LEDs (mode changed flash or blink).
func (l *Latch) Feedback() bool {
	return l.state == latchChanged || l.state == latchFeedback
}

// State returns the latch state name.
func (l *Latch) State() string {
	return l.state.String()
}

// Presses returns the press edges counted in the current window.
func (l *Latch) Presses() uint8 {
	return l.count
}

// Locked reports whether no further toggle is possible this charge cycle.
func (l *Latch) Locked() bool {
	return l.state == latchLocked
}

// Update consumes one tick edge with the debounced switch status.
func (l *Latch) Update(tick uint16, pressed bool) []Event {
	if !l.edge.advanced(tick) {
		return nil
	}
	l.events = nil

	if l.timer > 0 {
		l.timer--
		if l.timer == 0 && l.state == latchCounting {
			l.windowExpired()
		}
	}

	switch l.state {
	case latchChanged:
		l.out.SetIndicator(IndicatorRed, true)
		l.out.SetIndicator(IndicatorGreen, true)
		if l.timer == 0 {
			l.state = latchFeedback
			l.timer = l.timing.ConfigModeFeedback
		}
	case latchFeedback:
		blink := tick&feedbackBlinkBit != 0
		l.out.SetIndicator(IndicatorRed, blink)
		if l.mode == ModeMiniBell {
			l.out.SetIndicator(IndicatorGreen, !blink)
		} else {
			l.out.SetIndicator(IndicatorGreen, blink)
		}
		if l.timer == 0 {
			l.lock()
		}
	case latchLocked:
		l.held = pressed
		return l.events
	}

	if pressed && !l.held {
		l.held = true
		if l.state == latchIdle || l.state == latchCounting {
			l.count++
			l.timer = l.timing.ConfigWindow
			l.state = latchCounting
			if l.count > l.timing.ConfigPresses {
				l.used = true
				l.lock()
			}
		}
	} else if !pressed && l.held {
		l.held = false
	}
	return l.events
}

func (l *Latch) windowExpired() {
	if l.count == l.timing.ConfigPresses && !l.used {
		l.mode = l.mode.Toggle()
		l.used = true
		l.state = latchChanged
		l.timer = l.timing.ConfigChangedFlash
		l.events = append(l.events, Event{Type: EventModeChanged, Mode: l.mode})
		return
	}
	if !l.used {
		l.count = 0
		l.state = latchIdle
		return
	}
	l.lock()
}

func (l *Latch) lock() {
	if l.state == latchLocked {
		return
	}
	l.state = latchLocked
	l.events = append(l.events, Event{Type: EventConfigLocked, Mode: l.mode})
}
