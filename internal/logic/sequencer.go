package logic

// Frequency limits applied to every step before the period is computed.
const (
	MinFrequency = 1
	MaxFrequency = 20000
)

// ToneTimebase describes the timer that generates the tone waveform.
type ToneTimebase struct {
	ClockHz   uint32 `yaml:"clock_hz"`
	Prescaler uint32 `yaml:"prescaler"`
	MaxPeriod uint32 `yaml:"max_period"` // largest value the period register can hold
}

// DefaultTimebase is a 20 MHz clock divided by 16 into a 16-bit period register.
func DefaultTimebase() ToneTimebase {
	return ToneTimebase{
		ClockHz:   20000000,
		Prescaler: 16,
		MaxPeriod: 0xFFFF,
	}
}

// Period returns the period register value for freq, clamped into
// [MinFrequency, MaxFrequency] and saturated at MaxPeriod.
func (tb ToneTimebase) Period(freq uint16) uint32 {
	f := uint32(freq)
	if f < MinFrequency {
		f = MinFrequency
	}
	if f > MaxFrequency {
		f = MaxFrequency
	}
	prescaler := tb.Prescaler
	if prescaler == 0 {
		prescaler = 1
	}

	counts := tb.ClockHz / prescaler / f
	if counts == 0 {
		return 0
	}
	period := counts - 1
	if period > tb.MaxPeriod {
		period = tb.MaxPeriod
	}
	return period
}

// Compare returns the compare register value for duty percent of period.
// 100% maps exactly to period so the output never drops below top.
func Compare(period uint32, duty uint8) uint32 {
	if duty >= 100 {
		return period
	}
	return uint32(uint64(period) * uint64(duty) / 100)
}

// Sequencer plays a Pattern on the tone output, one step per duration.
// The PWM registers are only touched at step boundaries.
type Sequencer struct {
	edge      tickEdge
	timebase  ToneTimebase
	out       ToneOutput
	pattern   Pattern
	step      int
	remaining uint32
	playing   bool
}

// NewSequencer creates an idle sequencer.
func NewSequencer(tb ToneTimebase, out ToneOutput) *Sequencer {
	return &Sequencer{timebase: tb, out: out}
}

// Start restarts playback at the first step of p. A pattern whose first
// step has zero duration is already finished.
func (s *Sequencer) Start(p Pattern) {
	s.pattern = p
	s.step = 0
	s.remaining = 0
	s.playing = false

	if len(p) == 0 || p[0].DurationMs == 0 {
		s.out.StopTone()
		return
	}
	s.remaining = p[0].DurationMs
	s.playing = true
	s.program(p[0])
}

// Update advances playback by one tick edge and reports whether the
// pattern is still playing. Calls within the same tick change nothing.
func (s *Sequencer) Update(tick uint16) bool {
	if !s.playing {
		return false
	}
	if !s.edge.advanced(tick) {
		return true
	}

	if s.remaining > 0 {
		s.remaining--
		return true
	}

	next := s.step + 1
	if next < len(s.pattern) && s.pattern[next].DurationMs != 0 {
		s.step = next
		s.program(s.pattern[next])
		s.remaining = s.pattern[next].DurationMs
		return true
	}

	s.playing = false
	s.out.StopTone()
	return false
}

// Stop abandons the current pattern and silences the output.
func (s *Sequencer) Stop() {
	s.playing = false
	s.pattern = nil
	s.step = 0
	s.remaining = 0
	s.out.StopTone()
}

// Playing reports whether a pattern is in progress.
func (s *Sequencer) Playing() bool {
	return s.playing
}

// StepIndex returns the index of the step being played.
func (s *Sequencer) StepIndex() int {
	return s.step
}

func (s *Sequencer) program(st Step) {
	period := s.timebase.Period(st.FrequencyHz)
	s.out.ProgramTone(period, Compare(period, st.DutyPercent))
}
