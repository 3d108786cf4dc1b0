package logic

// Step is one entry of a tone pattern.
type Step struct {
	DurationMs  uint32
	FrequencyHz uint16
	DutyPercent uint8
}

// Pattern is an immutable sequence of steps terminated by a zero-duration step.
// Running off the end of the slice is treated as reaching the terminator.
type Pattern []Step

// PatternID indexes the fixed pattern table.
type PatternID int

const (
	PatternNone PatternID = iota
	PatternBell
	PatternMiniHonk
	PatternLowBattery
	PatternChime
)

var patternNames = [...]string{
	PatternNone:       "none",
	PatternBell:       "bell",
	PatternMiniHonk:   "mini-honk",
	PatternLowBattery: "low-battery",
	PatternChime:      "chime",
}

var patterns = [...]Pattern{
	PatternNone: {{}},
	// Struck bell: constant pitch, duty decays to soften the ring.
	PatternBell: {
		{DurationMs: 40, FrequencyHz: 1800, DutyPercent: 50},
		{DurationMs: 40, FrequencyHz: 1800, DutyPercent: 30},
		{DurationMs: 60, FrequencyHz: 1800, DutyPercent: 18},
		{DurationMs: 80, FrequencyHz: 1800, DutyPercent: 10},
		{DurationMs: 100, FrequencyHz: 1800, DutyPercent: 5},
		{DurationMs: 120, FrequencyHz: 1800, DutyPercent: 2},
		{},
	},
	PatternMiniHonk: MiniHonk(3),
	PatternLowBattery: {
		{DurationMs: 100, FrequencyHz: 880, DutyPercent: 50},
		{DurationMs: 100, FrequencyHz: 880, DutyPercent: 0},
		{DurationMs: 100, FrequencyHz: 880, DutyPercent: 50},
		{},
	},
	PatternChime: {
		{DurationMs: 80, FrequencyHz: 1319, DutyPercent: 50},
		{DurationMs: 80, FrequencyHz: 1568, DutyPercent: 50},
		{DurationMs: 160, FrequencyHz: 2093, DutyPercent: 50},
		{},
	},
}

// Steps returns the pattern for id. Unknown ids yield an empty pattern.
func (id PatternID) Steps() Pattern {
	if id < 0 || int(id) >= len(patterns) {
		return patterns[PatternNone]
	}
	return patterns[id]
}

func (id PatternID) String() string {
	if id < 0 || int(id) >= len(patternNames) {
		return "unknown"
	}
	return patternNames[id]
}

// Patterns lists every playable pattern in table order.
func Patterns() []PatternID {
	return []PatternID{PatternBell, PatternMiniHonk, PatternLowBattery, PatternChime}
}

// Pattern resolves id against the tuning; only the mini-honk length is tunable.
func (t Timing) Pattern(id PatternID) Pattern {
	if id == PatternMiniHonk {
		return MiniHonk(t.MiniHonkExtension)
	}
	return id.Steps()
}

// MiniHonk returns the MINI release pattern extended for ms ticks.
// Full duty keeps the horn element energised.
func MiniHonk(ms uint16) Pattern {
	if ms == 0 {
		return Pattern{{}}
	}
	return Pattern{
		{DurationMs: uint32(ms), FrequencyHz: 400, DutyPercent: 100},
		{},
	}
}

// ReleasePattern returns the pattern played when the switch is released in mode m.
func ReleasePattern(m Mode) PatternID {
	if m == ModeMini {
		return PatternMiniHonk
	}
	return PatternBell
}

// Duration returns the sum of the step durations up to the terminator.
func (p Pattern) Duration() uint32 {
	var total uint32
	for _, s := range p {
		if s.DurationMs == 0 {
			break
		}
		total += s.DurationMs
	}
	return total
}
