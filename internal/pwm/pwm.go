// Package pwm drives the horn's tone generator.
// The real implementation uses the Linux sysfs PWM interface.
// The fake implementation allows testing without hardware.
package pwm

import (
	"time"

	"github.com/sweeney/horn-controller/internal/logic"
)

// Tone is a PWM channel programmed in timer counts of a logic.ToneTimebase.
type Tone interface {
	logic.ToneOutput

	// Close stops the waveform and releases the channel.
	Close() error
}

// Nanoseconds converts timer register values into the period and active
// time of the waveform. A counter running 0..period lasts period+1 counts;
// compare >= period keeps the output active for the whole cycle.
func Nanoseconds(tb logic.ToneTimebase, period, compare uint32) (periodNs, dutyNs uint64) {
	prescaler := uint64(tb.Prescaler)
	if prescaler == 0 {
		prescaler = 1
	}
	clock := uint64(tb.ClockHz)
	if clock == 0 {
		return 0, 0
	}

	count := func(n uint64) uint64 {
		return n * prescaler * uint64(time.Second) / clock
	}
	periodNs = count(uint64(period) + 1)
	if compare >= period {
		return periodNs, periodNs
	}
	return periodNs, count(uint64(compare))
}
