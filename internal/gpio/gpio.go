// Package gpio provides the horn board's digital inputs and outputs with
// hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/horn-controller/internal/logic"

// Board reads the board inputs and drives its outputs.
// Output setters log write failures instead of returning them: the control
// loop keeps running with whatever lines still work.
type Board interface {
	// Read returns the logical input levels. Line polarity is handled by
	// the implementation.
	Read() (Sample, error)

	SetHorn(on bool)
	SetIndicator(id logic.Indicator, on bool)
	SetThreshold(level logic.Threshold)

	// Close releases GPIO resources, leaving every output inactive.
	Close() error
}

// Sample represents a single reading of the inputs (already in logical form).
type Sample struct {
	Switch       bool // true = pressed
	Tripped      bool // true = battery below the selected comparator threshold
	PowerGood    bool // true = charging power present
	ChargerFault bool // true = charger status line asserted
}

// Line is a GPIO line offset on the chip and its polarity.
type Line struct {
	Offset    int  `yaml:"offset"`
	ActiveLow bool `yaml:"active_low"`
}

// Pins is the board's pin map (BCM numbering on a Raspberry Pi).
type Pins struct {
	Chip string `yaml:"chip"`

	Switch        Line `yaml:"switch"`
	Comparator    Line `yaml:"comparator"`
	PowerGood     Line `yaml:"power_good"`
	ChargerStatus Line `yaml:"charger_status"`

	Horn            Line `yaml:"horn"`
	ThresholdSelect Line `yaml:"threshold_select"` // active = low-battery reference
	LEDRed          Line `yaml:"led_red"`
	LEDGreen        Line `yaml:"led_green"`
}

// DefaultPins returns the pin map of the reference board.
func DefaultPins() Pins {
	return Pins{
		Chip:            "gpiochip0",
		Switch:          Line{Offset: 17, ActiveLow: true},
		Comparator:      Line{Offset: 27},
		PowerGood:       Line{Offset: 22, ActiveLow: true},
		ChargerStatus:   Line{Offset: 23, ActiveLow: true},
		Horn:            Line{Offset: 24},
		ThresholdSelect: Line{Offset: 25},
		LEDRed:          Line{Offset: 5},
		LEDGreen:        Line{Offset: 6},
	}
}

// Offsets returns every line offset in the map, inputs first.
func (p Pins) Offsets() []int {
	return []int{
		p.Switch.Offset, p.Comparator.Offset, p.PowerGood.Offset, p.ChargerStatus.Offset,
		p.Horn.Offset, p.ThresholdSelect.Offset, p.LEDRed.Offset, p.LEDGreen.Offset,
	}
}
