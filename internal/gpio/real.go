//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"

	"github.com/sweeney/horn-controller/internal/logic"
)

// RealBoard drives the horn board through the Linux GPIO character device.
type RealBoard struct {
	chip *gpiocdev.Chip

	sw        *gpiocdev.Line
	cmp       *gpiocdev.Line
	powerGood *gpiocdev.Line
	charger   *gpiocdev.Line

	horn      *gpiocdev.Line
	threshold *gpiocdev.Line
	red       *gpiocdev.Line
	green     *gpiocdev.Line
}

// NewRealBoard requests every line of the pin map. Outputs start inactive.
func NewRealBoard(p Pins) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(p.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", p.Chip, err)
	}
	b := &RealBoard{chip: chip}

	inputs := []struct {
		name string
		line Line
		dst  **gpiocdev.Line
	}{
		{"switch", p.Switch, &b.sw},
		{"comparator", p.Comparator, &b.cmp},
		{"power-good", p.PowerGood, &b.powerGood},
		{"charger status", p.ChargerStatus, &b.charger},
	}
	for _, in := range inputs {
		l, err := chip.RequestLine(in.line.Offset, inputOptions(in.line)...)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", in.name, in.line.Offset, err)
		}
		*in.dst = l
	}

	outputs := []struct {
		name string
		line Line
		dst  **gpiocdev.Line
	}{
		{"horn", p.Horn, &b.horn},
		{"threshold select", p.ThresholdSelect, &b.threshold},
		{"red LED", p.LEDRed, &b.red},
		{"green LED", p.LEDGreen, &b.green},
	}
	for _, out := range outputs {
		l, err := chip.RequestLine(out.line.Offset, outputOptions(out.line)...)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", out.name, out.line.Offset, err)
		}
		*out.dst = l
	}

	return b, nil
}

// Inputs are pulled towards their inactive level so a disconnected line
// reads as inactive.
func inputOptions(l Line) []gpiocdev.LineReqOption {
	if l.ActiveLow {
		return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.AsActiveLow, gpiocdev.WithPullUp}
	}
	return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
}

func outputOptions(l Line) []gpiocdev.LineReqOption {
	if l.ActiveLow {
		return []gpiocdev.LineReqOption{gpiocdev.AsActiveLow, gpiocdev.AsOutput(0)}
	}
	return []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
}

// Read returns the logical input levels. Polarity inversion is done by the
// kernel for lines requested active-low.
func (b *RealBoard) Read() (Sample, error) {
	var s Sample
	var err error
	if s.Switch, err = active(b.sw); err != nil {
		return Sample{}, fmt.Errorf("read switch pin: %w", err)
	}
	if s.Tripped, err = active(b.cmp); err != nil {
		return Sample{}, fmt.Errorf("read comparator pin: %w", err)
	}
	if s.PowerGood, err = active(b.powerGood); err != nil {
		return Sample{}, fmt.Errorf("read power-good pin: %w", err)
	}
	if s.ChargerFault, err = active(b.charger); err != nil {
		return Sample{}, fmt.Errorf("read charger status pin: %w", err)
	}
	return s, nil
}

func active(l *gpiocdev.Line) (bool, error) {
	v, err := l.Value()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// SetHorn drives the horn line.
func (b *RealBoard) SetHorn(on bool) {
	set(b.horn, "horn", on)
}

// SetIndicator drives one of the status LEDs.
func (b *RealBoard) SetIndicator(id logic.Indicator, on bool) {
	if id == logic.IndicatorRed {
		set(b.red, "red LED", on)
		return
	}
	set(b.green, "green LED", on)
}

// SetThreshold selects the comparator reference.
func (b *RealBoard) SetThreshold(level logic.Threshold) {
	set(b.threshold, "threshold select", level == logic.ThresholdLowBattery)
}

func set(l *gpiocdev.Line, name string, on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		log.Printf("gpio write error: %s: %v", name, err)
	}
}

// Close releases GPIO resources.
// Outputs are driven inactive and every line is reconfigured to input with
// pull-down (matching Pi boot defaults) before closing, so the horn cannot be
// left sounding and the pins are in a clean state for shutdown/reboot.
func (b *RealBoard) Close() error {
	var err error

	for _, o := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"horn", b.horn},
		{"threshold select", b.threshold},
		{"red LED", b.red},
		{"green LED", b.green},
	} {
		if o.line == nil {
			continue
		}
		if e := o.line.SetValue(0); e != nil {
			err = multierr.Append(err, fmt.Errorf("clear %s pin: %w", o.name, e))
		}
	}

	for _, l := range []*gpiocdev.Line{
		b.sw, b.cmp, b.powerGood, b.charger,
		b.horn, b.threshold, b.red, b.green,
	} {
		if l == nil {
			continue
		}
		if e := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); e != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), e))
		}
		err = multierr.Append(err, l.Close())
	}

	if b.chip != nil {
		if e := b.chip.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", e))
		}
	}
	return err
}
