package pwm

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/sweeney/horn-controller/internal/logic"
)

// DefaultSysfsRoot is where the kernel exposes PWM chips.
const DefaultSysfsRoot = "/sys/class/pwm"

// SysfsTone drives one channel of a PWM chip through sysfs.
type SysfsTone struct {
	chipDir  string
	dir      string
	channel  int
	tb       logic.ToneTimebase
	periodNs uint64
	enabled  bool
	exported bool // by us; unexported again on Close
}

// NewSysfsTone exports channel of pwmchip<chip> under root if needed and
// leaves it disabled.
func NewSysfsTone(root string, chip, channel int, tb logic.ToneTimebase) (*SysfsTone, error) {
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	t := &SysfsTone{
		chipDir: chipDir,
		dir:     filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel)),
		channel: channel,
		tb:      tb,
	}

	if _, err := os.Stat(t.dir); err != nil {
		if err := write(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", channel, err)
		}
		t.exported = true
	}

	if err := t.attr("enable", "0"); err != nil {
		return nil, fmt.Errorf("disable pwm channel %d: %w", channel, err)
	}
	if b, err := os.ReadFile(filepath.Join(t.dir, "period")); err == nil {
		t.periodNs, _ = strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	}
	return t, nil
}

// ProgramTone sets the waveform and enables the output.
func (t *SysfsTone) ProgramTone(period, compare uint32) {
	periodNs, dutyNs := Nanoseconds(t.tb, period, compare)

	// The kernel rejects a duty cycle longer than the period, so the order
	// of the two writes depends on whether the period shrinks.
	var err error
	if periodNs < t.periodNs {
		err = multierr.Append(t.attr("duty_cycle", strconv.FormatUint(dutyNs, 10)),
			t.attr("period", strconv.FormatUint(periodNs, 10)))
	} else {
		err = multierr.Append(t.attr("period", strconv.FormatUint(periodNs, 10)),
			t.attr("duty_cycle", strconv.FormatUint(dutyNs, 10)))
	}
	if err != nil {
		log.Printf("pwm write error: %v", err)
		return
	}
	t.periodNs = periodNs

	if !t.enabled {
		if err := t.attr("enable", "1"); err != nil {
			log.Printf("pwm write error: %v", err)
			return
		}
		t.enabled = true
	}
}

// StopTone disables the output.
func (t *SysfsTone) StopTone() {
	if !t.enabled {
		return
	}
	if err := t.attr("enable", "0"); err != nil {
		log.Printf("pwm write error: %v", err)
		return
	}
	t.enabled = false
}

// Close disables the output and unexports the channel if we exported it.
func (t *SysfsTone) Close() error {
	err := t.attr("enable", "0")
	t.enabled = false
	if t.exported {
		err = multierr.Append(err, write(filepath.Join(t.chipDir, "unexport"), strconv.Itoa(t.channel)))
		t.exported = false
	}
	if err != nil {
		return fmt.Errorf("close pwm channel %d: %w", t.channel, err)
	}
	return nil
}

func (t *SysfsTone) attr(name, value string) error {
	return write(filepath.Join(t.dir, name), value)
}

func write(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := f.WriteString(value)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if n < len(value) {
		return io.ErrShortWrite
	}
	return nil
}
