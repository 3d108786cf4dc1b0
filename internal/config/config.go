// Package config loads the optional YAML configuration file: the board pin
// map, the PWM channel and the controller tuning.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/horn-controller/internal/gpio"
	"github.com/sweeney/horn-controller/internal/logic"
	"github.com/sweeney/horn-controller/internal/pwm"
)

// PWM selects the tone channel and the timebase its registers are expressed in.
type PWM struct {
	SysfsRoot string             `yaml:"sysfs_root"`
	Chip      int                `yaml:"chip"`
	Channel   int                `yaml:"channel"`
	Timebase  logic.ToneTimebase `yaml:"timebase"`
}

// Config is the file-backed configuration. Runtime options given as flags
// take precedence over the file.
type Config struct {
	Broker       string        `yaml:"broker"`
	HTTPAddr     string        `yaml:"http"`
	Heartbeat    time.Duration `yaml:"heartbeat"`
	PollInterval time.Duration `yaml:"poll"`
	StateFile    string        `yaml:"state_file"`

	Pins   gpio.Pins    `yaml:"pins"`
	PWM    PWM          `yaml:"pwm"`
	Timing logic.Timing `yaml:"timing"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":80",
		Heartbeat:    15 * time.Minute,
		PollInterval: time.Millisecond,
		StateFile:    "/var/lib/horn-controller/mode",
		Pins:         gpio.DefaultPins(),
		PWM: PWM{
			SysfsRoot: pwm.DefaultSysfsRoot,
			Timebase:  logic.DefaultTimebase(),
		},
		Timing: logic.DefaultTiming(),
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(c.Broker != "", "broker is required")
	check(c.PollInterval > 0, "poll must be positive")
	check(c.Heartbeat >= 0, "heartbeat must not be negative")
	check(c.StateFile != "", "state_file is required")

	check(c.Pins.Chip != "", "pins.chip is required")
	seen := make(map[int]bool)
	for _, o := range c.Pins.Offsets() {
		check(o >= 0, "pin offset %d is negative", o)
		check(!seen[o], "pin offset %d is used more than once", o)
		seen[o] = true
	}

	check(c.PWM.SysfsRoot != "", "pwm.sysfs_root is required")
	check(c.PWM.Chip >= 0 && c.PWM.Channel >= 0, "pwm chip and channel must not be negative")
	check(c.PWM.Timebase.ClockHz > 0, "pwm.timebase.clock_hz must be positive")
	check(c.PWM.Timebase.MaxPeriod > 0, "pwm.timebase.max_period must be positive")

	t := c.Timing
	check(t.SwitchPressTicks > 0, "timing.switch_press_ticks must be positive")
	check(t.SwitchReleaseTicks > 0, "timing.switch_release_ticks must be positive")
	check(t.SwitchSeed < t.SwitchPressTicks, "timing.switch_seed must be below switch_press_ticks")
	check(t.MaxHornOn > 0, "timing.max_horn_on must be positive")
	check(t.ConfigPresses > 0, "timing.config_presses must be positive")
	check(t.ConfigWindow > 0, "timing.config_window must be positive")

	return err
}
