package logic

// Timing holds every tuning constant of the controller, in ticks (≈1 ms).
type Timing struct {
	// Debounced switch
	SwitchPressTicks   uint8 `yaml:"switch_press_ticks"`   // consecutive active ticks to latch "pressed"
	SwitchReleaseTicks uint8 `yaml:"switch_release_ticks"` // consecutive inactive ticks to latch "released"
	SwitchSeed         uint8 `yaml:"switch_seed"`          // initial counter value, biases the first press

	// Low-voltage guard
	KillTimeout        uint16 `yaml:"kill_timeout"`          // window after power-up in which a trip means DEAD
	LowBatteryDetect   uint16 `yaml:"low_battery_detect"`    // net tripped ticks while honking before the sticky flag is set
	WaitLowBatteryBeep uint16 `yaml:"wait_low_battery_beep"` // idle delay before the end-of-life beep
	MaxHornOn          uint16 `yaml:"max_horn_on"`           // longest continuous honk
	CommitDebounce     uint16 `yaml:"commit_debounce"`       // hold time before a press drives the horn
	MiniHonkExtension  uint16 `yaml:"mini_honk_extension"`   // full-duty tone after release in MINI mode

	// Configuration latch
	ConfigPresses      uint8  `yaml:"config_presses"`       // press edges required to toggle the mode
	ConfigWindow       uint16 `yaml:"config_window"`        // rolling window re-armed by every press
	ConfigChangedFlash uint16 `yaml:"config_changed_flash"` // both LEDs on after a toggle
	ConfigModeFeedback uint16 `yaml:"config_mode_feedback"` // mode-specific blink after the flash
}

// DefaultTiming returns the production tuning.
func DefaultTiming() Timing {
	return Timing{
		SwitchPressTicks:   15,
		SwitchReleaseTicks: 15,
		SwitchSeed:         14,

		KillTimeout:        10,
		LowBatteryDetect:   100,
		WaitLowBatteryBeep: 100,
		MaxHornOn:          10000,
		CommitDebounce:     40,
		MiniHonkExtension:  3,

		ConfigPresses:      5,
		ConfigWindow:       2000,
		ConfigChangedFlash: 1000,
		ConfigModeFeedback: 2000,
	}
}
