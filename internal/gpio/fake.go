package gpio

import (
	"errors"

	"github.com/sweeney/horn-controller/internal/logic"
)

// FakeBoard is a test double that returns scripted input samples and
// records every output command.
type FakeBoard struct {
	// Samples contains scripted input values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	Horn      bool
	HornOns   int // number of SetHorn(true) calls
	Red       bool
	Green     bool
	Threshold logic.Threshold
}

// NewFakeBoard creates a FakeBoard with the given samples.
func NewFakeBoard(samples []Sample) *FakeBoard {
	return &FakeBoard{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeBoard) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

func (f *FakeBoard) SetHorn(on bool) {
	if on && !f.Horn {
		f.HornOns++
	}
	f.Horn = on
}

func (f *FakeBoard) SetIndicator(id logic.Indicator, on bool) {
	if id == logic.IndicatorRed {
		f.Red = on
	} else {
		f.Green = on
	}
}

func (f *FakeBoard) SetThreshold(level logic.Threshold) {
	f.Threshold = level
}

// Close marks the board as closed and silences the horn.
func (f *FakeBoard) Close() error {
	f.Closed = true
	f.Horn = false
	return nil
}

// Reset resets the board to the beginning of samples.
func (f *FakeBoard) Reset() {
	f.index = 0
	f.Closed = false
}
