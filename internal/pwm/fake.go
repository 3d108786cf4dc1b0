package pwm

// Program is a single ProgramTone call.
type Program struct {
	Period  uint32
	Compare uint32
}

// FakeTone is a test double that records the waveform it is given.
type FakeTone struct {
	Programs []Program
	Enabled  bool
	Stops    int
	Closed   bool
}

func (f *FakeTone) ProgramTone(period, compare uint32) {
	f.Programs = append(f.Programs, Program{Period: period, Compare: compare})
	f.Enabled = true
}

func (f *FakeTone) StopTone() {
	f.Enabled = false
	f.Stops++
}

// Close stops the tone and marks the channel closed.
func (f *FakeTone) Close() error {
	f.Enabled = false
	f.Closed = true
	return nil
}

// Last returns the most recent program, or the zero value.
func (f *FakeTone) Last() Program {
	if len(f.Programs) == 0 {
		return Program{}
	}
	return f.Programs[len(f.Programs)-1]
}
