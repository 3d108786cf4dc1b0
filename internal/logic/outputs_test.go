package logic

// recorder is an Outputs that remembers every command.
type recorder struct {
	horn       bool
	hornOnes   int // number of SetHorn(true) calls
	tonePeriod uint32
	toneCmp    uint32
	toneOn     bool
	programs   int
	red        bool
	redWrites  []bool
	green      bool
	threshold  Threshold
	thresholds []Threshold
}

func (r *recorder) SetHorn(on bool) {
	r.horn = on
	if on {
		r.hornOnes++
	}
}

func (r *recorder) ProgramTone(period, compare uint32) {
	r.tonePeriod = period
	r.toneCmp = compare
	r.toneOn = true
	r.programs++
}

func (r *recorder) StopTone() {
	r.toneOn = false
}

func (r *recorder) SetIndicator(id Indicator, on bool) {
	if id == IndicatorRed {
		r.red = on
		r.redWrites = append(r.redWrites, on)
	} else {
		r.green = on
	}
}

func (r *recorder) SetThreshold(level Threshold) {
	r.threshold = level
	r.thresholds = append(r.thresholds, level)
}
