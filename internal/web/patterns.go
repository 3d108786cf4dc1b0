package web

import (
	"encoding/json"

	"github.com/sweeney/horn-controller/internal/logic"
)

// patternJSON is one entry of the tone table with its register values.
type patternJSON struct {
	Name       string     `json:"name"`
	DurationMs uint32     `json:"duration_ms"`
	Steps      []stepJSON `json:"steps"`
}

type stepJSON struct {
	DurationMs  uint32 `json:"duration_ms"`
	FrequencyHz uint16 `json:"frequency_hz"`
	DutyPercent uint8  `json:"duty_percent"`
	Period      uint32 `json:"period"`
	Compare     uint32 `json:"compare"`
}

type patternsJSON struct {
	ClockHz   uint32        `json:"clock_hz"`
	Prescaler uint32        `json:"prescaler"`
	Patterns  []patternJSON `json:"patterns"`
}

// patternTable resolves every pattern against the running tuning and
// computes the period/compare pair the sequencer programs for each step.
func patternTable(tb logic.ToneTimebase, timing logic.Timing) patternsJSON {
	out := patternsJSON{ClockHz: tb.ClockHz, Prescaler: tb.Prescaler}
	for _, id := range logic.Patterns() {
		p := timing.Pattern(id)
		entry := patternJSON{Name: id.String(), DurationMs: p.Duration(), Steps: []stepJSON{}}
		for _, st := range p {
			if st.DurationMs == 0 {
				break
			}
			period := tb.Period(st.FrequencyHz)
			entry.Steps = append(entry.Steps, stepJSON{
				DurationMs:  st.DurationMs,
				FrequencyHz: st.FrequencyHz,
				DutyPercent: st.DutyPercent,
				Period:      period,
				Compare:     logic.Compare(period, st.DutyPercent),
			})
		}
		out.Patterns = append(out.Patterns, entry)
	}
	return out
}

func formatPatterns(tb logic.ToneTimebase, timing logic.Timing) []byte {
	data, _ := json.MarshalIndent(patternTable(tb, timing), "", "  ")
	return data
}
