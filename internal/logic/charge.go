package logic

// ChargeMonitor handles the outputs while external power is present:
// the horn is held off and the red LED mirrors the charger status line.
type ChargeMonitor struct {
	out Outputs
}

// NewChargeMonitor creates a charge monitor driving out.
func NewChargeMonitor(out Outputs) *ChargeMonitor {
	return &ChargeMonitor{out: out}
}

// Update applies the charging outputs. It is level driven and runs on every
// loop iteration while charging, not only on tick edges. The red LED is left
// alone unless ownRed is set.
func (c *ChargeMonitor) Update(fault, ownRed bool) {
	c.out.SetHorn(false)
	if ownRed {
		c.out.SetIndicator(IndicatorRed, fault)
	}
}
