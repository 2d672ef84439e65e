package bots

// Compile-time interface check.
var _ Strategy = (*Momentum)(nil)

// Momentum buys when the latest close rises above the previous close by more
// than a fractional band, and sells when it falls below by the same band.
// Moves inside the band produce no signal.
type Momentum struct {
	band float64 // e.g. 0.001 for 0.1%
}

// NewMomentum creates a Momentum strategy with the given band. A band of 0
// defaults to 0.1%.
func NewMomentum(band float64) *Momentum {
	if band <= 0 {
		band = 0.001
	}
	return &Momentum{band: band}
}

// Name returns "momentum".
func (m *Momentum) Name() string { return "momentum" }

// MinHistory returns 2: the latest and previous closes.
func (m *Momentum) MinHistory() int { return 2 }

// Evaluate compares the last two closes against the band.
func (m *Momentum) Evaluate(t Tick) Signal {
	n := len(t.Closes)
	if n < 2 {
		return SignalHold
	}
	latest, previous := t.Closes[n-1], t.Closes[n-2]
	if previous <= 0 {
		return SignalHold
	}
	switch {
	case latest > previous*(1+m.band):
		return SignalBuy
	case latest < previous*(1-m.band):
		return SignalSell
	}
	return SignalHold
}
