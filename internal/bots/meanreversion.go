package bots

// Compile-time interface check.
var _ Strategy = (*MeanReversion)(nil)

// MeanReversion trades Bollinger-band reversals: it computes a z-score of
// the latest close against the band midline and buys deep below the band,
// sells far above it.
type MeanReversion struct {
	period    int     // lookback for the midline and deviation
	bandWidth float64 // standard deviations per band
	entry     float64 // z-score magnitude that triggers a trade
}

// NewMeanReversion creates a MeanReversion strategy. Zero values default to
// a 20-day band at 2 standard deviations with entry at |z| > 1.5.
func NewMeanReversion(period int, bandWidth, entry float64) *MeanReversion {
	if period <= 0 {
		period = 20
	}
	if bandWidth <= 0 {
		bandWidth = 2
	}
	if entry <= 0 {
		entry = 1.5
	}
	return &MeanReversion{period: period, bandWidth: bandWidth, entry: entry}
}

// Name returns "mean-reversion".
func (m *MeanReversion) Name() string { return "mean-reversion" }

// MinHistory returns the band lookback.
func (m *MeanReversion) MinHistory() int { return m.period }

// Evaluate computes z = (close - midline) / (upper - midline) over the
// lookback window. A flat window (zero deviation) holds.
func (m *MeanReversion) Evaluate(t Tick) Signal {
	if len(t.Closes) < m.period {
		return SignalHold
	}
	window := t.Closes[len(t.Closes)-m.period:]
	middle := mean(window)
	dev := stddev(window)
	if dev <= 0 {
		return SignalHold
	}
	z := (t.Latest() - middle) / (m.bandWidth * dev)
	switch {
	case z < -m.entry:
		return SignalBuy
	case z > m.entry:
		return SignalSell
	}
	return SignalHold
}
