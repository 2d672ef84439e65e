package bots

// Compile-time interface check.
var _ Strategy = (*VolatilityHunter)(nil)

// VolatilityHunter buys breakouts during volatility expansions: when the
// recent return volatility exceeds its longer-run average by an expansion
// factor AND the latest close breaks above the prior lookback high. It never
// signals sell; exits are left to whatever strategy shares the account.
type VolatilityHunter struct {
	volWindow int     // window for realized volatility of daily returns
	baseline  int     // longer window the volatility is compared against
	expansion float64 // required ratio of recent vol to baseline vol
}

// NewVolatilityHunter creates a VolatilityHunter. Zero values default to a
// 20-day volatility window, a 50-day baseline, and a 1.5x expansion.
func NewVolatilityHunter(volWindow, baseline int, expansion float64) *VolatilityHunter {
	if volWindow <= 0 {
		volWindow = 20
	}
	if baseline <= 0 {
		baseline = 50
	}
	if expansion <= 0 {
		expansion = 1.5
	}
	return &VolatilityHunter{volWindow: volWindow, baseline: baseline, expansion: expansion}
}

// Name returns "volatility-hunter".
func (v *VolatilityHunter) Name() string { return "volatility-hunter" }

// MinHistory returns enough closes to fill the baseline window of returns
// plus the breakout lookback.
func (v *VolatilityHunter) MinHistory() int { return v.baseline + v.volWindow + 1 }

// Evaluate signals buy only when both the expansion and breakout conditions
// hold.
func (v *VolatilityHunter) Evaluate(t Tick) Signal {
	if len(t.Closes) < v.MinHistory() {
		return SignalHold
	}
	returns := pctChanges(t.Closes)

	recent := stddev(returns[len(returns)-v.volWindow:])
	base := stddev(returns[len(returns)-v.baseline:])
	if base <= 0 || recent < base*v.expansion {
		return SignalHold
	}

	// Breakout: latest close above the high of the prior volWindow closes.
	latest := t.Latest()
	prior := t.Closes[len(t.Closes)-1-v.volWindow : len(t.Closes)-1]
	for _, c := range prior {
		if latest <= c {
			return SignalHold
		}
	}
	return SignalBuy
}
