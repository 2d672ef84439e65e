package bots

// Compile-time interface check.
var _ Strategy = (*TrendFollower)(nil)

// TrendFollower confirms a trend across three exponential moving averages.
// A fully ascending stack (fast above mid above slow) signals buy; a fully
// descending stack signals sell; a mixed stack holds.
type TrendFollower struct {
	fast, mid, slow int
}

// NewTrendFollower creates a TrendFollower. Zero spans default to 20/50/200.
func NewTrendFollower(fast, mid, slow int) *TrendFollower {
	if fast <= 0 {
		fast = 20
	}
	if mid <= 0 {
		mid = 50
	}
	if slow <= 0 {
		slow = 200
	}
	return &TrendFollower{fast: fast, mid: mid, slow: slow}
}

// Name returns "trend-follower".
func (s *TrendFollower) Name() string { return "trend-follower" }

// MinHistory returns the slowest span.
func (s *TrendFollower) MinHistory() int { return s.slow }

// Evaluate compares the three EMAs of the full series.
func (s *TrendFollower) Evaluate(t Tick) Signal {
	if len(t.Closes) < s.slow {
		return SignalHold
	}
	fast := ema(t.Closes, s.fast)
	mid := ema(t.Closes, s.mid)
	slow := ema(t.Closes, s.slow)
	switch {
	case fast > mid && mid > slow:
		return SignalBuy
	case fast < mid && mid < slow:
		return SignalSell
	}
	return SignalHold
}
