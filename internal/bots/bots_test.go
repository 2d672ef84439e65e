package bots

import (
	"math"
	"testing"
)

func flat(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestMomentumSignals(t *testing.T) {
	m := NewMomentum(0.001)
	cases := []struct {
		name   string
		closes []float64
		want   Signal
	}{
		{"upward move beyond band", []float64{100, 100.2}, SignalBuy},
		{"downward move beyond band", []float64{100, 99.8}, SignalSell},
		{"move inside band", []float64{100, 100.05}, SignalHold},
		{"too little history", []float64{100}, SignalHold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Evaluate(Tick{Symbol: "AAPL", Closes: tc.closes})
			if got != tc.want {
				t.Errorf("signal = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMeanReversionSignals(t *testing.T) {
	m := NewMeanReversion(20, 2, 1.5)

	// 19 closes oscillating around 100, then an extreme final close.
	base := make([]float64, 19)
	for i := range base {
		if i%2 == 0 {
			base[i] = 99
		} else {
			base[i] = 101
		}
	}

	deepDrop := append(append([]float64{}, base...), 80)
	if got := m.Evaluate(Tick{Closes: deepDrop}); got != SignalBuy {
		t.Errorf("deep drop signal = %q, want buy", got)
	}

	spike := append(append([]float64{}, base...), 120)
	if got := m.Evaluate(Tick{Closes: spike}); got != SignalSell {
		t.Errorf("spike signal = %q, want sell", got)
	}

	nearMean := append(append([]float64{}, base...), 100.5)
	if got := m.Evaluate(Tick{Closes: nearMean}); got != SignalHold {
		t.Errorf("near-mean signal = %q, want hold", got)
	}

	// A flat window has zero deviation; no z-score exists.
	if got := m.Evaluate(Tick{Closes: flat(20, 100)}); got != SignalHold {
		t.Errorf("flat window signal = %q, want hold", got)
	}

	if got := m.Evaluate(Tick{Closes: flat(5, 100)}); got != SignalHold {
		t.Errorf("short history signal = %q, want hold", got)
	}
}

func TestTrendFollowerSignals(t *testing.T) {
	s := NewTrendFollower(20, 50, 200)

	rising := make([]float64, 250)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	if got := s.Evaluate(Tick{Closes: rising}); got != SignalBuy {
		t.Errorf("rising trend signal = %q, want buy", got)
	}

	falling := make([]float64, 250)
	for i := range falling {
		falling[i] = 400 - float64(i)
	}
	if got := s.Evaluate(Tick{Closes: falling}); got != SignalSell {
		t.Errorf("falling trend signal = %q, want sell", got)
	}

	if got := s.Evaluate(Tick{Closes: flat(250, 100)}); got != SignalHold {
		t.Errorf("flat trend signal = %q, want hold", got)
	}

	if got := s.Evaluate(Tick{Closes: rising[:100]}); got != SignalHold {
		t.Errorf("short history signal = %q, want hold", got)
	}
}

func TestVolatilityHunterSignals(t *testing.T) {
	v := NewVolatilityHunter(20, 50, 1.5)

	// Quiet tape with mild noise, then a single violent close at a fresh
	// high: the spike dominates the 20-day return volatility far more than
	// the 50-day baseline.
	closes := make([]float64, 0, v.MinHistory())
	price := 100.0
	for len(closes) < v.MinHistory()-1 {
		if len(closes)%2 == 0 {
			price += 0.05
		} else {
			price -= 0.05
		}
		closes = append(closes, price)
	}
	closes = append(closes, price*1.10)
	if got := v.Evaluate(Tick{Closes: closes}); got != SignalBuy {
		t.Errorf("breakout signal = %q, want buy", got)
	}

	// Same tape but the final close stays inside the range: no signal.
	noBreakout := append([]float64{}, closes...)
	noBreakout[len(noBreakout)-1] = noBreakout[len(noBreakout)-3]
	if got := v.Evaluate(Tick{Closes: noBreakout}); got != SignalHold {
		t.Errorf("no-breakout signal = %q, want hold", got)
	}

	// Quiet tape end to end: no expansion.
	quiet := make([]float64, v.MinHistory())
	for i := range quiet {
		if i%2 == 0 {
			quiet[i] = 100.05
		} else {
			quiet[i] = 99.95
		}
	}
	if got := v.Evaluate(Tick{Closes: quiet}); got != SignalHold {
		t.Errorf("quiet tape signal = %q, want hold", got)
	}

	if got := v.Evaluate(Tick{Closes: flat(10, 100)}); got != SignalHold {
		t.Errorf("short history signal = %q, want hold", got)
	}
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	want := []string{"mean-reversion", "momentum", "trend-follower", "volatility-hunter"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if _, ok := r.Get("momentum"); !ok {
		t.Error("Get(momentum) not found")
	}
	if _, ok := r.Get("nonexistent"); ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestSeriesHelpers(t *testing.T) {
	if got := mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("mean = %v, want 2.5", got)
	}
	if got := stddev([]float64{2, 2, 2}); got != 0 {
		t.Errorf("stddev of constant = %v, want 0", got)
	}
	if got := stddev([]float64{1, 3}); math.Abs(got-1) > 1e-12 {
		t.Errorf("stddev = %v, want 1", got)
	}
	changes := pctChanges([]float64{100, 110, 99})
	if len(changes) != 2 || math.Abs(changes[0]-0.1) > 1e-12 || math.Abs(changes[1]+0.1) > 1e-12 {
		t.Errorf("pctChanges = %v, want [0.1 -0.1]", changes)
	}
}
