// Package bots provides the paper-trading strategies and the runner that
// turns their signals into ledger orders. Strategies are pure functions of
// a close-price series; cash and holding guards live in the runner so every
// strategy gets them uniformly.
package bots

import (
	"math"
	"sort"
)

// Signal is a strategy's verdict for one evaluation.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Tick is the market view a strategy evaluates: the daily close series for
// its symbol, oldest first, with the newest close last.
type Tick struct {
	Symbol string
	Closes []float64
}

// Latest returns the newest close, or 0 when the series is empty.
func (t Tick) Latest() float64 {
	if len(t.Closes) == 0 {
		return 0
	}
	return t.Closes[len(t.Closes)-1]
}

// Strategy produces a trading signal from a close series.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// MinHistory returns how many closes Evaluate needs to produce a
	// meaningful signal. The runner holds when fewer are available.
	MinHistory() int

	// Evaluate inspects the close series and returns a signal.
	Evaluate(t Tick) Signal
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates a Registry pre-populated with the built-in strategies
// at their default parameters.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(NewMomentum(0.001))
	r.Register(NewMeanReversion(20, 2, 1.5))
	r.Register(NewTrendFollower(20, 50, 200))
	r.Register(NewVolatilityHunter(20, 50, 1.5))
	return r
}

// Register adds a strategy, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value reports whether
// the strategy is registered.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Series helpers shared by the built-in strategies
// ---------------------------------------------------------------------------

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// ema computes an exponential moving average with smoothing 2/(span+1),
// seeded from the first value, and returns the final value.
func ema(values []float64, span int) float64 {
	if len(values) == 0 {
		return 0
	}
	alpha := 2.0 / (float64(span) + 1)
	v := values[0]
	for _, c := range values[1:] {
		v = alpha*c + (1-alpha)*v
	}
	return v
}

// pctChanges returns the day-over-day fractional changes of the series.
func pctChanges(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-prev)/prev)
	}
	return out
}
