// Package distributions provides the single RNG stream each simulation owns.
package distributions

import "math/rand"

// Generator wraps a private *rand.Rand so a simulation's randomness is
// single-owner (the orchestrator) rather than drawn from the global source.
// This keeps two runs with the same seed reproducible regardless of what
// else is running in the process, per the determinism law in spec.md §8.
type Generator struct {
	r *rand.Rand
}

// New returns a Generator seeded deterministically from seed.
func New(seed int64) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed))}
}

// Exponential draws from Exp(rate). rate is in the same units the caller
// is working in (e.g. cars/minute, yielding an inter-arrival time in
// minutes); callers convert units themselves.
func (g *Generator) Exponential(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return g.r.ExpFloat64() / rate
}

// Gaussian draws from N(mean, std^2). std <= 0 returns mean exactly.
func (g *Generator) Gaussian(mean, std float64) float64 {
	if std <= 0 {
		return mean
	}
	return mean + g.r.NormFloat64()*std
}

// Uniform draws a float64 uniformly from [lo, hi).
func (g *Generator) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Float64()*(hi-lo)
}

// UniformInt draws an int uniformly from [lo, hi].
func (g *Generator) UniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Intn(hi-lo+1)
}

// Float64 draws uniformly from [0, 1), exposed for callers implementing
// their own selection logic (e.g. the random assignment policy).
func (g *Generator) Float64() float64 {
	return g.r.Float64()
}
