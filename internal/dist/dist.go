// Package dist implements the discrete-distribution samplers shared by
// every LDA sampling kernel: Walker's alias method, an F+ tree, a plain
// cumulative distribution, and a thin dispatcher (FlatDist) that picks
// between a dense cumulative array and a CumulativeDist depending on
// whether the support spans all K topics. The alias table, F+ tree and
// cumulative distribution share the same reset/build/sample/resample
// shape, so a sampling kernel can swap accelMethod without touching its
// call sites; FlatDist has no ResampleFrom and its ResetDist also takes K.
package dist

import "math/rand"

// Sampler is the capability every discrete-distribution primitive in
// this package implements.
type Sampler interface {
	// Norm returns the pre-normalization mass of the distribution as it
	// was last built — the sum of the probability vector passed to
	// ResetDist, not 1.
	Norm() float64
	// SampleFrom draws an outcome given a uniform draw u in [0, Norm()).
	SampleFrom(u float64, rng *rand.Rand) int32
}

// Resampler is implemented by the alias and cumulative variants: they
// can apply a "-1 adjustment" rejection correction without rebuilding
// the distribution.
type Resampler interface {
	Sampler
	// ResampleFrom draws from f - correction*f(excluded)*[k=excluded]
	// without mutating the underlying distribution: if the initial draw
	// lands on excluded, it is rejected with probability correction and
	// the draw repeats with a fresh uniform from rng.
	ResampleFrom(u float64, rng *rand.Rand, excluded int32, correction float64) int32
}

// rejectLoop implements the exact -1 correction: sample k ~ f using the
// caller-supplied uniform u for the first draw, and if
// k == excluded, redraw (via a fresh rng.Float64 scaled to [0, norm))
// with probability correction.
func rejectLoop(u float64, rng *rand.Rand, norm float64, excluded int32, correction float64, draw func(u float64) int32) int32 {
	for {
		k := draw(u)
		if k != excluded {
			return k
		}
		if rng.Float64() >= correction {
			return k
		}
		// Rejected: loop and redraw with a fresh uniform.
		u = rng.Float64() * norm
	}
}
