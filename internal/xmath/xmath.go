// Package xmath provides generic numerical helpers. Within this module
// only Sum is called, by the VMBLP partitioner's histogram sampler.
package xmath

import "golang.org/x/exp/constraints"

// Number is a constraint over comparable numeric types.
type Number interface {
	constraints.Float | constraints.Integer
}

// Sum returns the sum of s, or zero for an empty slice.
func Sum[S ~[]N, N Number](s S) N {
	var total N
	for _, v := range s {
		total += v
	}
	return total
}

// Max returns the maximal value in s, or the zero value for an empty slice.
func Max[S ~[]N, N constraints.Ordered](s S) N {
	if len(s) == 0 {
		var zero N
		return zero
	}
	m := s[0]
	for _, v := range s[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// ArgMax returns the index of the maximal value in s, or -1 if s is empty.
// Ties resolve to the first occurrence.
func ArgMax[S ~[]E, E constraints.Ordered](s S) int {
	if len(s) == 0 {
		return -1
	}
	imax, max := 0, s[0]
	for i, v := range s {
		if v > max {
			imax, max = i, v
		}
	}
	return imax
}

// Clamp restricts v to [lo, hi].
func Clamp[N constraints.Ordered](v, lo, hi N) N {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
