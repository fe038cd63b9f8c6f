package dist

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasTableNorm(t *testing.T) {
	a := NewAliasTable(4)
	a.ResetDist([]float64{1, 2, 3, 4}, nil, 4)
	assert.InDelta(t, 10.0, a.Norm(), 1e-9)
}

func TestAliasAndFTreeAgreeOnNorm(t *testing.T) {
	probs := []float64{0.5, 1.5, 2.0, 0.25, 3.1}
	a := NewAliasTable(len(probs))
	a.ResetDist(probs, nil, len(probs))
	f := NewFTree(len(probs))
	f.ResetDist(probs, nil, len(probs))
	assert.InDelta(t, a.Norm(), f.Norm(), 1e-9)
}

func TestAliasTableChiSquareUniform(t *testing.T) {
	const k = 8
	probs := make([]float64, k)
	for i := range probs {
		probs[i] = 1
	}
	a := NewAliasTable(k)
	a.ResetDist(probs, nil, k)

	rng := rand.New(rand.NewSource(7))
	const n = 200000
	counts := make([]int, k)
	for i := 0; i < n; i++ {
		u := rng.Float64() * a.Norm()
		counts[a.SampleFrom(u, rng)]++
	}

	expected := float64(n) / float64(k)
	var chi2 float64
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	// 7 degrees of freedom, p=0.01 critical value is ~18.48; a uniform
	// alias table sampled 200k times should sit well under that.
	assert.Less(t, chi2, 18.48, "alias table sampling deviates from uniform beyond chi-square bound")
}

func TestFTreeUpdateReflectsInSample(t *testing.T) {
	f := NewFTree(4)
	f.ResetDist([]float64{1, 1, 1, 1}, nil, 4)
	f.Update(0, 0)
	require.Equal(t, float64(3), f.Norm())
	// With bin 0 zeroed, sampling anywhere in [0, Norm()) must never land
	// on bin 0.
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		u := rng.Float64() * f.Norm()
		assert.NotEqual(t, int32(0), f.SampleFrom(u, rng))
	}
}

func TestResampleFromCorrection(t *testing.T) {
	// f = [1,1,1,1], excluded=1, delta=1 => target g = f - 1*[k=1]
	// = [1,0,1,1], normalized over {0,2,3}.
	probs := []float64{1, 1, 1, 1}
	a := NewAliasTable(len(probs))
	a.ResetDist(probs, nil, len(probs))

	rng := rand.New(rand.NewSource(3))
	const n = 100000
	counts := make([]int, len(probs))
	for i := 0; i < n; i++ {
		u := rng.Float64() * a.Norm()
		correction := 1.0 / 1.0 // delta / f(excluded) with f(1) == 1
		k := a.ResampleFrom(u, rng, 1, correction)
		counts[k]++
	}
	assert.Equal(t, 0, counts[1], "excluded topic must never be returned once rejected")
	for _, idx := range []int{0, 2, 3} {
		frac := float64(counts[idx]) / float64(n)
		assert.InDelta(t, 1.0/3.0, frac, 0.02, "remaining mass should redistribute uniformly")
	}
}

func TestCumulativeDistSparse(t *testing.T) {
	c := NewCumulativeDist(8)
	c.ResetDist([]float64{2, 3}, []int32{5, 7}, 2)
	assert.InDelta(t, 5.0, c.Norm(), 1e-9)
	assert.Equal(t, int32(5), c.SampleFrom(0, nil))
	assert.Equal(t, int32(7), c.SampleFrom(4.9, nil))
}

func TestFlatDistDenseAndSparse(t *testing.T) {
	f := NewFlatDist(4)
	f.ResetDist([]float64{1, 1, 1, 1}, nil, 4, 4)
	assert.InDelta(t, 4.0, f.Norm(), 1e-9)

	f.ResetDist([]float64{2, 3}, []int32{1, 3}, 2, 4)
	assert.InDelta(t, 5.0, f.Norm(), 1e-9)
	assert.Equal(t, int32(1), f.SampleFrom(0, nil))
	assert.Equal(t, int32(3), f.SampleFrom(4.9, nil))
}
