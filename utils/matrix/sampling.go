// Package matrix contains sampling helpers used to build descriptor patterns.
package matrix

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleNIntegersNormal samples n integers from normal distribution centered around (vMax+vMin) / 2
// and in range [vMin, vMax]. A nil src uses the global random source.
func SampleNIntegersNormal(n int, vMin, vMax float64, src rand.Source) []int {
	// get normal distribution centered on (vMax+vMin) / 2 and whose sampled are mostly in [vMin, vMax] (var=0.1)
	dist := distuv.Normal{
		Mu:    (vMax + vMin) / 2,
		Sigma: (vMax - vMin) * 0.4472,
		Src:   src,
	}
	return sampleInRange(n, vMin, vMax, dist.Rand)
}

// SampleNIntegersUniform samples n integers uniformly in [vMin, vMax]. A nil src uses the global
// random source.
func SampleNIntegersUniform(n int, vMin, vMax float64, src rand.Source) []int {
	dist := distuv.Uniform{
		Min: vMin,
		Max: vMax,
		Src: src,
	}
	return sampleInRange(n, vMin, vMax, dist.Rand)
}

// SampleNRegularlySpaced returns n integers regularly spaced in [vMin, vMax].
func SampleNRegularlySpaced(n int, vMin, vMax float64) []int {
	z := make([]int, n)
	if n == 1 {
		z[0] = int(math.Round((vMin + vMax) / 2))
		return z
	}
	step := (vMax - vMin) / float64(n-1)
	for i := range z {
		z[i] = int(math.Round(vMin + float64(i)*step))
	}
	return z
}

func sampleInRange(n int, vMin, vMax float64, draw func() float64) []int {
	z := make([]int, n)
	for i := range z {
		val := math.Round(draw())
		for val < vMin || val > vMax {
			val = math.Round(draw())
		}
		z[i] = int(val)
	}
	return z
}
