package keypoints

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/vo/rimage"
	"go.viam.com/vo/utils/matrix"
)

// SamplingType stores 0 if a sampling of image points for BRIEF is uniform, 1 if gaussian, 2 if fixed.
type SamplingType int

// The available sampling patterns.
const (
	SamplingUniform SamplingType = iota // 0
	SamplingNormal                      // 1
	SamplingFixed                       // 2
)

// briefBlurSigma is the gaussian smoothing applied before sampling intensity pairs.
const briefBlurSigma = 2.0

// SamplePairs are N pairs of points used to create the BRIEF Descriptors of a patch.
type SamplePairs struct {
	P0 []image.Point
	P1 []image.Point
	N  int
}

// GenerateSamplePairs generates n samples for a patch size with the chosen Sampling Type.
// A nil src uses the global random source; fixed sampling is deterministic.
func GenerateSamplePairs(dist SamplingType, n, patchSize int, src rand.Source) *SamplePairs {
	var xs0, ys0, xs1, ys1 []int
	if dist == SamplingFixed {
		xs0 = sampleIntegers(patchSize, n, dist, src)
		ys0 = sampleIntegers(patchSize, n, dist, src)
		xs1 = sampleIntegers(patchSize, n, dist, src)
		ys1 = make([]int, 0, n)
		for i := 0; i < n; i++ {
			ys1 = append(ys1, -ys0[i])
			if i%2 == 0 {
				xs0[i] = 2 * xs0[i] / 3
				xs1[i] = -2 * xs1[i] / 3
				ys1[i] = ys0[i]
			}
		}
	} else {
		xs0 = sampleIntegers(patchSize, n, dist, src)
		ys0 = sampleIntegers(patchSize, n, dist, src)
		xs1 = sampleIntegers(patchSize, n, dist, src)
		ys1 = sampleIntegers(patchSize, n, dist, src)
	}
	p0 := make([]image.Point, 0, n)
	p1 := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		p0 = append(p0, image.Point{X: xs0[i], Y: ys0[i]})
		p1 = append(p1, image.Point{X: xs1[i], Y: ys1[i]})
	}

	return &SamplePairs{P0: p0, P1: p1, N: n}
}

func sampleIntegers(patchSize, n int, sampling SamplingType, src rand.Source) []int {
	vMin := math.Round(-(float64(patchSize) - 2) / 2.)
	vMax := math.Round(float64(patchSize) / 2.)
	switch sampling {
	case SamplingUniform:
		return matrix.SampleNIntegersUniform(n, vMin, vMax, src)
	case SamplingNormal:
		return matrix.SampleNIntegersNormal(n, vMin, vMax, src)
	case SamplingFixed:
		return matrix.SampleNRegularlySpaced(n, vMin, vMax)
	default:
		return matrix.SampleNIntegersUniform(n, vMin, vMax, src)
	}
}

// BRIEFConfig stores the parameters.
type BRIEFConfig struct {
	N              int          `json:"n"` // number of samples taken
	Sampling       SamplingType `json:"sampling"`
	UseOrientation bool         `json:"use_orientation"`
	PatchSize      int          `json:"patch_size"`
}

// Validate ensures all parts of the BRIEFConfig are valid.
func (config *BRIEFConfig) Validate(path string) error {
	if config.N <= 0 || config.N%64 != 0 {
		return goutils.NewConfigValidationError(path, errors.New("n should be a positive multiple of 64"))
	}
	if config.PatchSize < 4 {
		return goutils.NewConfigValidationError(path, errors.New("patch_size should be >= 4"))
	}
	if config.Sampling < SamplingUniform || config.Sampling > SamplingFixed {
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown sampling %d", config.Sampling))
	}
	return nil
}

// ComputeBRIEFDescriptors computes BRIEF descriptors on image img at keypoints kps.
// Keypoints whose patch does not fit in the image get an all zero descriptor.
func ComputeBRIEFDescriptors(img *image.Gray, sp *SamplePairs, kps *FASTKeypoints, cfg *BRIEFConfig) (Descriptors, error) {
	if sp.N%64 != 0 || sp.N != len(sp.P0) || sp.N != len(sp.P1) {
		return nil, errors.Errorf("invalid sample pairs: n=%d, p0=%d, p1=%d", sp.N, len(sp.P0), len(sp.P1))
	}
	if cfg.UseOrientation && kps.IsOriented() && len(kps.Orientations) != len(kps.Points) {
		return nil, errors.Errorf("got %d orientations for %d keypoints", len(kps.Orientations), len(kps.Points))
	}
	blurred := rimage.GaussianBlurGray(rimage.MakeGray(img), briefBlurSigma)

	descs := make(Descriptors, len(kps.Points))
	for k, kp := range kps.Points {
		// Divide by 64 since we store a descriptor as a uint64 array.
		descriptor := make(Descriptor, sp.N/64)
		if !PatchInBounds(blurred.Bounds(), kp, cfg.PatchSize) {
			descs[k] = descriptor
			continue
		}
		cosTheta := 1.0
		sinTheta := 0.0
		if cfg.UseOrientation && kps.IsOriented() {
			angle := kps.Orientations[k]
			cosTheta = math.Cos(angle)
			sinTheta = math.Sin(angle)
		}
		for i := 0; i < sp.N; i++ {
			x0, y0 := float64(sp.P0[i].X), float64(sp.P0[i].Y)
			x1, y1 := float64(sp.P1[i].X), float64(sp.P1[i].Y)
			// compute rotated sampled coordinates (Identity matrix if no orientation s)
			outx0 := int(math.Round(cosTheta*x0 - sinTheta*y0))
			outy0 := int(math.Round(sinTheta*x0 + cosTheta*y0))
			outx1 := int(math.Round(cosTheta*x1 - sinTheta*y1))
			outy1 := int(math.Round(sinTheta*x1 + cosTheta*y1))
			p0Val := rimage.GrayAtClamped(blurred, kp.X+outx0, kp.Y+outy0)
			p1Val := rimage.GrayAtClamped(blurred, kp.X+outx1, kp.Y+outy1)
			if p0Val > p1Val {
				// This flips the bit at i%64 of word i/64 to 1.
				descriptor[i/64] |= 1 << (i % 64)
			}
		}
		descs[k] = descriptor
	}
	return descs, nil
}

// PatchInBounds returns true if the square patch of side patchSize centered on kp lies in bounds.
func PatchInBounds(bounds image.Rectangle, kp image.Point, patchSize int) bool {
	halfSize := patchSize / 2
	corners := []image.Point{
		{kp.X + halfSize, kp.Y + halfSize},
		{kp.X + halfSize, kp.Y - halfSize},
		{kp.X - halfSize, kp.Y + halfSize},
		{kp.X - halfSize, kp.Y - halfSize},
	}
	for _, c := range corners {
		if !c.In(bounds) {
			return false
		}
	}
	return true
}
