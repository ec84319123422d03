package testutils

import (
	"image"
	"image/color"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/vo/rimage"
)

// TexturedImage returns a gray image made of random blocks of blockSize pixels. The same seed
// always returns the same image.
func TexturedImage(w, h, blockSize int, seed uint64) *image.Gray {
	rnd := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for by := 0; by < h; by += blockSize {
		for bx := 0; bx < w; bx += blockSize {
			v := color.Gray{uint8(rnd.IntN(256))}
			for y := by; y < min(by+blockSize, h); y++ {
				for x := bx; x < min(bx+blockSize, w); x++ {
					img.SetGray(x, y, v)
				}
			}
		}
	}
	return img
}

// ShiftImage translates img by d, filling uncovered pixels with the nearest border value.
func ShiftImage(img *image.Gray, d image.Point) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			sx := min(max(x-d.X, 0), b.Dx()-1)
			sy := min(max(y-d.Y, 0), b.Dy()-1)
			out.SetGray(x, y, img.GrayAt(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return out
}

// WriteShiftedSequence writes n PNG frames to dir, frame i being base shifted by i*step, and
// returns their paths relative to dir.
func WriteShiftedSequence(t *testing.T, dir, subdir string, base *image.Gray, step image.Point, n int, name func(int) string) []string {
	t.Helper()
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		rel := filepath.Join(subdir, name(i))
		img := ShiftImage(base, step.Mul(i))
		WriteFile(t, dir, rel, "")
		test.That(t, rimage.SaveGray(img, filepath.Join(dir, rel)), test.ShouldBeNil)
		paths[i] = rel
	}
	return paths
}
