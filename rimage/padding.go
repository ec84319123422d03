package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// BorderPad is used to define the type of padding on an image.
type BorderPad int

// The available padding modes.
const (
	BorderConstant BorderPad = iota // 0-padding
	BorderReplicate
	BorderReflect
)

// PaddingGray pads a gray image so that a kernel of size kernelSize anchored at anchor can
// visit every pixel of img.
func PaddingGray(img *image.Gray, kernelSize, anchor image.Point, border BorderPad) (*image.Gray, error) {
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v must be inside a kernel of size %v", anchor, kernelSize)
	}
	src := MakeGray(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("cannot pad an empty image")
	}
	left, top := anchor.X, anchor.Y
	right, bottom := kernelSize.X-anchor.X-1, kernelSize.Y-anchor.Y-1
	padded := image.NewGray(image.Rect(0, 0, w+left+right, h+top+bottom))

	var mapCoord func(v, n int) (int, bool)
	switch border {
	case BorderConstant:
		mapCoord = func(v, n int) (int, bool) {
			return v, v >= 0 && v < n
		}
	case BorderReplicate:
		mapCoord = func(v, n int) (int, bool) {
			return min(max(v, 0), n-1), true
		}
	case BorderReflect:
		mapCoord = func(v, n int) (int, bool) {
			if n == 1 {
				return 0, true
			}
			period := 2 * n
			v %= period
			if v < 0 {
				v += period
			}
			if v >= n {
				v = period - v - 1
			}
			return v, true
		}
	default:
		return nil, errors.Errorf("unknown border type %d", border)
	}

	for y := 0; y < padded.Bounds().Dy(); y++ {
		srcY, okY := mapCoord(y-top, h)
		for x := 0; x < padded.Bounds().Dx(); x++ {
			srcX, okX := mapCoord(x-left, w)
			if okX && okY {
				padded.Pix[y*padded.Stride+x] = src.Pix[srcY*src.Stride+srcX]
			}
		}
	}
	return padded, nil
}
