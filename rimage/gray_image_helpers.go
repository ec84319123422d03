// Package rimage holds the image decoding and grayscale helpers used by the feature pipeline.
package rimage

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// SameImgSize compares image.Grays to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Size() == g2.Bounds().Size()
}

// MakeGray converts any image to an 8-bit gray image whose bounds start at the origin.
func MakeGray(pic image.Image) *image.Gray {
	if gray, ok := pic.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	bounds := pic.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), pic, bounds.Min, draw.Src)
	return result
}

// NewGrayImageFromFile decodes the image at path and returns its gray version.
func NewGrayImageFromFile(fn string) (*image.Gray, error) {
	img, err := imaging.Open(filepath.Clean(fn), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", fn)
	}
	return MakeGray(img), nil
}

// SaveGray writes a gray image to fn; the encoder is picked from the file extension.
func SaveGray(img *image.Gray, fn string) error {
	return imaging.Save(img, filepath.Clean(fn))
}

// GaussianBlurGray smooths a gray image with a gaussian of standard deviation sigma.
func GaussianBlurGray(img *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return img
	}
	return MakeGray(imaging.Blur(img, sigma))
}

// GrayAtClamped returns the gray value at (x, y), replicating the border for points outside.
func GrayAtClamped(img *image.Gray, x, y int) uint8 {
	b := img.Bounds()
	x = min(max(x, b.Min.X), b.Max.X-1)
	y = min(max(y, b.Min.Y), b.Max.Y-1)
	return img.GrayAt(x, y).Y
}

// NewUniformGray returns a w x h gray image filled with value.
func NewUniformGray(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Gray{value}}, image.Point{}, draw.Src)
	return img
}
