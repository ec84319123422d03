package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// minPyramidSize is the smallest side an octave may have.
const minPyramidSize = 32

// ImagePyramid stores the octaves of an image and their scale relative to the base image.
type ImagePyramid struct {
	Images []*image.Gray
	Scales []float64
}

// GetImagePyramid downscales img by downscaleFactor until the image gets smaller than
// minPyramidSize or nLevels octaves are built. nLevels <= 0 builds every possible octave.
func GetImagePyramid(img *image.Gray, nLevels int, downscaleFactor float64) (*ImagePyramid, error) {
	if downscaleFactor <= 1 {
		return nil, errors.Errorf("downscale factor must be > 1, got %v", downscaleFactor)
	}
	base := MakeGray(img)
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("cannot build a pyramid of an empty image")
	}
	pyramid := &ImagePyramid{
		Images: []*image.Gray{base},
		Scales: []float64{1},
	}
	scale := 1.0
	for nLevels <= 0 || len(pyramid.Images) < nLevels {
		scale *= downscaleFactor
		nw, nh := int(float64(w)/scale), int(float64(h)/scale)
		if nw < minPyramidSize || nh < minPyramidSize {
			break
		}
		resized := imaging.Resize(base, nw, nh, imaging.Linear)
		pyramid.Images = append(pyramid.Images, MakeGray(resized))
		pyramid.Scales = append(pyramid.Scales, scale)
	}
	return pyramid, nil
}
