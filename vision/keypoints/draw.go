package keypoints

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
)

// PlotKeypoints plots keypoints on image and saves the result as a png.
func PlotKeypoints(img *image.Gray, kps KeyPoints, outName string) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	// draw keypoints on image
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps {
		dc.DrawCircle(float64(p.X), float64(p.Y), float64(3.0))
		dc.Fill()
	}
	return dc.SavePNG(outName)
}

// PlotMatchedLines draws the two images side by side (or on top of each other if vertical) and links
// the matched keypoints kps1[i] and kps2[i] with a line.
func PlotMatchedLines(im1, im2 image.Image, kps1, kps2 KeyPoints, vertical bool) (image.Image, error) {
	if len(kps1) != len(kps2) {
		return nil, errors.Errorf("got %d and %d matched keypoints", len(kps1), len(kps2))
	}
	w1, h1 := im1.Bounds().Dx(), im1.Bounds().Dy()
	w2, h2 := im2.Bounds().Dx(), im2.Bounds().Dy()
	var dc *gg.Context
	var offset image.Point
	if vertical {
		dc = gg.NewContext(max(w1, w2), h1+h2)
		offset = image.Point{0, h1}
	} else {
		dc = gg.NewContext(w1+w2, max(h1, h2))
		offset = image.Point{w1, 0}
	}
	dc.DrawImage(im1, 0, 0)
	dc.DrawImage(im2, offset.X, offset.Y)

	dc.SetLineWidth(1.25)
	dc.SetRGBA(0, 1, 0, 0.8)
	for i := range kps1 {
		p1 := kps1[i]
		p2 := kps2[i].Add(offset)
		dc.DrawLine(float64(p1.X), float64(p1.Y), float64(p2.X), float64(p2.Y))
		dc.Stroke()
	}
	return dc.Image(), nil
}
