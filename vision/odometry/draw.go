package odometry

import (
	"image"
	"image/color"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"

	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/vision/tracking"
)

const (
	trackedPointRadius = 3.
	// hue of a track spanning every buffered frame; single points are drawn at hue 0.
	longTrackHue = 120.
	labelMargin  = 4.
)

// trackColor returns the color of a trajectory of n positions out of frames buffered frames, going
// from red for a fresh feature to green for one seen in every frame.
func trackColor(n, frames int) colorful.Color {
	hue := 0.
	if frames > 1 && n > 1 {
		hue = longTrackHue * float64(n-1) / float64(frames-1)
	}
	return colorful.Hsv(hue, 1, 1)
}

// DrawTracked draws, over img, every feature of the newest frame of tracked and its trajectory back
// through the older frames. vp is the viewport the tracked positions are expressed in. A non empty
// label is written in the top left corner.
func DrawTracked(img image.Image, tracked *tracking.Tracked, vp transform.Viewport, label string) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1)
	frames := tracked.FramesCount()
	for slot := 0; slot < tracked.PointsCount(); slot++ {
		trajectory := tracked.Trajectory(slot)
		if len(trajectory) == 0 {
			continue
		}
		c := trackColor(len(trajectory), frames)
		head := vp.ToPixel(trajectory[0])
		if len(trajectory) > 1 {
			dc.SetColor(c)
			dc.MoveTo(head.X, head.Y)
			for _, p := range trajectory[1:] {
				px := vp.ToPixel(p)
				dc.LineTo(px.X, px.Y)
			}
			dc.Stroke()
			// heads are lighter than their trajectory
			c = c.BlendRgb(colorful.Color{R: 1, G: 1, B: 1}, 0.4)
		}
		dc.SetColor(c)
		dc.DrawCircle(head.X, head.Y, trackedPointRadius)
		dc.Stroke()
	}
	if label != "" {
		face := basicfont.Face7x13
		dc.SetFontFace(face)
		dc.SetColor(color.White)
		dc.DrawString(label, labelMargin, labelMargin+float64(face.Ascent))
	}
	return dc.Image()
}

// SaveTracked draws tracked and label over img and saves the result as a PNG file.
func SaveTracked(path string, img image.Image, tracked *tracking.Tracked, vp transform.Viewport, label string) error {
	out := DrawTracked(img, tracked, vp, label)
	if err := gg.SavePNG(filepath.Clean(path), out); err != nil {
		return errors.Wrapf(err, "cannot save tracked overlay to %q", path)
	}
	return nil
}
