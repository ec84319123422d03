package transform

import "github.com/golang/geo/r2"

// Viewport is the image plane seen as a coordinate system centered on the image center, with the
// y axis pointing up. Tracked features are stored in viewport coordinates.
type Viewport struct {
	Width  int
	Height int
}

// Center returns the pixel coordinates of the viewport origin.
func (vp Viewport) Center() r2.Point {
	return r2.Point{X: float64(vp.Width) / 2, Y: float64(vp.Height) / 2}
}

// ToViewport converts pixel coordinates to viewport coordinates.
func (vp Viewport) ToViewport(px r2.Point) r2.Point {
	c := vp.Center()
	return r2.Point{X: px.X - c.X, Y: c.Y - px.Y}
}

// ToPixel converts viewport coordinates back to pixel coordinates.
func (vp Viewport) ToPixel(p r2.Point) r2.Point {
	c := vp.Center()
	return r2.Point{X: p.X + c.X, Y: c.Y - p.Y}
}
