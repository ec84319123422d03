package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestPinholeCameraIntrinsicsFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intrinsics.json")
	err := os.WriteFile(path, []byte(`{"width_px": 640, "height_px": 480, "fx": 525, "fy": 525, "ppx": 319.5, "ppy": 239.5}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	intrinsics, err := NewPinholeCameraIntrinsicsFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics.Width, test.ShouldEqual, 640)
	test.That(t, intrinsics.Ppy, test.ShouldEqual, 239.5)
	test.That(t, intrinsics.Viewport(), test.ShouldResemble, Viewport{Width: 640, Height: 480})

	badPath := filepath.Join(dir, "bad.json")
	err = os.WriteFile(badPath, []byte(`{"width_px": 640, "height_px": 480, "fx": 0, "fy": 525}`), 0o600)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewPinholeCameraIntrinsicsFromJSONFile(badPath)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	_, err = NewPinholeCameraIntrinsicsFromJSONFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCheckValid(t *testing.T) {
	var nilIntrinsics *PinholeCameraIntrinsics
	test.That(t, nilIntrinsics.CheckValid(), test.ShouldNotBeNil)
	test.That(t, nilIntrinsics.GetCameraMatrix(), test.ShouldBeNil)

	intrinsics := &PinholeCameraIntrinsics{Width: 10, Height: 10, Fx: 1, Fy: 1, Ppx: -1}
	err := intrinsics.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Ppx")
}

func TestPixelPointRoundTrip(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 1280, Height: 720, Fx: 900, Fy: 900, Ppx: 640, Ppy: 360}
	x, y, z := intrinsics.PixelToPoint(740, 260, 2)
	test.That(t, x, test.ShouldAlmostEqual, 200./900.*1)
	test.That(t, y, test.ShouldAlmostEqual, -200./900.)
	test.That(t, z, test.ShouldEqual, 2.)
	px, py := intrinsics.PointToPixel(x, y, z)
	test.That(t, px, test.ShouldEqual, 740.)
	test.That(t, py, test.ShouldEqual, 260.)

	px, py = intrinsics.PointToPixel(1, 1, 0)
	test.That(t, px, test.ShouldEqual, -1.)
	test.That(t, py, test.ShouldEqual, -1.)

	pt, ok := intrinsics.ProjectPoint(r3.Vector{X: 0.5, Y: -0.25, Z: 1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt, test.ShouldResemble, r2.Point{X: 1090, Y: 135})
	_, ok = intrinsics.ProjectPoint(r3.Vector{X: 0.5, Z: -1})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestIntrinsicsFromProjection(t *testing.T) {
	p := mat.NewDense(3, 4, []float64{
		718.856, 0, 607.1928, 0,
		0, 718.856, 185.2157, 0,
		0, 0, 1, 0,
	})
	intrinsics, err := NewPinholeCameraIntrinsicsFromProjection(p, 1241, 376)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics.Fx, test.ShouldEqual, 718.856)
	test.That(t, intrinsics.Ppy, test.ShouldEqual, 185.2157)

	k := intrinsics.GetCameraMatrix()
	test.That(t, k.At(0, 2), test.ShouldEqual, 607.1928)
	test.That(t, k.At(2, 2), test.ShouldEqual, 1.)

	_, err = NewPinholeCameraIntrinsicsFromProjection(mat.NewDense(3, 3, nil), 10, 10)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestViewport(t *testing.T) {
	vp := Viewport{Width: 640, Height: 480}
	test.That(t, vp.ToViewport(r2.Point{X: 320, Y: 240}), test.ShouldResemble, r2.Point{})
	test.That(t, vp.ToViewport(r2.Point{X: 0, Y: 0}), test.ShouldResemble, r2.Point{X: -320, Y: 240})
	test.That(t, vp.ToViewport(r2.Point{X: 400, Y: 300}), test.ShouldResemble, r2.Point{X: 80, Y: -60})
	px := r2.Point{X: 12.5, Y: 470}
	test.That(t, vp.ToPixel(vp.ToViewport(px)), test.ShouldResemble, px)
}
