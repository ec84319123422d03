package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestPoseTranslationRoundTrip(t *testing.T) {
	q := (&R4AA{Theta: math.Pi / 3, RX: 0, RY: 1, RZ: 0}).ToQuat()
	p := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, q)
	test.That(t, PointAlmostEqual(p.Point(), r3.Vector{X: 1, Y: 2, Z: 3}, 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(p.Orientation(), q, 1e-9), test.ShouldBeTrue)

	zero := NewZeroPose()
	test.That(t, zero.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, zero.Orientation(), test.ShouldResemble, quat.Number{Real: 1})
}

func TestCompose(t *testing.T) {
	rotZ := (&R4AA{Theta: math.Pi / 2, RZ: 1}).ToQuat()
	a := NewPose(r3.Vector{X: 1}, rotZ)
	b := NewPoseFromPoint(r3.Vector{X: 1})

	// b is applied first, so its translation gets rotated by a.
	ab := Compose(a, b)
	test.That(t, PointAlmostEqual(ab.Point(), r3.Vector{X: 1, Y: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(ab.Orientation(), rotZ, 1e-9), test.ShouldBeTrue)

	pt := TransformPoint(ab, r3.Vector{X: 1})
	test.That(t, PointAlmostEqual(pt, TransformPoint(a, TransformPoint(b, r3.Vector{X: 1})), 1e-9), test.ShouldBeTrue)
	test.That(t, PointAlmostEqual(pt, r3.Vector{X: 1, Y: 2}, 1e-9), test.ShouldBeTrue)
}

func TestPoseInverseAndBetween(t *testing.T) {
	q := (&R4AA{Theta: 0.7, RX: 1, RY: 1, RZ: 0}).ToQuat()
	p := NewPose(r3.Vector{X: -2, Y: 0.5, Z: 4}, q)

	ident := Compose(p, PoseInverse(p))
	test.That(t, PoseAlmostEqual(ident, NewZeroPose()), test.ShouldBeTrue)
	ident = Compose(PoseInverse(p), p)
	test.That(t, PoseAlmostEqual(ident, NewZeroPose()), test.ShouldBeTrue)

	other := NewPose(r3.Vector{X: 3, Y: 1, Z: -1}, (&R4AA{Theta: -0.4, RZ: 1}).ToQuat())
	between := PoseBetween(p, other)
	test.That(t, PoseAlmostEqual(Compose(p, between), other), test.ShouldBeTrue)
}

func TestInterpolate(t *testing.T) {
	a := NewZeroPose()
	b := NewPose(r3.Vector{X: 10}, (&R4AA{Theta: math.Pi / 2, RZ: 1}).ToQuat())

	mid := Interpolate(a, b, 0.5)
	test.That(t, PointAlmostEqual(mid.Point(), r3.Vector{X: 5}, 1e-9), test.ShouldBeTrue)
	test.That(t, QuatToAngle(mid.Orientation()), test.ShouldAlmostEqual, math.Pi/4)

	test.That(t, PoseAlmostEqual(Interpolate(a, b, 0), a), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Interpolate(a, b, 1), b), test.ShouldBeTrue)
}
