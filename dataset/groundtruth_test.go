package dataset

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/vo/spatialmath"
)

func testGroundTruth() *GroundTruth {
	start := time.Unix(100, 0)
	turn := (&spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1}).ToQuat()
	return NewGroundTruth([]TimedPose{
		{Timestamp: start.Add(2 * time.Second), Pose: spatialmath.NewPose(r3.Vector{X: 2}, turn)},
		{Timestamp: start, Pose: spatialmath.NewZeroPose()},
		{Timestamp: start.Add(time.Second), Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 1})},
	})
}

func TestGroundTruthPose(t *testing.T) {
	gt := testGroundTruth()
	start := time.Unix(100, 0)
	test.That(t, gt.Len(), test.ShouldEqual, 3)
	test.That(t, gt.Poses()[0].Timestamp, test.ShouldEqual, start)

	_, ok := gt.Pose(start.Add(-time.Millisecond))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = gt.Pose(start.Add(3 * time.Second))
	test.That(t, ok, test.ShouldBeFalse)

	pose, ok := gt.Pose(start.Add(time.Second + 500*time.Nanosecond))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pose.Point(), test.ShouldResemble, r3.Vector{X: 1})

	pose, ok = gt.Pose(start.Add(1500 * time.Millisecond))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1.5)
	test.That(t, spatialmath.QuatToAngle(pose.Orientation()), test.ShouldAlmostEqual, math.Pi/4)

	pose, ok = gt.Pose(start.Add(2 * time.Second))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, spatialmath.PointAlmostEqual(pose.Point(), r3.Vector{X: 2}, 1e-9), test.ShouldBeTrue)

	var empty *GroundTruth
	_, ok = empty.Pose(start)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, empty.Poses(), test.ShouldBeEmpty)
}

func TestGroundTruthTransform(t *testing.T) {
	gt := testGroundTruth()
	start := time.Unix(100, 0)

	rel, ok := gt.Transform(start.Add(time.Second), start.Add(2*time.Second))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, spatialmath.PointAlmostEqual(rel.Point(), r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.QuatToAngle(rel.Orientation()), test.ShouldAlmostEqual, math.Pi/2)

	d, ok := gt.Distance(start, start.Add(2*time.Second))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d, test.ShouldAlmostEqual, 2.)

	_, ok = gt.Transform(start, start.Add(time.Hour))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = gt.Distance(start.Add(-time.Hour), start)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestGroundTruthNoise(t *testing.T) {
	gt := testGroundTruth()

	same := gt.WithNoise(NoiseConfig{}, rand.NewPCG(1, 1))
	for i, p := range same.Poses() {
		test.That(t, spatialmath.PoseAlmostEqual(p.Pose, gt.Poses()[i].Pose), test.ShouldBeTrue)
	}

	cfg := NoiseConfig{PositionStdDev: 0.05, RotationStdDev: 0.01}
	noisy1 := gt.WithNoise(cfg, rand.NewPCG(4, 2))
	noisy2 := gt.WithNoise(cfg, rand.NewPCG(4, 2))
	test.That(t, noisy1.Len(), test.ShouldEqual, gt.Len())
	moved := false
	for i, p := range noisy1.Poses() {
		test.That(t, spatialmath.PoseAlmostEqual(p.Pose, noisy2.Poses()[i].Pose), test.ShouldBeTrue)
		test.That(t, p.Timestamp, test.ShouldEqual, gt.Poses()[i].Timestamp)
		d := p.Pose.Point().Distance(gt.Poses()[i].Pose.Point())
		test.That(t, d, test.ShouldBeLessThan, 1.)
		if d > 0 {
			moved = true
		}
	}
	test.That(t, moved, test.ShouldBeTrue)
}
