package dataset

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/vo/spatialmath"
)

// exactHitTolerance is how close to a sample a query time must be to return that sample as is.
const exactHitTolerance = time.Microsecond

// TimedPose is the pose of the camera in the world frame at a point in time.
type TimedPose struct {
	Timestamp time.Time
	Pose      spatialmath.Pose
}

// GroundTruth holds reference camera poses, sorted by time.
type GroundTruth struct {
	poses []TimedPose
}

// NewGroundTruth returns the ground truth made of poses, in any order.
func NewGroundTruth(poses []TimedPose) *GroundTruth {
	sorted := make([]TimedPose, len(poses))
	copy(sorted, poses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &GroundTruth{poses: sorted}
}

// Len returns the number of reference poses.
func (gt *GroundTruth) Len() int {
	if gt == nil {
		return 0
	}
	return len(gt.poses)
}

// Poses returns a copy of the reference poses.
func (gt *GroundTruth) Poses() []TimedPose {
	out := make([]TimedPose, gt.Len())
	if gt != nil {
		copy(out, gt.poses)
	}
	return out
}

// Pose returns the camera pose at t, interpolating between the two surrounding samples: linearly for
// the position, along the shortest arc for the orientation. It returns false when t is outside of the
// sampled period.
func (gt *GroundTruth) Pose(t time.Time) (spatialmath.Pose, bool) {
	n := gt.Len()
	if n == 0 {
		return nil, false
	}
	i := sort.Search(n, func(i int) bool {
		return !gt.poses[i].Timestamp.Before(t)
	})
	if i < n && gt.poses[i].Timestamp.Sub(t) < exactHitTolerance {
		return gt.poses[i].Pose, true
	}
	if i > 0 && t.Sub(gt.poses[i-1].Timestamp) < exactHitTolerance {
		return gt.poses[i-1].Pose, true
	}
	if i == 0 || i == n {
		return nil, false
	}
	before, after := gt.poses[i-1], gt.poses[i]
	span := after.Timestamp.Sub(before.Timestamp)
	by := float64(t.Sub(before.Timestamp)) / float64(span)
	return spatialmath.Interpolate(before.Pose, after.Pose, by), true
}

// Transform returns the pose of the camera at t1 expressed in the camera frame at t0.
func (gt *GroundTruth) Transform(t0, t1 time.Time) (spatialmath.Pose, bool) {
	p0, ok := gt.Pose(t0)
	if !ok {
		return nil, false
	}
	p1, ok := gt.Pose(t1)
	if !ok {
		return nil, false
	}
	return spatialmath.PoseBetween(p0, p1), true
}

// Distance returns the distance travelled by the camera between t0 and t1, as the crow flies.
func (gt *GroundTruth) Distance(t0, t1 time.Time) (float64, bool) {
	p0, ok := gt.Pose(t0)
	if !ok {
		return 0, false
	}
	p1, ok := gt.Pose(t1)
	if !ok {
		return 0, false
	}
	return p1.Point().Distance(p0.Point()), true
}

// NoiseConfig describes the gaussian noise added to ground truth poses to simulate a noisy prior such
// as an IMU. Rotation noise is in radians.
type NoiseConfig struct {
	PositionStdDev float64 `json:"position_std_dev"`
	RotationStdDev float64 `json:"rotation_std_dev"`
}

// WithNoise returns a copy of gt whose poses are perturbed by gaussian noise drawn from src.
func (gt *GroundTruth) WithNoise(cfg NoiseConfig, src rand.Source) *GroundTruth {
	posNoise := distuv.Normal{Mu: 0, Sigma: math.Max(cfg.PositionStdDev, 0), Src: src}
	rotNoise := distuv.Normal{Mu: 0, Sigma: math.Max(cfg.RotationStdDev, 0), Src: src}
	noisy := make([]TimedPose, gt.Len())
	for i, p := range gt.Poses() {
		pt := p.Pose.Point()
		if cfg.PositionStdDev > 0 {
			pt = pt.Add(r3.Vector{X: posNoise.Rand(), Y: posNoise.Rand(), Z: posNoise.Rand()})
		}
		orientation := p.Pose.Orientation()
		if cfg.RotationStdDev > 0 {
			axis := r3.Vector{X: rotNoise.Rand(), Y: rotNoise.Rand(), Z: rotNoise.Rand()}
			delta := (&spatialmath.R4AA{Theta: axis.Norm(), RX: axis.X, RY: axis.Y, RZ: axis.Z}).ToQuat()
			orientation = quat.Mul(delta, orientation)
		}
		noisy[i] = TimedPose{Timestamp: p.Timestamp, Pose: spatialmath.NewPose(pt, orientation)}
	}
	return &GroundTruth{poses: noisy}
}
