package odometry

import (
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/vo/spatialmath"
)

// TrajectoryPose is the pose of the camera in the world frame at a point in time.
type TrajectoryPose struct {
	Timestamp time.Time
	Pose      spatialmath.Pose
}

// Trajectory accumulates camera poses, one per frame, from frame-to-frame motions. The world frame is
// the camera frame of the first appended frame unless an origin is given.
type Trajectory struct {
	origin spatialmath.Pose
	poses  []TrajectoryPose
}

// NewTrajectory returns an empty trajectory starting at origin. A nil origin is the identity.
func NewTrajectory(origin spatialmath.Pose) *Trajectory {
	if origin == nil {
		origin = spatialmath.NewZeroPose()
	}
	return &Trajectory{origin: origin}
}

// Append adds the pose of the frame at ts. motion goes from the frame motion.FrameOffset frames back
// to this one, and its translation is multiplied by scale. A nil motion keeps the camera where it was
// at the previous frame.
func (tr *Trajectory) Append(ts time.Time, motion *Motion3D, scale float64) {
	if len(tr.poses) == 0 {
		tr.poses = append(tr.poses, TrajectoryPose{Timestamp: ts, Pose: tr.origin})
		return
	}
	if motion == nil {
		tr.poses = append(tr.poses, TrajectoryPose{Timestamp: ts, Pose: tr.poses[len(tr.poses)-1].Pose})
		return
	}
	offset := min(max(motion.FrameOffset, 1), len(tr.poses))
	reference := tr.poses[len(tr.poses)-offset].Pose
	step := spatialmath.NewPose(motion.TranslationVector().Mul(scale), motion.Orientation())
	// world_from_new = world_from_old * inverse(new_from_old)
	pose := spatialmath.Compose(reference, spatialmath.PoseInverse(step))
	tr.poses = append(tr.poses, TrajectoryPose{Timestamp: ts, Pose: pose})
}

// Len returns the number of poses.
func (tr *Trajectory) Len() int {
	return len(tr.poses)
}

// Poses returns a copy of the poses.
func (tr *Trajectory) Poses() []TrajectoryPose {
	out := make([]TrajectoryPose, len(tr.poses))
	copy(out, tr.poses)
	return out
}

// Positions returns the camera positions in the world frame.
func (tr *Trajectory) Positions() []r3.Vector {
	out := make([]r3.Vector, len(tr.poses))
	for i, p := range tr.poses {
		out[i] = p.Pose.Point()
	}
	return out
}

// Last returns the latest pose, if any.
func (tr *Trajectory) Last() (TrajectoryPose, bool) {
	if len(tr.poses) == 0 {
		return TrajectoryPose{}, false
	}
	return tr.poses[len(tr.poses)-1], true
}
