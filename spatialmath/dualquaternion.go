// Package spatialmath defines the rigid transforms used to express camera poses and motions.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a rotation followed by a translation.
type Pose interface {
	Point() r3.Vector
	Orientation() quat.Number
}

// dualQuaternion defines functions to perform rigid transformations in 3D.
type dualQuaternion struct {
	dualquat.Number
}

// newDualQuaternion returns a dual quaternion whose rotation quaternion is the identity.
// Since the real part of a qual quaternion should be a unit quaternion, not all zeroes, this should be used
// instead of &dualQuaternion{}.
func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose builds a Pose from a translation and a rotation quaternion. The quaternion is normalized.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	q := newDualQuaternion()
	q.Real = Normalize(orientation)
	q.SetTranslation(point)
	return q
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return NewPose(point, quat.Number{Real: 1})
}

// Point returns the translation of the transform.
func (q *dualQuaternion) Point() r3.Vector {
	tQuat := q.Translation()
	return r3.Vector{X: tQuat.Imag, Y: tQuat.Jmag, Z: tQuat.Kmag}
}

// Orientation returns the rotation quaternion of the transform.
func (q *dualQuaternion) Orientation() quat.Number {
	return q.Real
}

// Translation multiplies the dual quaternion by its own conjugate to give a dq where the real is the identity
// quaternion and the dual is the translation as a pure quaternion.
func (q *dualQuaternion) Translation() quat.Number {
	t := quat.Mul(q.Dual, quat.Conj(q.Real))
	return quat.Scale(2, t)
}

// SetTranslation correctly sets the translation quaternion against the rotation.
func (q *dualQuaternion) SetTranslation(pt r3.Vector) {
	tQuat := quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}
	q.Dual = quat.Scale(0.5, quat.Mul(tQuat, q.Real))
}

// Transformation multiplies the dual quat contained in this dualQuaternion by another dual quat.
func (q *dualQuaternion) Transformation(by dualquat.Number) dualquat.Number {
	// Ensure we are multiplying by a unit dual quaternion
	if vecLen := 1 / quat.Abs(by.Real); vecLen-1 > 1e-10 || vecLen-1 < -1e-10 {
		by.Real = quat.Scale(vecLen, by.Real)
		by.Dual = quat.Scale(vecLen, by.Dual)
	}
	return dualquat.Mul(q.Number, by)
}

func dualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return q
	}
	q := newDualQuaternion()
	q.Real = Normalize(p.Orientation())
	q.SetTranslation(p.Point())
	return q
}

// Compose returns the transform a∘b: b is applied first, then a. For camera poses, Compose(worldFromA, aFromB)
// is worldFromB.
func Compose(a, b Pose) Pose {
	aq := dualQuaternionFromPose(a)
	bq := dualQuaternionFromPose(b)
	result := &dualQuaternion{aq.Transformation(bq.Number)}
	// Normalization
	if vecLen := 1 / quat.Abs(result.Real); vecLen-1 > 1e-10 || vecLen-1 < -1e-10 {
		result.Real = quat.Scale(vecLen, result.Real)
		result.Dual = quat.Scale(vecLen, result.Dual)
	}
	return result
}

// PoseInverse returns the inverse of a pose.
func PoseInverse(p Pose) Pose {
	return &dualQuaternion{dualquat.ConjQuat(dualQuaternionFromPose(p).Number)}
}

// PoseBetween returns the transform that takes a to b: Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint applies the pose to a point.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return RotateVector(p.Orientation(), pt).Add(p.Point())
}

// Interpolate returns the pose at fraction by of the way from a to b, interpolating the translation linearly and
// the rotation along the shortest arc.
func Interpolate(a, b Pose, by float64) Pose {
	pt := a.Point().Add(b.Point().Sub(a.Point()).Mul(by))
	return NewPose(pt, Slerp(a.Orientation(), b.Orientation(), by))
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same, within epsilon.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return PointAlmostEqual(a.Point(), b.Point(), epsilon) &&
		QuaternionAlmostEqual(a.Orientation(), b.Orientation(), epsilon)
}

// PointAlmostEqual compares two points and returns if they are within epsilon of each other.
func PointAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon && math.Abs(a.Y-b.Y) <= epsilon && math.Abs(a.Z-b.Z) <= epsilon
}
