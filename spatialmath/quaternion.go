package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Normalize returns the unit quaternion of q, with a non-negative real part. A zero quaternion maps to the identity.
func Normalize(q quat.Number) quat.Number {
	abs := quat.Abs(q)
	if abs == 0 {
		return quat.Number{Real: 1}
	}
	q = quat.Scale(1/abs, q)
	if q.Real < 0 {
		q = Flip(q)
	}
	return q
}

// QuaternionAlmostEqual is an equality test for quaternions that represent the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	a, b = Normalize(a), Normalize(b)
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// QuatToAngle returns the rotation angle in radians, in [0, pi], of a rotation quaternion.
func QuatToAngle(q quat.Number) float64 {
	q = Normalize(q)
	return 2 * math.Atan2(Norm(q), q.Real)
}

// RotateVector rotates v by the rotation quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := toMgl(q).Rotate(mgl64.Vec3{v.X, v.Y, v.Z})
	return r3.Vector{X: rotated[0], Y: rotated[1], Z: rotated[2]}
}

// Slerp interpolates between two rotations along the shortest arc.
func Slerp(q1, q2 quat.Number, by float64) quat.Number {
	m1, m2 := toMgl(q1), toMgl(q2)
	if m1.Dot(m2) < 0 {
		m2 = m2.Scale(-1)
	}
	return Normalize(fromMgl(mgl64.QuatSlerp(m1, m2, by)))
}

// R4AA is an axis angle representation: a rotation of Theta radians around the unit axis (RX, RY, RZ).
type R4AA struct {
	Theta float64
	RX    float64
	RY    float64
	RZ    float64
}

// ToQuat converts an axis angle to a rotation quaternion.
func (r4 *R4AA) ToQuat() quat.Number {
	axis := mgl64.Vec3{r4.RX, r4.RY, r4.RZ}
	if axis.Len() == 0 {
		return quat.Number{Real: 1}
	}
	return fromMgl(mgl64.QuatRotate(r4.Theta, axis.Normalize()))
}

func toMgl(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}

func fromMgl(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}
