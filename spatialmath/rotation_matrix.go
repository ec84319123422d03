package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// QuatFromRotationMatrix converts a 3x3 rotation matrix to a unit quaternion.
func QuatFromRotationMatrix(m mat.Matrix) quat.Number {
	m3 := mgl64.Mat3FromRows(
		mgl64.Vec3{m.At(0, 0), m.At(0, 1), m.At(0, 2)},
		mgl64.Vec3{m.At(1, 0), m.At(1, 1), m.At(1, 2)},
		mgl64.Vec3{m.At(2, 0), m.At(2, 1), m.At(2, 2)},
	)
	return Normalize(fromMgl(mgl64.Mat4ToQuat(m3.Mat4())))
}

// QuatToRotationMatrix converts a rotation quaternion to a 3x3 rotation matrix.
func QuatToRotationMatrix(q quat.Number) *mat.Dense {
	m4 := toMgl(Normalize(q)).Mat4()
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, m4.At(i, j))
		}
	}
	return rot
}
