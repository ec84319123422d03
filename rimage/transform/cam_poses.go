package transform

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/vo/spatialmath"
)

// CamPose stores the 3x4 pose matrix as well as the 3D Rotation and Translation matrices.
// A point X1 in the first camera frame maps to X2 = Rotation*X1 + Translation in the second camera frame.
type CamPose struct {
	PoseMat     *mat.Dense
	Rotation    *mat.Dense
	Translation *mat.Dense
}

// NewCamPoseFromMat creates a pointer to a Camera pose from a 3x4 pose dense matrix.
func NewCamPoseFromMat(pose *mat.Dense) *CamPose {
	U3 := pose.ColView(3)
	t := mat.NewDense(3, 1, []float64{U3.AtVec(0), U3.AtVec(1), U3.AtVec(2)})
	rot := mat.DenseCopyOf(pose.Slice(0, 3, 0, 3))
	return &CamPose{
		PoseMat:     pose,
		Rotation:    rot,
		Translation: t,
	}
}

// Orientation returns the rotation of the pose as a unit quaternion.
func (cp *CamPose) Orientation() quat.Number {
	return spatialmath.QuatFromRotationMatrix(cp.Rotation)
}

// TranslationVector returns the translation of the pose. For poses estimated from two views it has unit norm.
func (cp *CamPose) TranslationVector() r3.Vector {
	return r3.Vector{X: cp.Translation.At(0, 0), Y: cp.Translation.At(1, 0), Z: cp.Translation.At(2, 0)}
}

// Pose creates a spatialmath.Pose from a CamPose.
func (cp *CamPose) Pose() spatialmath.Pose {
	return spatialmath.NewPose(cp.TranslationVector(), cp.Orientation())
}

// adjustPoseSign adjusts the sign of a pose.
func adjustPoseSign(pose *mat.Dense) *mat.Dense {
	// take 3x3 sub-matrix
	subPose := pose.Slice(0, 3, 0, 3)

	// if determinant is negative, scale by -1
	if m := mat.DenseCopyOf(subPose); mat.Det(m) < 0 {
		pose.Scale(-1, pose)
	}
	return pose
}

// GetPossibleCameraPoses computes all 4 possible poses from the essential matrix.
func GetPossibleCameraPoses(essMat *mat.Dense) ([]*mat.Dense, error) {
	R1, R2, t, err := DecomposeEssentialMatrix(essMat)
	if err != nil {
		return nil, err
	}
	// poses
	var tOpp mat.Dense
	tOpp.Scale(-1, t)
	poses := make([]mat.Dense, 4)
	poses[0].Augment(R1, t)
	poses[1].Augment(R1, &tOpp)
	poses[2].Augment(R2, t)
	poses[3].Augment(R2, &tOpp)
	// adjust sign of poses
	posesOut := make([]*mat.Dense, 4)
	for i := range poses {
		posesOut[i] = mat.DenseCopyOf(adjustPoseSign(&poses[i]))
	}

	return posesOut, nil
}

// getCrossProductMatFromPoint returns the cross product with point p matrix.
func getCrossProductMatFromPoint(p r3.Vector) *mat.Dense {
	cross := mat.NewDense(3, 3, nil)
	cross.Set(0, 1, -p.Z)
	cross.Set(0, 2, p.Y)
	cross.Set(1, 0, p.Z)
	cross.Set(1, 2, -p.X)
	cross.Set(2, 0, -p.Y)
	cross.Set(2, 1, p.X)
	return cross
}

// GetLinearTriangulatedPoints computes triangulated 3D points with linear method.
// pts1 and pts2 are normalized homogeneous image coordinates; the points are returned in the first camera frame.
func GetLinearTriangulatedPoints(pose *mat.Dense, pts1, pts2 []r3.Vector) ([]r3.Vector, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("the 2 sets of points don't have the same number of elements")
	}
	// set identity pose for pts1
	P := mat.NewDense(3, 4, nil)
	P.Set(0, 0, 1)
	P.Set(1, 1, 1)
	P.Set(2, 2, 1)
	// copy pose for pts2
	Pdash := mat.DenseCopyOf(pose)
	pts3d := make([]r3.Vector, len(pts1))
	for i := range pts1 {
		p1CrossP := mat.NewDense(3, 4, nil)
		p1CrossP.Mul(getCrossProductMatFromPoint(pts1[i]), P)
		p2CrossPdash := mat.NewDense(3, 4, nil)
		p2CrossPdash.Mul(getCrossProductMatFromPoint(pts2[i]), Pdash)
		var A mat.Dense
		A.Stack(p1CrossP, p2CrossPdash)
		// svd
		var svd mat.SVD
		if ok := svd.Factorize(&A, mat.SVDFull); !ok {
			return nil, errors.New("failed to factorize A")
		}
		// Determine the rank of the A matrix with a near zero condition threshold.
		const rcond = 1e-15
		if svd.Rank(rcond) == 0 {
			return nil, errors.New("zero rank system")
		}
		var V mat.Dense
		svd.VTo(&V)
		// homogeneous solution is the right singular vector of the smallest singular value
		pt3d := V.ColView(3)
		w := pt3d.AtVec(3)
		if w == 0 {
			// point at infinity, never in front of either camera
			pts3d[i] = r3.Vector{}
			continue
		}
		pts3d[i] = r3.Vector{
			X: pt3d.AtVec(0) / w,
			Y: pt3d.AtVec(1) / w,
			Z: pt3d.AtVec(2) / w,
		}
	}

	return pts3d, nil
}

// GetNumberPositiveDepth computes the number of triangulated points lying in front of both cameras.
func GetNumberPositiveDepth(pose *mat.Dense, pts1, pts2 []r3.Vector) int {
	rot := pose.Slice(0, 3, 0, 3)
	t := r3.Vector{X: pose.At(0, 3), Y: pose.At(1, 3), Z: pose.At(2, 3)}
	rot3 := r3.Vector{X: rot.At(2, 0), Y: rot.At(2, 1), Z: rot.At(2, 2)}

	pts3D, err := GetLinearTriangulatedPoints(pose, pts1, pts2)
	if err != nil {
		return 0
	}

	nPositiveDepth := 0
	for _, pt := range pts3D {
		if pt.Z > 0 && rot3.Dot(pt)+t.Z > 0 {
			nPositiveDepth++
		}
	}
	return nPositiveDepth
}

// GetCorrectCameraPose returns the best pose, which is the pose with the most positive depth values.
func GetCorrectCameraPose(poses []*mat.Dense, pts1, pts2 []r3.Vector) *mat.Dense {
	maxNumPosDepth := -1
	var correctPose *mat.Dense
	for _, pose := range poses {
		if nPosDepth := GetNumberPositiveDepth(pose, pts1, pts2); nPosDepth > maxNumPosDepth {
			maxNumPosDepth = nPosDepth
			correctPose = pose
		}
	}
	return mat.DenseCopyOf(correctPose)
}

// NormalizeImagePoints maps pixel coordinates to normalized homogeneous camera coordinates K^-1 * (x, y, 1).
func NormalizeImagePoints(pts []r2.Point, k *mat.Dense) ([]r3.Vector, error) {
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "camera matrix is not invertible")
	}
	out := make([]r3.Vector, len(pts))
	for i, pt := range Convert2DPointsToHomogeneousPoints(pts) {
		v := mat.NewVecDense(3, []float64{pt.X, pt.Y, pt.Z})
		var res mat.VecDense
		res.MulVec(&kInv, v)
		out[i] = r3.Vector{X: res.AtVec(0) / res.AtVec(2), Y: res.AtVec(1) / res.AtVec(2), Z: 1}
	}
	return out, nil
}

// EstimateNewPose estimates the pose of the camera in the second set of points wrt the pose of the camera in the first
// set of points
// pts1 and pts2 are matches in 2 images (successive in time or from 2 different cameras of the same scene
// at the same time).
func EstimateNewPose(pts1, pts2 []r2.Point, k *mat.Dense) (*CamPose, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("the 2 sets of points don't have the same number of elements")
	}
	fundamentalMatrix, err := ComputeFundamentalMatrixAllPoints(pts1, pts2, true)
	if err != nil {
		return nil, err
	}

	essentialMatrix, err := GetEssentialMatrixFromFundamental(k, k, fundamentalMatrix)
	if err != nil {
		return nil, err
	}
	poses, err := GetPossibleCameraPoses(essentialMatrix)
	if err != nil {
		return nil, err
	}
	pts1N, err := NormalizeImagePoints(pts1, k)
	if err != nil {
		return nil, err
	}
	pts2N, err := NormalizeImagePoints(pts2, k)
	if err != nil {
		return nil, err
	}
	pose := GetCorrectCameraPose(poses, pts1N, pts2N)
	return NewCamPoseFromMat(pose), nil
}
