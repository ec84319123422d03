// Package keypoints contains the implementation of keypoints in an image. For now:
// - FAST keypoints
// - BRIEF descriptors
// - ORB keypoints and descriptors over an image pyramid
// - brute force descriptor matching.
package keypoints

import (
	"image"
	"math"

	"go.viam.com/vo/rimage"
	"go.viam.com/vo/utils"
)

type (
	// KeyPoint is an image.Point that contains coordinates of a kp.
	KeyPoint image.Point // keypoint type
	// KeyPoints is a slice of image.Point that contains several kps.
	KeyPoints []image.Point // set of keypoints type
)

const orientationPatchSize = 31

// orientationRowExtents are the half widths of the circular patch rows used to compute the
// intensity centroid.
var orientationRowExtents = []int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}

// computeKeypointsOrientations computes the angle of the intensity centroid of the circular patch
// around each keypoint.
func computeKeypointsOrientations(img *image.Gray, kps KeyPoints) []float64 {
	half := (orientationPatchSize - 1) / 2
	padded, err := rimage.PaddingGray(
		img,
		image.Point{orientationPatchSize, orientationPatchSize},
		image.Point{half, half},
		rimage.BorderConstant,
	)
	orientations := make([]float64, len(kps))
	if err != nil {
		return orientations
	}
	for i, kp := range kps {
		m01, m10 := 0, 0
		for dy := -half; dy <= half; dy++ {
			extent := orientationRowExtents[utils.AbsInt(dy)]
			m01Temp := 0
			for dx := -extent; dx <= extent; dx++ {
				pixVal := int(padded.GrayAt(kp.X+dx+half, kp.Y+dy+half).Y)
				m10 += pixVal * dx
				m01Temp += pixVal
			}
			m01 += m01Temp * dy
		}
		orientations[i] = math.Atan2(float64(m01), float64(m10))
	}
	return orientations
}

// RescaleKeypoints rescales given keypoints wrt scaleFactor.
func RescaleKeypoints(kps KeyPoints, scaleFactor float64) KeyPoints {
	rescaledKeypoints := make(KeyPoints, len(kps))
	for i, kp := range kps {
		rescaledKeypoints[i] = image.Point{
			X: int(math.Round(float64(kp.X) * scaleFactor)),
			Y: int(math.Round(float64(kp.Y) * scaleFactor)),
		}
	}
	return rescaledKeypoints
}
