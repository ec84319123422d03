package keypoints

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/vo/utils"
)

// Descriptor is a binary descriptor packed in 64 bit words.
type Descriptor []uint64

// Descriptors is a set of descriptors, one per keypoint.
type Descriptors []Descriptor

// Bits returns the number of bits of the descriptor.
func (d Descriptor) Bits() int {
	return 64 * len(d)
}

// DescriptorsHammingDistance computes the pairwise Hamming distances between two sets of descriptors.
func DescriptorsHammingDistance(ctx context.Context, desc1, desc2 Descriptors) (*mat.Dense, error) {
	return utils.PairwiseHammingDistance(ctx, toWords(desc1), toWords(desc2))
}

func toWords(descs Descriptors) [][]uint64 {
	out := make([][]uint64, len(descs))
	for i, d := range descs {
		out[i] = d
	}
	return out
}
