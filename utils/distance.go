package utils

import (
	"context"
	"math/bits"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// HammingDistance counts the differing bits between two packed binary vectors.
func HammingDistance(d1, d2 []uint64) (int, error) {
	if len(d1) != len(d2) {
		return -1, errors.Errorf("descriptors must have same length, got %d and %d", len(d1), len(d2))
	}
	dist := 0
	for i := range d1 {
		dist += bits.OnesCount64(d1[i] ^ d2[i])
	}
	return dist, nil
}

// PairwiseHammingDistance computes every distance between two sets of packed binary vectors.
// Rows index desc1, columns index desc2.
func PairwiseHammingDistance(ctx context.Context, desc1, desc2 [][]uint64) (*mat.Dense, error) {
	if len(desc1) == 0 || len(desc2) == 0 {
		return nil, errors.New("cannot compute distances on empty descriptor sets")
	}
	distances := mat.NewDense(len(desc1), len(desc2), nil)
	errs := make([]error, len(desc1))
	err := ParallelRange(ctx, len(desc1), func(from, to int) {
		for i := from; i < to; i++ {
			for j := range desc2 {
				d, err := HammingDistance(desc1[i], desc2[j])
				if err != nil {
					errs[i] = err
					break
				}
				distances.Set(i, j, float64(d))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return distances, nil
}

// GetArgMinDistancesPerRow returns in a slice of int the index of the point with minimum distance for each row.
func GetArgMinDistancesPerRow(distances *mat.Dense) []int {
	nRows, _ := distances.Dims()
	indices := make([]int, nRows)
	for i := 0; i < nRows; i++ {
		row := mat.Row(nil, i, distances)
		indices[i] = floats.MinIdx(row)
	}
	return indices
}

// GetArgMinDistancesPerColumn returns the row index of the minimum distance for each column.
func GetArgMinDistancesPerColumn(distances *mat.Dense) []int {
	_, nCols := distances.Dims()
	indices := make([]int, nCols)
	for j := 0; j < nCols; j++ {
		col := mat.Col(nil, j, distances)
		indices[j] = floats.MinIdx(col)
	}
	return indices
}
