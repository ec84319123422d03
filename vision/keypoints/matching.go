package keypoints

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/utils"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	DoCrossCheck bool `json:"do_cross_check"`
	MaxDist      int  `json:"max_dist"`
}

// DescriptorMatch contains the index of a match in the first and second set of descriptors, and their
// Hamming distance.
type DescriptorMatch struct {
	Idx1     int
	Idx2     int
	Distance int
}

// MatchDescriptors takes 2 sets of descriptors and performs brute force matching. Every descriptor of
// desc1 is paired with its nearest descriptor of desc2; with DoCrossCheck the pair is only kept if the
// reverse nearest neighbor agrees, and with MaxDist > 0 only pairs closer than MaxDist are kept.
// Matches are sorted by increasing distance.
func MatchDescriptors(
	ctx context.Context,
	desc1, desc2 Descriptors,
	cfg *MatchingConfig,
	logger logging.Logger,
) []DescriptorMatch {
	if len(desc1) == 0 || len(desc2) == 0 {
		return []DescriptorMatch{}
	}
	distances, err := DescriptorsHammingDistance(ctx, desc1, desc2)
	if err != nil {
		logger.Debugw("cannot compute descriptor distances", "error", err)
		return []DescriptorMatch{}
	}
	indices2 := utils.GetArgMinDistancesPerRow(distances)
	var matches1 []int
	if cfg.DoCrossCheck {
		matches1 = utils.GetArgMinDistancesPerColumn(distances)
	}
	idx1 := make([]int, 0, len(desc1))
	dists := make([]float64, 0, len(desc1))
	for i := range desc1 {
		j := indices2[i]
		d := distances.At(i, j)
		if cfg.DoCrossCheck && matches1[j] != i {
			continue
		}
		if cfg.MaxDist > 0 && d >= float64(cfg.MaxDist) {
			continue
		}
		idx1 = append(idx1, i)
		dists = append(dists, d)
	}
	// sort
	sortedIndices := make([]int, len(idx1))
	floats.Argsort(dists, sortedIndices)
	matches := make([]DescriptorMatch, len(idx1))
	for i, idx := range sortedIndices {
		matches[i] = DescriptorMatch{
			Idx1:     idx1[idx],
			Idx2:     indices2[idx1[idx]],
			Distance: int(dists[idx]),
		}
	}
	return matches
}

// GetMatchingKeyPoints takes the matches and the keypoints and returns the corresponding keypoints that are matched.
func GetMatchingKeyPoints(matches []DescriptorMatch, kps1, kps2 KeyPoints) (KeyPoints, KeyPoints, error) {
	matchedKps1 := make(KeyPoints, len(matches))
	matchedKps2 := make(KeyPoints, len(matches))
	for i, match := range matches {
		if match.Idx1 < 0 || match.Idx1 >= len(kps1) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of a set of %d", i, match.Idx1, len(kps1))
		}
		if match.Idx2 < 0 || match.Idx2 >= len(kps2) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of a set of %d", i, match.Idx2, len(kps2))
		}
		matchedKps1[i] = kps1[match.Idx1]
		matchedKps2[i] = kps2[match.Idx2]
	}
	return matchedKps1, matchedKps2, nil
}
