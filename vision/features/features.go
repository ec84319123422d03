// Package features bridges keypoint detection and descriptor matching to the feature tracker:
// an Extractor turns images into features and a Matcher links the features of consecutive
// frames as tracking.MatchedFeature values.
package features

import (
	"image"
	"math/rand/v2"

	"github.com/pkg/errors"

	"go.viam.com/vo/vision/keypoints"
)

// Features are the keypoints of an image and their descriptors, index aligned.
type Features struct {
	KeyPoints   keypoints.KeyPoints
	Descriptors keypoints.Descriptors
}

// Len returns the number of features.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.KeyPoints)
}

// An Extractor detects and describes features in an image.
type Extractor interface {
	Extract(img *image.Gray) (*Features, error)
}

// ORBExtractor extracts ORB features. The BRIEF sample pairs are drawn once, so that descriptors of
// different images computed by the same extractor are comparable.
type ORBExtractor struct {
	cfg         *keypoints.ORBConfig
	samplePairs *keypoints.SamplePairs
}

// NewORBExtractor validates cfg and draws the BRIEF sample pairs from seed.
func NewORBExtractor(cfg *keypoints.ORBConfig, seed uint64) (*ORBExtractor, error) {
	if cfg == nil {
		return nil, errors.New("ORB configuration is required")
	}
	if err := cfg.Validate("orb"); err != nil {
		return nil, err
	}
	brief := cfg.BRIEFConf
	sp := keypoints.GenerateSamplePairs(brief.Sampling, brief.N, brief.PatchSize, rand.NewPCG(seed, seed))
	return &ORBExtractor{cfg: cfg, samplePairs: sp}, nil
}

// Extract computes the ORB features of img.
func (e *ORBExtractor) Extract(img *image.Gray) (*Features, error) {
	descs, kps, err := keypoints.ComputeORBKeypoints(img, e.samplePairs, e.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "cannot extract ORB features")
	}
	return &Features{KeyPoints: kps, Descriptors: descs}, nil
}
