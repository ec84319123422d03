package features

import (
	"context"
	"image"

	"github.com/golang/geo/r2"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/utils"
	"go.viam.com/vo/vision/keypoints"
	"go.viam.com/vo/vision/tracking"
)

// DefaultMaxDisplacementPx is the largest pixel displacement accepted between two matched features.
const DefaultMaxDisplacementPx = 75.

// MatcherConfig contains the parameters of a Matcher.
type MatcherConfig struct {
	Matching          keypoints.MatchingConfig `json:"matching"`
	MaxDisplacementPx float64                  `json:"max_displacement_px"`
}

// DefaultMatcherConfig returns a cross-checked matching configuration.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Matching:          keypoints.MatchingConfig{DoCrossCheck: true},
		MaxDisplacementPx: DefaultMaxDisplacementPx,
	}
}

// Matcher links the features of each frame to the features of the frame before it.
// It is not safe for concurrent use.
type Matcher struct {
	cfg    MatcherConfig
	logger logging.Logger
	prev   *Features
}

// NewMatcher returns a Matcher with no reference frame. A zero MaxDisplacementPx is replaced by the default.
func NewMatcher(cfg MatcherConfig, logger logging.Logger) *Matcher {
	if cfg.MaxDisplacementPx <= 0 {
		cfg.MaxDisplacementPx = DefaultMaxDisplacementPx
	}
	return &Matcher{cfg: cfg, logger: logger}
}

// Reset forgets the reference frame; the next call to Match behaves as for a first frame.
func (m *Matcher) Reset() {
	m.prev = nil
}

// Match returns one tracking.MatchedFeature per keypoint of f, in keypoint order, and makes f the
// reference frame of the next call. Positions are expressed in the coordinates of vp.
func (m *Matcher) Match(ctx context.Context, f *Features, vp transform.Viewport) []tracking.MatchedFeature {
	out := make([]tracking.MatchedFeature, f.Len())
	for i, kp := range f.KeyPoints {
		out[i] = tracking.MatchedFeature{
			PrevIndex: tracking.NoMatch,
			Position:  vp.ToViewport(toPoint(kp)),
		}
	}
	prev := m.prev
	m.prev = f
	if prev.Len() == 0 || f.Len() == 0 {
		return out
	}

	matches := keypoints.MatchDescriptors(ctx, f.Descriptors, prev.Descriptors, &m.cfg.Matching, m.logger)
	maxDisp2 := utils.Square(m.cfg.MaxDisplacementPx)
	accepted := 0
	for _, match := range matches {
		cur, old := f.KeyPoints[match.Idx1], prev.KeyPoints[match.Idx2]
		if toPoint(cur).Sub(toPoint(old)).Norm2() > maxDisp2 {
			continue
		}
		bits := f.Descriptors[match.Idx1].Bits()
		degree := 0.
		if bits > 0 {
			degree = utils.ClampF64(1-float64(match.Distance)/float64(bits), 0, 1)
		}
		out[match.Idx1].PrevIndex = uint32(match.Idx2)
		out[match.Idx1].MatchDegree = degree
		accepted++
	}
	m.logger.CDebugw(ctx, "matched features",
		"features", f.Len(), "previous", prev.Len(), "candidates", len(matches), "accepted", accepted)
	return out
}

func toPoint(p image.Point) r2.Point {
	return r2.Point{X: float64(p.X), Y: float64(p.Y)}
}
