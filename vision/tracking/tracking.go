// Package tracking maintains multi-frame feature tracks over a bounded window of frames.
//
// A Tracker ingests, one frame at a time, the pairwise correspondences produced by a feature
// matcher: every feature of the current frame optionally points back to the index of a feature
// in the previous frame. Tracked snapshots rebuild, for every feature of the newest frame, its
// position history by walking those back-links from the newest frame to the oldest one.
package tracking

import (
	"math"

	"github.com/golang/geo/r2"
)

// NoMatch is the PrevIndex value a matcher uses for a feature with no correspondence in the
// previous frame.
const NoMatch = uint32(math.MaxUint32)

// MatchedFeature is a feature of the current frame as reported by a matcher.
type MatchedFeature struct {
	// PrevIndex is the index of the corresponding feature in the previous frame, or NoMatch.
	PrevIndex uint32
	// Position is the feature location in recentered viewport coordinates.
	Position r2.Point
	// MatchDegree is the confidence in [0, 1] that PrevIndex is a valid correspondence.
	// A degree of 0 means the feature is unmatched, whatever PrevIndex holds.
	MatchDegree float64
}

// IsMatched returns true if the feature has a usable link to the previous frame.
func (mf MatchedFeature) IsMatched() bool {
	return mf.PrevIndex != NoMatch && mf.MatchDegree > 0
}
