package tracking

import (
	"time"

	"github.com/golang/geo/r2"
)

type point struct {
	prevIndex   uint32
	vpPosition  r2.Point
	matchDegree float64
}

// linkIndex is the index the chain walk follows out of this point.
func (p *point) linkIndex() uint32 {
	if p.matchDegree > 0 {
		return p.prevIndex
	}
	return NoMatch
}

type frame struct {
	timestamp time.Time
	points    []point
}

// Tracker owns a bounded, time ordered buffer of matched frames.
// A Tracker is not safe for concurrent mutation: a single writer drives UpdateMatched.
type Tracker struct {
	maxFramesBuffered int
	// frames are stored oldest first; the newest frame is the last element.
	frames []frame
}

// NewTracker returns an empty Tracker retaining at most maxFramesBuffered frames.
// A capacity of zero is allowed, every snapshot of such a tracker is empty.
func NewTracker(maxFramesBuffered int) *Tracker {
	if maxFramesBuffered < 0 {
		maxFramesBuffered = 0
	}
	return &Tracker{
		maxFramesBuffered: maxFramesBuffered,
		frames:            make([]frame, 0, maxFramesBuffered),
	}
}

// Capacity returns the maximum number of frames the tracker retains.
func (t *Tracker) Capacity() int {
	return t.maxFramesBuffered
}

// Len returns the number of frames currently buffered.
func (t *Tracker) Len() int {
	return len(t.frames)
}

// Reset drops every buffered frame.
func (t *Tracker) Reset() {
	clear(t.frames)
	t.frames = t.frames[:0]
}

// UpdateMatched ingests the matched features of a new frame, evicting the oldest frames
// beyond capacity. PrevIndex values are not range checked here; the previous frame may
// already be gone and dangling links are resolved when snapshots are built.
func (t *Tracker) UpdateMatched(timestamp time.Time, matchedFeatures []MatchedFeature) {
	if t.maxFramesBuffered == 0 {
		return
	}
	points := make([]point, len(matchedFeatures))
	for i, mf := range matchedFeatures {
		points[i] = point{
			prevIndex:   mf.PrevIndex,
			vpPosition:  mf.Position,
			matchDegree: mf.MatchDegree,
		}
	}

	t.frames = append(t.frames, frame{timestamp: timestamp, points: points})
	if excess := len(t.frames) - t.maxFramesBuffered; excess > 0 {
		n := copy(t.frames, t.frames[excess:])
		clear(t.frames[n:])
		t.frames = t.frames[:n]
	}
}

// newest returns the frame at the given offset from the newest frame.
func (t *Tracker) newest(offset int) *frame {
	return &t.frames[len(t.frames)-1-offset]
}

// Tracked builds a snapshot of the trajectories of every feature of the newest frame.
//
// Each feature's chain is followed backwards through the buffer. A chain ends at a link with
// no match, with a zero match degree or with an index outside of the older frame. The walk
// stops as soon as no chain is left alive, so the snapshot may hold fewer frames than the
// buffer. The snapshot shares no memory with the tracker.
func (t *Tracker) Tracked() *Tracked {
	if len(t.frames) == 0 {
		return &Tracked{}
	}

	newest := t.newest(0)
	numSlots := len(newest.points)
	active := make([]uint32, numSlots)

	anchor := trackedFrame{
		timestamp: newest.timestamp,
		points:    make([]trackedSlot, numSlots),
	}
	alive := 0
	for slot := range newest.points {
		p := &newest.points[slot]
		anchor.points[slot] = trackedSlot{point: TrackedPoint{VPPosition: p.vpPosition}, present: true}
		active[slot] = p.linkIndex()
		if active[slot] != NoMatch {
			alive++
		}
	}

	tracked := &Tracked{frames: []trackedFrame{anchor}}
	for offset := 1; offset < len(t.frames) && alive > 0; offset++ {
		older := t.newest(offset)
		tf := trackedFrame{
			timestamp: older.timestamp,
			points:    make([]trackedSlot, numSlots),
		}
		for slot, idx := range active {
			if idx == NoMatch {
				continue
			}
			if int64(idx) >= int64(len(older.points)) {
				active[slot] = NoMatch
				alive--
				continue
			}
			p := &older.points[idx]
			tf.points[slot] = trackedSlot{point: TrackedPoint{VPPosition: p.vpPosition}, present: true}
			active[slot] = p.linkIndex()
			if active[slot] == NoMatch {
				alive--
			}
		}
		tracked.frames = append(tracked.frames, tf)
	}
	return tracked
}
