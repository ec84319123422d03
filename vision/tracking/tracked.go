package tracking

import (
	"time"

	"github.com/golang/geo/r2"
)

// TrackedPoint is the position of a tracked feature at one frame of a snapshot.
type TrackedPoint struct {
	VPPosition r2.Point
}

type trackedSlot struct {
	point   TrackedPoint
	present bool
}

type trackedFrame struct {
	timestamp time.Time
	points    []trackedSlot
}

// Tracked is a read-only snapshot of feature trajectories. Frame offset 0 is the newest frame.
// Slot i in every frame refers to the i-th feature of the newest frame.
type Tracked struct {
	frames []trackedFrame
}

// FramesCount returns the number of frames in the snapshot.
func (t *Tracked) FramesCount() int {
	return len(t.frames)
}

// PointsCount returns the number of features of the newest frame.
func (t *Tracked) PointsCount() int {
	if len(t.frames) == 0 {
		return 0
	}
	return len(t.frames[0].points)
}

// Timestamp returns the timestamp of the frame at frameOffset.
func (t *Tracked) Timestamp(frameOffset int) (time.Time, bool) {
	if frameOffset < 0 || frameOffset >= len(t.frames) {
		return time.Time{}, false
	}
	return t.frames[frameOffset].timestamp, true
}

// Point returns the position of slot at frameOffset. The second result is false if either
// index is out of range or if the slot's chain was already broken at that offset.
func (t *Tracked) Point(frameOffset, slot int) (TrackedPoint, bool) {
	if frameOffset < 0 || frameOffset >= len(t.frames) {
		return TrackedPoint{}, false
	}
	points := t.frames[frameOffset].points
	if slot < 0 || slot >= len(points) || !points[slot].present {
		return TrackedPoint{}, false
	}
	return points[slot].point, true
}

// Trajectory returns the positions of slot from the newest frame backwards, up to the first
// frame where the slot is absent.
func (t *Tracked) Trajectory(slot int) []r2.Point {
	var trajectory []r2.Point
	for offset := range t.frames {
		p, ok := t.Point(offset, slot)
		if !ok {
			break
		}
		trajectory = append(trajectory, p.VPPosition)
	}
	return trajectory
}

// Correspondences returns, in slot order, the positions of every slot present both in the
// newest frame and at frameOffset.
func (t *Tracked) Correspondences(frameOffset int) (newest, older []r2.Point) {
	for slot := 0; slot < t.PointsCount(); slot++ {
		p0, ok := t.Point(0, slot)
		if !ok {
			continue
		}
		pk, ok := t.Point(frameOffset, slot)
		if !ok {
			continue
		}
		newest = append(newest, p0.VPPosition)
		older = append(older, pk.VPPosition)
	}
	return newest, older
}
