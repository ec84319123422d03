// Package dataset reads image sequences, their timestamps, calibration and ground truth poses from
// public visual odometry datasets.
package dataset

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/vo/rimage/transform"
)

// Frame is an image of a sequence.
type Frame struct {
	Index     int
	Timestamp time.Time
	Path      string
}

// A Source yields the frames of a sequence in order.
type Source interface {
	// Next returns the next frame, or io.EOF once the sequence is exhausted.
	Next(ctx context.Context) (*Frame, error)
	// Intrinsics returns the calibration of the camera.
	Intrinsics() *transform.PinholeCameraIntrinsics
	// GroundTruth returns the reference poses of the camera, or nil when the sequence has none.
	GroundTruth() *GroundTruth
	Close() error
}

// SecondsToTime converts fractional seconds since the Unix epoch to a UTC time.
func SecondsToTime(seconds float64) time.Time {
	sec, frac := math.Modf(seconds)
	nsec := math.Round(frac * 1e9)
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// TimeToSeconds converts a time to fractional seconds since the Unix epoch.
func TimeToSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// record is a non-empty, non-comment line of a text file, split on white space.
type record struct {
	line   int
	fields []string
}

// readRecords reads the records of a whitespace separated text file. Lines starting with '#' are
// comments. Every record must have at least minFields fields.
func readRecords(path string, minFields int) ([]record, error) {
	//nolint:gosec
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var records []record
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < minFields {
			return nil, errors.Errorf("%s:%d: expected at least %d fields, got %d", path, lineNum, minFields, len(fields))
		}
		records = append(records, record{line: lineNum, fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	return records, nil
}

// parseFloats parses every field of fields as a float64.
func parseFloats(path string, line int, fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: invalid number %q", path, line, field)
		}
		values[i] = v
	}
	return values, nil
}

// frameList is a Source over a list of frames known in advance.
type frameList struct {
	frames      []Frame
	next        int
	intrinsics  *transform.PinholeCameraIntrinsics
	groundTruth *GroundTruth
}

func (l *frameList) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.next >= len(l.frames) {
		return nil, io.EOF
	}
	f := l.frames[l.next]
	l.next++
	return &f, nil
}

func (l *frameList) Intrinsics() *transform.PinholeCameraIntrinsics {
	return l.intrinsics
}

func (l *frameList) GroundTruth() *GroundTruth {
	return l.groundTruth
}

func (l *frameList) Close() error {
	l.next = len(l.frames)
	return nil
}

// Len returns the number of frames of the sequence.
func (l *frameList) Len() int {
	return len(l.frames)
}
