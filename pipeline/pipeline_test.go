package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/vo/config"
	"go.viam.com/vo/dataset"
	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/testutils"
	"go.viam.com/vo/utils"
	"go.viam.com/vo/vision/features"
	"go.viam.com/vo/vision/keypoints"
	"go.viam.com/vo/vision/tracking"
)

const (
	seqWidth  = 160
	seqHeight = 120
)

func seqIntrinsics() map[string]interface{} {
	return map[string]interface{}{
		"width_px": float64(seqWidth), "height_px": float64(seqHeight),
		"fx": 150., "fy": 150., "ppx": 80., "ppy": 60.,
	}
}

// writeSequence writes a TUM sequence of n frames 0.1s apart, the camera sliding along X.
func writeSequence(t *testing.T, dir string, n int, withGroundTruth bool) {
	t.Helper()
	base := testutils.TexturedImage(seqWidth, seqHeight, 6, 11)
	paths := testutils.WriteShiftedSequence(t, dir, "rgb", base, image.Pt(2, 0), n,
		func(i int) string { return fmt.Sprintf("%d.png", i) })
	var rgb, gt strings.Builder
	rgb.WriteString("# timestamp filename\n")
	gt.WriteString("# timestamp tx ty tz qx qy qz qw\n")
	for i, p := range paths {
		ts := 1000 + 0.1*float64(i)
		fmt.Fprintf(&rgb, "%.6f %s\n", ts, p)
		fmt.Fprintf(&gt, "%.6f %.3f 0 0 0 0 0 1\n", ts, -0.05*float64(i))
	}
	testutils.WriteFile(t, dir, "rgb.txt", rgb.String())
	if withGroundTruth {
		testutils.WriteFile(t, dir, "groundtruth.txt", gt.String())
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Dataset: dataset.SourceConfig{Type: dataset.TUMType},
		Features: config.FeaturesConfig{ORB: &keypoints.ORBConfig{
			Layers:          2,
			DownscaleFactor: 2,
			FastConf: &keypoints.FASTConfig{
				NMatchesCircle: 9,
				NMSWinSize:     7,
				Threshold:      0.15,
				Oriented:       true,
			},
			BRIEFConf: &keypoints.BRIEFConfig{
				N:              256,
				Sampling:       keypoints.SamplingNormal,
				UseOrientation: true,
				PatchSize:      31,
			},
		}},
	}
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	return cfg
}

func openSequence(t *testing.T, dir string, logger logging.Logger) dataset.Source {
	t.Helper()
	src, err := dataset.NewSource(context.Background(), dataset.SourceConfig{
		Type:       dataset.TUMType,
		Attributes: utils.AttributeMap{"dir": dir, "intrinsics": seqIntrinsics()},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, src.Close(), test.ShouldBeNil) })
	return src
}

func newPipeline(t *testing.T, cfg *config.Config, src dataset.Source, logger logging.Logger) *Pipeline {
	t.Helper()
	extractor, err := features.NewORBExtractor(cfg.Features.ORB, cfg.Features.Seed)
	test.That(t, err, test.ShouldBeNil)
	p, err := New(cfg, src, extractor, logger)
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestRun(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	writeSequence(t, dir, 5, true)
	src := openSequence(t, dir, logger)

	cfg := testConfig(t)
	cfg.Pipeline.UseGroundTruthScale = true
	cfg.Output.OverlayDir = filepath.Join(dir, "overlays")

	res, err := newPipeline(t, cfg, src, logger).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Frames, test.ShouldEqual, 5)
	test.That(t, res.Trajectory.Len(), test.ShouldEqual, 5)
	test.That(t, len(res.Reference), test.ShouldEqual, 5)
	test.That(t, res.Report, test.ShouldNotBeNil)
	test.That(t, res.Report.Count, test.ShouldEqual, 5)

	// the trajectory starts where the ground truth does
	first := res.Trajectory.Positions()[0]
	test.That(t, first.X, test.ShouldAlmostEqual, 0)
	test.That(t, res.Reference[4].X, test.ShouldAlmostEqual, -0.2)

	entries, err := os.ReadDir(cfg.Output.OverlayDir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 5)
	test.That(t, entries[0].Name(), test.ShouldEqual, "000000.png")
}

func TestRunMaxFrames(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	writeSequence(t, dir, 5, false)
	src := openSequence(t, dir, logger)

	cfg := testConfig(t)
	cfg.Pipeline.MaxFrames = 3
	res, err := newPipeline(t, cfg, src, logger).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Frames, test.ShouldEqual, 3)
	test.That(t, res.Trajectory.Len(), test.ShouldEqual, 3)
	test.That(t, res.Reference, test.ShouldBeNil)
	test.That(t, res.Report, test.ShouldBeNil)
}

func TestRunCanceled(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	writeSequence(t, dir, 3, false)
	src := openSequence(t, dir, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(t, testConfig(t), src, logger).Run(ctx)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

// staticSource serves a fixed list of frames.
type staticSource struct {
	frames     []dataset.Frame
	intrinsics *transform.PinholeCameraIntrinsics
	next       int
}

func (s *staticSource) Next(ctx context.Context) (*dataset.Frame, error) {
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return &f, nil
}

func (s *staticSource) Intrinsics() *transform.PinholeCameraIntrinsics { return s.intrinsics }

func (s *staticSource) GroundTruth() *dataset.GroundTruth { return nil }

func (s *staticSource) Close() error { return nil }

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testConfig(t)
	extractor, err := features.NewORBExtractor(cfg.Features.ORB, 0)
	test.That(t, err, test.ShouldBeNil)

	_, err = New(nil, &staticSource{}, extractor, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(cfg, nil, extractor, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(cfg, &staticSource{}, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = New(cfg, &staticSource{}, extractor, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "intrinsics")

	// intrinsics from the configuration win over the dataset's
	withIntrinsics := *cfg
	withIntrinsics.Estimator.CamIntrinsics = &transform.PinholeCameraIntrinsics{
		Width: 320, Height: 240, Fx: 300, Fy: 300, Ppx: 160, Ppy: 120,
	}
	p, err := New(&withIntrinsics, &staticSource{intrinsics: &transform.PinholeCameraIntrinsics{
		Width: seqWidth, Height: seqHeight, Fx: 150, Fy: 150, Ppx: 80, Ppy: 60,
	}}, extractor, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.viewport, test.ShouldResemble, transform.Viewport{Width: 320, Height: 240})
}

func TestRunSizeMismatch(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	writeSequence(t, dir, 2, false)
	src := &staticSource{
		frames: []dataset.Frame{
			{Index: 0, Timestamp: dataset.SecondsToTime(1000), Path: filepath.Join(dir, "rgb", "0.png")},
			{Index: 1, Timestamp: dataset.SecondsToTime(1000.1), Path: filepath.Join(dir, "rgb", "1.png")},
		},
		intrinsics: &transform.PinholeCameraIntrinsics{Width: 320, Height: 240, Fx: 300, Fy: 300, Ppx: 160, Ppy: 120},
	}
	_, err := newPipeline(t, testConfig(t), src, logger).Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "intrinsics expect 320x240")
}

func TestStepRestartsTracksAfterBlankFrame(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testConfig(t)
	src := &staticSource{intrinsics: &transform.PinholeCameraIntrinsics{
		Width: seqWidth, Height: seqHeight, Fx: 150, Fy: 150, Ppx: 80, Ppy: 60,
	}}
	p := newPipeline(t, cfg, src, logger)

	base := testutils.TexturedImage(seqWidth, seqHeight, 6, 11)
	images := []*image.Gray{
		base,
		testutils.ShiftImage(base, image.Pt(2, 0)),
		rimage.NewUniformGray(seqWidth, seqHeight, 128),
		testutils.ShiftImage(base, image.Pt(4, 0)),
		testutils.ShiftImage(base, image.Pt(6, 0)),
	}
	steps := make([]*tracking.Tracked, len(images))
	buffered := make([]int, len(images))
	for i, img := range images {
		feats, err := p.extractor.Extract(img)
		test.That(t, err, test.ShouldBeNil)
		if i == 2 {
			test.That(t, feats.Len(), test.ShouldEqual, 0)
		} else {
			test.That(t, feats.Len(), test.ShouldBeGreaterThan, 0)
		}
		steps[i] = p.step(context.Background(), preparedFrame{
			frame:    &dataset.Frame{Index: i, Timestamp: dataset.SecondsToTime(1000 + 0.1*float64(i))},
			img:      img,
			features: feats,
		})
		buffered[i] = p.tracker.Len()
	}

	test.That(t, buffered, test.ShouldResemble, []int{1, 2, 1, 1, 2})
	test.That(t, steps[1].FramesCount(), test.ShouldEqual, 2)

	// the blank frame breaks every track and becomes the only buffered frame
	test.That(t, steps[2].FramesCount(), test.ShouldEqual, 1)
	test.That(t, steps[2].PointsCount(), test.ShouldEqual, 0)

	// the frame after it starts over
	test.That(t, steps[3].FramesCount(), test.ShouldEqual, 1)
	test.That(t, steps[3].PointsCount(), test.ShouldBeGreaterThan, 0)
	ts, ok := steps[3].Timestamp(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ts, test.ShouldEqual, dataset.SecondsToTime(1000+0.1*3))

	// and tracks resume on the next one
	test.That(t, steps[4].FramesCount(), test.ShouldEqual, 2)
	ts, ok = steps[4].Timestamp(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ts, test.ShouldEqual, dataset.SecondsToTime(1000+0.1*3))
}
