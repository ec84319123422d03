package dataset

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/testutils"
	"go.viam.com/vo/utils"
)

func TestSecondsToTime(t *testing.T) {
	ts := SecondsToTime(1305031102.175304)
	test.That(t, ts.Unix(), test.ShouldEqual, int64(1305031102))
	test.That(t, math.Abs(float64(ts.Nanosecond())-175304000), test.ShouldBeLessThan, 1000)
	test.That(t, TimeToSeconds(ts), test.ShouldAlmostEqual, 1305031102.175304, 1e-6)
	test.That(t, SecondsToTime(0.5), test.ShouldEqual, time.Unix(0, 5e8).UTC())
}

func TestReadRecords(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteFile(t, dir, "index.txt", "# comment\n\n1 a\n  2 b extra  \n")
	records, err := readRecords(path, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(records), test.ShouldEqual, 2)
	test.That(t, records[0], test.ShouldResemble, record{line: 3, fields: []string{"1", "a"}})
	test.That(t, records[1].fields, test.ShouldResemble, []string{"2", "b", "extra"})

	_, err = readRecords(path, 3)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ":3:")

	_, err = parseFloats(path, 3, []string{"1.5", "x"})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = readRecords(filepath.Join(dir, "missing.txt"), 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func writeTUMSequence(t *testing.T, dir string, withGroundTruth bool) {
	t.Helper()
	testutils.WriteFile(t, dir, "rgb.txt", `# color images
# file: 'rgbd_dataset_freiburg1_xyz.bag'
# timestamp filename
1305031102.175304 rgb/1305031102.175304.png
1305031102.211214 rgb/1305031102.211214.png
1305031102.243211 rgb/1305031102.243211.png
`)
	if withGroundTruth {
		testutils.WriteFile(t, dir, "groundtruth.txt", `# ground truth trajectory
# timestamp tx ty tz qx qy qz qw
1305031102.1000 1.0 0.0 0.0 0 0 0 1
1305031102.2000 2.0 0.0 0.0 0 0 0 1
1305031102.3000 3.0 0.0 0.0 0 0 0 1
1305031102.4000 4.0 0.0 0.0 0 0 0 1
`)
	}
}

func tumAttributes(dir string) utils.AttributeMap {
	return utils.AttributeMap{
		"dir": dir,
		"intrinsics": map[string]interface{}{
			"width_px": 640., "height_px": 480., "fx": 517.3, "fy": 516.5, "ppx": 318.6, "ppy": 255.3,
		},
	}
}

func TestTUMSource(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	writeTUMSequence(t, dir, true)

	src, err := NewSource(context.Background(), SourceConfig{Type: TUMType, Attributes: tumAttributes(dir)}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, src.Close(), test.ShouldBeNil)
	}()
	test.That(t, src.Intrinsics().Fx, test.ShouldEqual, 517.3)
	test.That(t, src.Intrinsics().Width, test.ShouldEqual, 640)
	test.That(t, src.GroundTruth().Len(), test.ShouldEqual, 4)

	var frames []*Frame
	for {
		f, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		test.That(t, err, test.ShouldBeNil)
		frames = append(frames, f)
	}
	test.That(t, len(frames), test.ShouldEqual, 3)
	test.That(t, frames[1].Index, test.ShouldEqual, 1)
	test.That(t, frames[1].Path, test.ShouldEqual, filepath.Join(dir, "rgb", "1305031102.211214.png"))
	test.That(t, TimeToSeconds(frames[2].Timestamp), test.ShouldAlmostEqual, 1305031102.243211, 1e-6)

	pose, ok := src.GroundTruth().Pose(frames[0].Timestamp)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1.75304, 1e-4)
}

func tumIntrinsics() *transform.PinholeCameraIntrinsics {
	return &transform.PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 517.3, Fy: 516.5, Ppx: 318.6, Ppy: 255.3}
}

func TestTUMSourceErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	writeTUMSequence(t, dir, false)

	src, err := NewTUMSource(&TUMConfig{Dir: dir, Intrinsics: tumIntrinsics()}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.GroundTruth(), test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	test.That(t, err, test.ShouldEqual, context.Canceled)

	_, err = NewTUMSource(&TUMConfig{Dir: dir}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "intrinsics")
	_, err = NewTUMSource(&TUMConfig{Intrinsics: tumIntrinsics()}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewTUMSource(&TUMConfig{Dir: filepath.Join(dir, "nope"), Intrinsics: tumIntrinsics()}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	testutils.WriteFile(t, dir, "groundtruth.txt", "1305031102.1 1 2 3 0 0 0\n")
	_, err = NewTUMSource(&TUMConfig{Dir: dir, Intrinsics: tumIntrinsics()}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestKITTISource(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	seq := filepath.Join("sequences", "03")
	base := testutils.TexturedImage(120, 40, 8, 1)
	testutils.WriteShiftedSequence(t, dir, filepath.Join(seq, "image_0"), base, image.Point{1, 0}, 3,
		func(i int) string { return fmt.Sprintf("%06d.png", i) })
	testutils.WriteFile(t, dir, filepath.Join(seq, "times.txt"), "0.000000e+00\n1.036224e-01\n2.072448e-01\n")
	testutils.WriteFile(t, dir, filepath.Join(seq, "calib.txt"),
		"P0: 7.215377e+02 0.000000e+00 6.095593e+02 0.000000e+00 0.000000e+00 7.215377e+02 1.728540e+02 0.000000e+00 0.000000e+00 0.000000e+00 1.000000e+00 0.000000e+00\n"+
			"P1: 7.215377e+02 0.000000e+00 6.095593e+02 -3.875744e+02 0.000000e+00 7.215377e+02 1.728540e+02 0.000000e+00 0.000000e+00 0.000000e+00 1.000000e+00 0.000000e+00\n")
	testutils.WriteFile(t, dir, filepath.Join("poses", "03.txt"),
		"1 0 0 0 0 1 0 0 0 0 1 0\n"+
			"1 0 0 0 0 1 0 0 0 0 1 1\n"+
			"1 0 0 0 0 1 0 0 0 0 1 2\n")

	src, err := NewSource(context.Background(), SourceConfig{
		Type:       KITTIType,
		Attributes: utils.AttributeMap{"dir": dir, "sequence": 3.},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	intrinsics := src.Intrinsics()
	test.That(t, intrinsics.Width, test.ShouldEqual, 120)
	test.That(t, intrinsics.Height, test.ShouldEqual, 40)
	test.That(t, intrinsics.Fx, test.ShouldEqual, 721.5377)
	test.That(t, intrinsics.Ppx, test.ShouldEqual, 609.5593)

	f, err := src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Path, test.ShouldEqual, filepath.Join(dir, seq, "image_0", "000000.png"))
	f, err = src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	d, ok := src.GroundTruth().Distance(time.Unix(0, 0).UTC(), f.Timestamp)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d, test.ShouldAlmostEqual, 1.)

	// missing camera in calib.txt
	_, err = NewKITTISource(&KITTIConfig{Dir: dir, Sequence: 3, Camera: 2}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewKITTISource(&KITTIConfig{Dir: dir, Sequence: 3, Camera: 7}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	// poses and frames do not line up
	testutils.WriteFile(t, dir, filepath.Join("poses", "03.txt"), "1 0 0 0 0 1 0 0 0 0 1 0\n")
	_, err = NewKITTISource(&KITTIConfig{Dir: dir, Sequence: 3}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegistry(t *testing.T) {
	logger := logging.NewTestLogger(t)
	test.That(t, RegisteredSourceTypes(), test.ShouldResemble, []string{KITTIType, TUMType})

	_, err := NewSource(context.Background(), SourceConfig{Type: "euroc"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "euroc")

	dir := t.TempDir()
	writeTUMSequence(t, dir, false)
	attrs := tumAttributes(dir)
	attrs["unknown_field"] = true
	_, err = NewSource(context.Background(), SourceConfig{Type: TUMType, Attributes: attrs}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, func() { RegisterSourceType(TUMType, nil) }, test.ShouldPanic)
}
