package config

import (
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/vo/dataset"
	"go.viam.com/vo/logging"
	"go.viam.com/vo/testutils"
	"go.viam.com/vo/vision/features"
	"go.viam.com/vo/vision/odometry"
)

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	t.Setenv("VO_DATASET_DIR", "/data/tum/freiburg1_xyz")
	path := testutils.WriteFile(t, dir, "vo.json", `{
		"debug": true,
		"dataset": {
			"type": "tum",
			"attributes": {"dir": "${VO_DATASET_DIR}", "seed": 3}
		},
		"tracker": {"max_frames_buffered": 5},
		"estimator": {"frame_offset": 2},
		"pipeline": {"max_frames": 100, "use_ground_truth_scale": true},
		"output": {"plot_path": "$VO_DATASET_DIR/plot.png"}
	}`)

	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Debug, test.ShouldBeTrue)
	test.That(t, cfg.Dataset.Type, test.ShouldEqual, dataset.TUMType)
	test.That(t, cfg.Dataset.Attributes["dir"], test.ShouldEqual, "/data/tum/freiburg1_xyz")
	test.That(t, cfg.Output.PlotPath, test.ShouldEqual, "/data/tum/freiburg1_xyz/plot.png")
	test.That(t, cfg.Tracker.MaxFramesBuffered, test.ShouldEqual, 5)
	test.That(t, cfg.Estimator.FrameOffset, test.ShouldEqual, 2)
	test.That(t, cfg.Estimator.MinCorrespondences, test.ShouldEqual, odometry.MinCorrespondences)
	test.That(t, cfg.Matching.MaxDisplacementPx, test.ShouldEqual, features.DefaultMaxDisplacementPx)
	test.That(t, cfg.Features.ORB, test.ShouldResemble, DefaultORBConfig())
	test.That(t, cfg.Pipeline.UseGroundTruthScale, test.ShouldBeTrue)
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name     string
		json     string
		contains string
	}{
		{"bad json", `{"dataset": `, "decode"},
		{"unknown field", `{"dataset": {"type": "tum"}, "trackers": {}}`, "trackers"},
		{"no dataset type", `{}`, "type"},
		{"small tracker", `{"dataset": {"type": "tum"}, "tracker": {"max_frames_buffered": 1}}`, "max_frames_buffered"},
		{"offset beyond tracker", `{"dataset": {"type": "tum"}, "tracker": {"max_frames_buffered": 3}, "estimator": {"frame_offset": 3}}`, "frame_offset"},
		{"bad orb", `{"dataset": {"type": "tum"}, "features": {"orb": {"n_layers": 0}}}`, "n_layers"},
		{"bad estimator", `{"dataset": {"type": "tum"}, "estimator": {"min_correspondences": 4}}`, "min_correspondences"},
		{"negative max frames", `{"dataset": {"type": "tum"}, "pipeline": {"max_frames": -1}}`, "max_frames"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("test.json", strings.NewReader(tc.json), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}

	_, err := Read("/does/not/exist.json", logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUpdateLogLevel(t *testing.T) {
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)

	UpdateLogLevel(logger, false, &Config{Debug: true})
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	UpdateLogLevel(logger, false, nil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)
	UpdateLogLevel(logger, true, &Config{})
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
}
