// Package config defines the configuration of a visual odometry run and how to read it.
package config

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/vo/dataset"
	"go.viam.com/vo/vision/features"
	"go.viam.com/vo/vision/keypoints"
	"go.viam.com/vo/vision/odometry"
)

// DefaultMaxFramesBuffered is the default number of frames the feature tracker keeps.
const DefaultMaxFramesBuffered = 8

// Config is the configuration of a visual odometry run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Debug     bool                            `json:"debug"`
	Dataset   dataset.SourceConfig            `json:"dataset"`
	Tracker   TrackerConfig                   `json:"tracker"`
	Features  FeaturesConfig                  `json:"features"`
	Matching  features.MatcherConfig          `json:"matching"`
	Estimator odometry.MotionEstimationConfig `json:"estimator"`
	Pipeline  PipelineConfig                  `json:"pipeline"`
	Output    OutputConfig                    `json:"output"`
}

// TrackerConfig configures the feature tracker.
type TrackerConfig struct {
	MaxFramesBuffered int `json:"max_frames_buffered"`
}

// FeaturesConfig configures feature extraction. Seed selects the BRIEF sampling pattern.
type FeaturesConfig struct {
	ORB  *keypoints.ORBConfig `json:"orb"`
	Seed uint64               `json:"seed"`
}

// PipelineConfig configures the run itself.
type PipelineConfig struct {
	// MaxFrames stops the run after that many frames when positive.
	MaxFrames int `json:"max_frames"`
	// UseGroundTruthScale scales every estimated translation by the distance travelled according to
	// the ground truth, when the dataset has one.
	UseGroundTruthScale bool `json:"use_ground_truth_scale"`
}

// OutputConfig lists the optional artifacts of a run.
type OutputConfig struct {
	PlotPath   string `json:"plot_path"`
	OverlayDir string `json:"overlay_dir"`
}

// DefaultORBConfig returns the ORB configuration used when none is given.
func DefaultORBConfig() *keypoints.ORBConfig {
	return &keypoints.ORBConfig{
		Layers:          3,
		DownscaleFactor: 1.5,
		MaxKeypoints:    1000,
		FastConf: &keypoints.FASTConfig{
			NMatchesCircle: 9,
			NMSWinSize:     7,
			Threshold:      0.1,
			Oriented:       true,
		},
		BRIEFConf: &keypoints.BRIEFConfig{
			N:              256,
			Sampling:       keypoints.SamplingNormal,
			UseOrientation: true,
			PatchSize:      31,
		},
	}
}

// Ensure fills in defaults and validates every section.
func (c *Config) Ensure() error {
	if c.Dataset.Type == "" {
		return utils.NewConfigValidationFieldRequiredError("dataset", "type")
	}
	if c.Tracker.MaxFramesBuffered == 0 {
		c.Tracker.MaxFramesBuffered = DefaultMaxFramesBuffered
	}
	if c.Tracker.MaxFramesBuffered < 2 {
		return utils.NewConfigValidationError("tracker", errors.New("max_frames_buffered should be >= 2"))
	}
	if c.Features.ORB == nil {
		c.Features.ORB = DefaultORBConfig()
	}
	if err := c.Features.ORB.Validate("features.orb"); err != nil {
		return err
	}
	if c.Matching.MaxDisplacementPx == 0 {
		c.Matching.MaxDisplacementPx = features.DefaultMaxDisplacementPx
	}
	if c.Matching.MaxDisplacementPx < 0 {
		return utils.NewConfigValidationError("matching", errors.New("max_displacement_px should be > 0"))
	}
	if err := c.Estimator.Validate("estimator"); err != nil {
		return err
	}
	if c.Estimator.FrameOffset >= c.Tracker.MaxFramesBuffered {
		return utils.NewConfigValidationError("estimator",
			errors.Errorf("frame_offset should be lower than tracker.max_frames_buffered (%d)", c.Tracker.MaxFramesBuffered))
	}
	if c.Pipeline.MaxFrames < 0 {
		return utils.NewConfigValidationError("pipeline", errors.New("max_frames should be >= 0"))
	}
	return nil
}
