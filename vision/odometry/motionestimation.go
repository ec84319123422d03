// Package odometry estimates camera motion from tracked feature correspondences and accumulates it
// into a trajectory.
package odometry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/spatialmath"
	rutils "go.viam.com/vo/utils"
	"go.viam.com/vo/vision/tracking"
)

const (
	// DefaultFrameOffset is the default number of frames between the two views used for estimation.
	DefaultFrameOffset = 1
	// MinCorrespondences is the smallest number of correspondences the 8-point algorithm accepts.
	MinCorrespondences = 8
)

var (
	// ErrNotEnoughFrames is returned when a snapshot holds fewer than two frames.
	ErrNotEnoughFrames = errors.New("not enough frames to estimate motion")
	// ErrNotEnoughCorrespondences is returned when too few features are tracked between the two views.
	ErrNotEnoughCorrespondences = errors.New("not enough correspondences to estimate motion")
)

// MotionEstimationConfig contains the parameters needed for motion estimation between two video frames.
type MotionEstimationConfig struct {
	FrameOffset        int                                `json:"frame_offset"`
	MinCorrespondences int                                `json:"min_correspondences"`
	CamIntrinsics      *transform.PinholeCameraIntrinsics `json:"intrinsic_parameters,omitempty"`
}

// LoadMotionEstimationConfig loads a motion estimation configuration from a json file.
func LoadMotionEstimationConfig(path string) (*MotionEstimationConfig, error) {
	var config MotionEstimationConfig
	configFile, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode motion estimation configuration %q", path)
	}
	if err := config.Validate(path); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate fills in defaults and ensures the configuration is usable. Intrinsics are optional here
// since a dataset may provide them.
func (config *MotionEstimationConfig) Validate(path string) error {
	if config.FrameOffset == 0 {
		config.FrameOffset = DefaultFrameOffset
	}
	if config.FrameOffset < 0 {
		return utils.NewConfigValidationError(path, errors.New("frame_offset should be >= 1"))
	}
	if config.MinCorrespondences == 0 {
		config.MinCorrespondences = MinCorrespondences
	}
	if config.MinCorrespondences < MinCorrespondences {
		return utils.NewConfigValidationError(path,
			errors.Errorf("min_correspondences should be >= %d", MinCorrespondences))
	}
	if config.CamIntrinsics != nil {
		if err := config.CamIntrinsics.CheckValid(); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// Motion3D contains the estimated 3D rotation and translation from 2 frames: a point X in the older
// camera frame is Rotation*X + Translation in the newer one.
type Motion3D struct {
	Rotation    *mat.Dense
	Translation *mat.Dense
	// FrameOffset is the number of frames between the two views.
	FrameOffset int
}

// NewMotion3DFromRotationTranslation returns a new pointer to Motion3D from a rotation and a translation matrix.
func NewMotion3DFromRotationTranslation(rotation, translation *mat.Dense) *Motion3D {
	return &Motion3D{
		Rotation:    rotation,
		Translation: translation,
		FrameOffset: 1,
	}
}

// NewIdentityMotion3D returns a motion that does not move the camera.
func NewIdentityMotion3D(frameOffset int) *Motion3D {
	rot := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	return &Motion3D{Rotation: rot, Translation: mat.NewDense(3, 1, nil), FrameOffset: frameOffset}
}

// Orientation returns the rotation of the motion as a unit quaternion.
func (m *Motion3D) Orientation() quat.Number {
	return spatialmath.QuatFromRotationMatrix(m.Rotation)
}

// TranslationVector returns the translation of the motion.
func (m *Motion3D) TranslationVector() r3.Vector {
	return r3.Vector{X: m.Translation.At(0, 0), Y: m.Translation.At(1, 0), Z: m.Translation.At(2, 0)}
}

// Pose returns the motion as the transform from the older camera frame to the newer one.
func (m *Motion3D) Pose() spatialmath.Pose {
	return spatialmath.NewPose(m.TranslationVector(), m.Orientation())
}

// Estimator estimates camera motion from Tracked snapshots.
type Estimator struct {
	cfg      MotionEstimationConfig
	viewport transform.Viewport
	k        *mat.Dense
	logger   logging.Logger
}

// NewEstimator returns an Estimator for images of the given viewport. cfg must hold valid intrinsics.
func NewEstimator(cfg *MotionEstimationConfig, viewport transform.Viewport, logger logging.Logger) (*Estimator, error) {
	if cfg == nil {
		return nil, errors.New("motion estimation configuration is required")
	}
	estCfg := *cfg
	if err := estCfg.Validate("estimator"); err != nil {
		return nil, err
	}
	if err := estCfg.CamIntrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return &Estimator{
		cfg:      estCfg,
		viewport: viewport,
		k:        estCfg.CamIntrinsics.GetCameraMatrix(),
		logger:   logger,
	}, nil
}

// FrameOffset returns the frame offset used with a snapshot of framesCount frames.
func (e *Estimator) FrameOffset(framesCount int) int {
	return min(e.cfg.FrameOffset, framesCount-1)
}

// EstimateMotion estimates the motion of the camera between the frame FrameOffset frames back and the
// newest frame of tracked. The translation has unit norm.
func (e *Estimator) EstimateMotion(tracked *tracking.Tracked) (*Motion3D, error) {
	if tracked == nil || tracked.FramesCount() < 2 {
		return nil, ErrNotEnoughFrames
	}
	offset := e.FrameOffset(tracked.FramesCount())
	newest, older := tracked.Correspondences(offset)
	if len(newest) < e.cfg.MinCorrespondences {
		return nil, errors.Wrapf(ErrNotEnoughCorrespondences, "got %d, need %d", len(newest), e.cfg.MinCorrespondences)
	}
	pose, err := transform.EstimateNewPose(e.toPixels(older), e.toPixels(newest), e.k)
	if err != nil {
		return nil, errors.Wrap(err, "cannot estimate pose")
	}
	motion := &Motion3D{
		Rotation:    pose.Rotation,
		Translation: pose.Translation,
		FrameOffset: offset,
	}
	e.logger.Debugw("estimated motion",
		"frame_offset", offset,
		"correspondences", len(newest),
		"translation", motion.TranslationVector(),
		"rotation_deg", rutils.RadToDeg(spatialmath.QuatToAngle(motion.Orientation())))
	return motion, nil
}

func (e *Estimator) toPixels(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = e.viewport.ToPixel(p)
	}
	return out
}
