package dataset

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/spatialmath"
	rutils "go.viam.com/vo/utils"
)

// TUMType is the source type of TUM RGB-D sequences.
const TUMType = "tum"

const (
	defaultTUMRGBFile         = "rgb.txt"
	defaultTUMGroundTruthFile = "groundtruth.txt"
)

func init() {
	RegisterSourceType(TUMType, func(ctx context.Context, attributes rutils.AttributeMap, logger logging.Logger) (Source, error) {
		var conf TUMConfig
		if err := DecodeAttributes(attributes, &conf); err != nil {
			return nil, err
		}
		return NewTUMSource(&conf, logger)
	})
}

// TUMConfig describes a TUM RGB-D sequence. TUM sequences ship no calibration file, so the
// intrinsics are part of the configuration.
type TUMConfig struct {
	Dir             string                             `json:"dir"`
	RGBFile         string                             `json:"rgb_file"`
	GroundTruthFile string                             `json:"groundtruth_file"`
	Intrinsics      *transform.PinholeCameraIntrinsics `json:"intrinsics"`
	Noise           *NoiseConfig                       `json:"noise"`
	Seed            uint64                             `json:"seed"`
}

// Validate fills in defaults and ensures the configuration is usable.
func (conf *TUMConfig) Validate(path string) error {
	if conf.Dir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dir")
	}
	if conf.Intrinsics == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "intrinsics")
	}
	if err := conf.Intrinsics.CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if conf.RGBFile == "" {
		conf.RGBFile = defaultTUMRGBFile
	}
	if conf.GroundTruthFile == "" {
		conf.GroundTruthFile = defaultTUMGroundTruthFile
	}
	return nil
}

// NewTUMSource reads the image index and, when present, the ground truth of a TUM RGB-D sequence.
func NewTUMSource(conf *TUMConfig, logger logging.Logger) (Source, error) {
	if err := conf.Validate(TUMType); err != nil {
		return nil, err
	}
	frames, err := readTUMFrames(conf.Dir, filepath.Join(conf.Dir, conf.RGBFile))
	if err != nil {
		return nil, err
	}
	gtPath := filepath.Join(conf.Dir, conf.GroundTruthFile)
	var gt *GroundTruth
	if _, err := os.Stat(gtPath); err == nil {
		gt, err = ReadTUMGroundTruth(gtPath)
		if err != nil {
			return nil, err
		}
		if conf.Noise != nil {
			gt = gt.WithNoise(*conf.Noise, rand.NewPCG(conf.Seed, conf.Seed))
		}
	} else {
		logger.Debugw("sequence has no ground truth", "path", gtPath)
	}
	logger.Infow("opened TUM sequence", "dir", conf.Dir, "frames", len(frames), "ground_truth_poses", gt.Len())
	return &frameList{frames: frames, intrinsics: conf.Intrinsics, groundTruth: gt}, nil
}

func readTUMFrames(dir, indexPath string) ([]Frame, error) {
	records, err := readRecords(indexPath, 2)
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, len(records))
	for i, rec := range records {
		ts, err := parseFloats(indexPath, rec.line, rec.fields[:1])
		if err != nil {
			return nil, err
		}
		frames[i] = Frame{
			Index:     i,
			Timestamp: SecondsToTime(ts[0]),
			Path:      filepath.Join(dir, rec.fields[1]),
		}
	}
	return frames, nil
}

// ReadTUMGroundTruth reads a TUM trajectory file: "timestamp tx ty tz qx qy qz qw" per line.
func ReadTUMGroundTruth(path string) (*GroundTruth, error) {
	records, err := readRecords(path, 8)
	if err != nil {
		return nil, err
	}
	poses := make([]TimedPose, len(records))
	for i, rec := range records {
		v, err := parseFloats(path, rec.line, rec.fields[:8])
		if err != nil {
			return nil, err
		}
		q := quat.Number{Real: v[7], Imag: v[4], Jmag: v[5], Kmag: v[6]}
		if quat.Abs(q) == 0 {
			return nil, errors.Errorf("%s:%d: zero quaternion", path, rec.line)
		}
		poses[i] = TimedPose{
			Timestamp: SecondsToTime(v[0]),
			Pose:      spatialmath.NewPose(r3.Vector{X: v[1], Y: v[2], Z: v[3]}, q),
		}
	}
	return NewGroundTruth(poses), nil
}
