package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/spatialmath"
	rutils "go.viam.com/vo/utils"
)

// KITTIType is the source type of KITTI odometry sequences.
const KITTIType = "kitti"

func init() {
	RegisterSourceType(KITTIType, func(ctx context.Context, attributes rutils.AttributeMap, logger logging.Logger) (Source, error) {
		var conf KITTIConfig
		if err := DecodeAttributes(attributes, &conf); err != nil {
			return nil, err
		}
		return NewKITTISource(&conf, logger)
	})
}

// KITTIConfig describes a sequence of the KITTI odometry benchmark. Dir is the dataset root holding
// the sequences and poses directories.
type KITTIConfig struct {
	Dir      string       `json:"dir"`
	Sequence int          `json:"sequence"`
	Camera   int          `json:"camera"`
	Noise    *NoiseConfig `json:"noise"`
	Seed     uint64       `json:"seed"`
}

// Validate ensures the configuration is usable.
func (conf *KITTIConfig) Validate(path string) error {
	if conf.Dir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dir")
	}
	if conf.Sequence < 0 {
		return utils.NewConfigValidationError(path, errors.New("sequence should be >= 0"))
	}
	if conf.Camera < 0 || conf.Camera > 3 {
		return utils.NewConfigValidationError(path, errors.New("camera should be between 0 and 3"))
	}
	return nil
}

func (conf *KITTIConfig) sequenceDir() string {
	return filepath.Join(conf.Dir, "sequences", fmt.Sprintf("%02d", conf.Sequence))
}

// NewKITTISource reads the timestamps, the calibration and, when present, the poses of a KITTI sequence.
func NewKITTISource(conf *KITTIConfig, logger logging.Logger) (Source, error) {
	if err := conf.Validate(KITTIType); err != nil {
		return nil, err
	}
	seqDir := conf.sequenceDir()
	times, err := readKITTITimes(filepath.Join(seqDir, "times.txt"))
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, errors.Errorf("sequence %s has no frames", seqDir)
	}
	imageDir := filepath.Join(seqDir, fmt.Sprintf("image_%d", conf.Camera))
	frames := make([]Frame, len(times))
	for i, ts := range times {
		frames[i] = Frame{Index: i, Timestamp: SecondsToTime(ts), Path: filepath.Join(imageDir, fmt.Sprintf("%06d.png", i))}
	}

	projection, err := ReadKITTICalibration(filepath.Join(seqDir, "calib.txt"), conf.Camera)
	if err != nil {
		return nil, err
	}
	first, err := rimage.NewGrayImageFromFile(frames[0].Path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read the first frame to get the image size")
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromProjection(projection, first.Bounds().Dx(), first.Bounds().Dy())
	if err != nil {
		return nil, err
	}

	posesPath := filepath.Join(conf.Dir, "poses", fmt.Sprintf("%02d.txt", conf.Sequence))
	var gt *GroundTruth
	if _, err := os.Stat(posesPath); err == nil {
		gt, err = ReadKITTIPoses(posesPath, frames)
		if err != nil {
			return nil, err
		}
		if conf.Noise != nil {
			gt = gt.WithNoise(*conf.Noise, rand.NewPCG(conf.Seed, conf.Seed))
		}
	} else {
		logger.Debugw("sequence has no ground truth", "path", posesPath)
	}
	logger.Infow("opened KITTI sequence", "dir", seqDir, "frames", len(frames), "ground_truth_poses", gt.Len())
	return &frameList{frames: frames, intrinsics: intrinsics, groundTruth: gt}, nil
}

func readKITTITimes(path string) ([]float64, error) {
	records, err := readRecords(path, 1)
	if err != nil {
		return nil, err
	}
	times := make([]float64, len(records))
	for i, rec := range records {
		v, err := parseFloats(path, rec.line, rec.fields[:1])
		if err != nil {
			return nil, err
		}
		times[i] = v[0]
	}
	return times, nil
}

// ReadKITTICalibration returns the 3x4 projection matrix of camera from a KITTI calib.txt file,
// made of lines like "P0: 12 values".
func ReadKITTICalibration(path string, camera int) (*mat.Dense, error) {
	records, err := readRecords(path, 13)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("P%d:", camera)
	for _, rec := range records {
		if rec.fields[0] != key {
			continue
		}
		v, err := parseFloats(path, rec.line, rec.fields[1:13])
		if err != nil {
			return nil, err
		}
		return mat.NewDense(3, 4, v), nil
	}
	return nil, errors.Errorf("%s has no projection matrix for camera %d", path, camera)
}

// ReadKITTIPoses reads a KITTI poses file, one 3x4 row-major [R|t] matrix per line, and stamps each
// pose with the timestamp of the frame of the same index.
func ReadKITTIPoses(path string, frames []Frame) (*GroundTruth, error) {
	records, err := readRecords(path, 12)
	if err != nil {
		return nil, err
	}
	if len(records) != len(frames) {
		return nil, errors.Errorf("%s has %d poses for %d frames", path, len(records), len(frames))
	}
	poses := make([]TimedPose, len(records))
	for i, rec := range records {
		v, err := parseFloats(path, rec.line, rec.fields[:12])
		if err != nil {
			return nil, err
		}
		rot := mat.NewDense(3, 3, []float64{v[0], v[1], v[2], v[4], v[5], v[6], v[8], v[9], v[10]})
		poses[i] = TimedPose{
			Timestamp: frames[i].Timestamp,
			Pose:      spatialmath.NewPose(r3.Vector{X: v[3], Y: v[7], Z: v[11]}, spatialmath.QuatFromRotationMatrix(rot)),
		}
	}
	return NewGroundTruth(poses), nil
}
