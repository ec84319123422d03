package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/vo/rimage"
)

// ORBConfig contains the parameters / configs needed to compute ORB features.
type ORBConfig struct {
	Layers          int          `json:"n_layers"`
	DownscaleFactor float64      `json:"downscale_factor"`
	MaxKeypoints    int          `json:"max_keypoints"`
	FastConf        *FASTConfig  `json:"fast"`
	BRIEFConf       *BRIEFConfig `json:"brief"`
}

// LoadORBConfiguration loads a ORBConfig from a json file.
func LoadORBConfiguration(file string) (*ORBConfig, error) {
	var config ORBConfig
	configFile, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode ORB configuration %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the ORBConfig are valid.
func (config *ORBConfig) Validate(path string) error {
	if config.Layers < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_layers should be >= 1"))
	}
	if config.DownscaleFactor <= 1 {
		return utils.NewConfigValidationError(path, errors.New("downscale_factor should be greater than 1"))
	}
	if config.MaxKeypoints < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_keypoints should be >= 0"))
	}
	if config.FastConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "fast")
	}
	if err := config.FastConf.Validate(path + ".fast"); err != nil {
		return err
	}
	if config.BRIEFConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "brief")
	}
	return config.BRIEFConf.Validate(path + ".brief")
}

// ComputeORBKeypoints compute ORB keypoints on gray image.
// Keypoints are expressed in the coordinates of im. When MaxKeypoints > 0, only the
// MaxKeypoints best scored keypoints are kept.
func ComputeORBKeypoints(im *image.Gray, sp *SamplePairs, cfg *ORBConfig) (Descriptors, KeyPoints, error) {
	if cfg.Layers <= 0 {
		return nil, nil, errors.New("number of layers should be > 0")
	}
	pyramid, err := rimage.GetImagePyramid(im, cfg.Layers, cfg.DownscaleFactor)
	if err != nil {
		return nil, nil, err
	}
	orbDescriptors := make(Descriptors, 0)
	orbPoints := make(KeyPoints, 0)
	scores := make([]float64, 0)
	for i := range pyramid.Images {
		currentImage := pyramid.Images[i]
		currentScale := pyramid.Scales[i]
		fastKps := NewFASTKeypointsFromImage(currentImage, cfg.FastConf)
		inBounds := filterPatchInBounds(fastKps, currentImage.Bounds(), cfg.BRIEFConf.PatchSize)
		descs, err := ComputeBRIEFDescriptors(currentImage, sp, inBounds, cfg.BRIEFConf)
		if err != nil {
			return nil, nil, err
		}
		orbPoints = append(orbPoints, RescaleKeypoints(inBounds.Points, currentScale)...)
		orbDescriptors = append(orbDescriptors, descs...)
		scores = append(scores, inBounds.Scores...)
	}
	if cfg.MaxKeypoints <= 0 || len(orbPoints) <= cfg.MaxKeypoints {
		return orbDescriptors, orbPoints, nil
	}

	// keep the best scores, in detection order
	negScores := make([]float64, len(scores))
	for i, s := range scores {
		negScores[i] = -s
	}
	order := make([]int, len(scores))
	floats.Argsort(negScores, order)
	keep := make([]bool, len(scores))
	for _, idx := range order[:cfg.MaxKeypoints] {
		keep[idx] = true
	}
	bestDescriptors := make(Descriptors, 0, cfg.MaxKeypoints)
	bestPoints := make(KeyPoints, 0, cfg.MaxKeypoints)
	for i := range keep {
		if keep[i] {
			bestDescriptors = append(bestDescriptors, orbDescriptors[i])
			bestPoints = append(bestPoints, orbPoints[i])
		}
	}
	return bestDescriptors, bestPoints, nil
}

func filterPatchInBounds(kps *FASTKeypoints, bounds image.Rectangle, patchSize int) *FASTKeypoints {
	out := &FASTKeypoints{
		Points: make(KeyPoints, 0, len(kps.Points)),
		Scores: make([]float64, 0, len(kps.Points)),
	}
	if kps.IsOriented() {
		out.Orientations = make([]float64, 0, len(kps.Points))
	}
	for i, kp := range kps.Points {
		if !PatchInBounds(bounds, kp, patchSize) {
			continue
		}
		out.Points = append(out.Points, kp)
		out.Scores = append(out.Scores, kps.Scores[i])
		if kps.IsOriented() {
			out.Orientations = append(out.Orientations, kps.Orientations[i])
		}
	}
	return out
}
