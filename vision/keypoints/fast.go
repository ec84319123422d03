package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/vo/rimage"
	"go.viam.com/vo/utils"
)

// FASTConfig holds the parameters necessary to compute the FAST keypoints.
type FASTConfig struct {
	NMatchesCircle int     `json:"n_matches"`
	NMSWinSize     int     `json:"nms_win_size"`
	Threshold      float64 `json:"threshold"`
	Oriented       bool    `json:"oriented"`
}

// FASTKeypoints stores keypoint locations, their FAST score and, if computed, their orientations.
type FASTKeypoints struct {
	Points       KeyPoints
	Scores       []float64
	Orientations []float64
}

type (
	// PixelType stores 0 if a pixel is darker than a potential corner, 1 if brighter and 2 if similar.
	PixelType int
)

const (
	darker  PixelType = iota // 0
	brighter                 // 1
	similar                  // 2
)

var (
	// CrossIdx contains the neighbors coordinates in a 3-cross neighborhood.
	CrossIdx = []image.Point{{0, 3}, {3, 0}, {0, -3}, {-3, 0}}
	// CircleIdx contains the neighbors coordinates in a circle of radius 3 neighborhood,
	// clockwise starting from the pixel above the center.
	CircleIdx = []image.Point{
		{0, -3},
		{1, -3},
		{2, -2},
		{3, -1},
		{3, 0},
		{3, 1},
		{2, 2},
		{1, 3},
		{0, 3},
		{-1, 3},
		{-2, 2},
		{-3, 1},
		{-3, 0},
		{-3, -1},
		{-2, -2},
		{-1, -3},
	}
)

// circleRadius is the distance to the border under which no keypoint is searched.
const circleRadius = 3

// LoadFASTConfiguration loads a FASTConfig from a json file.
func LoadFASTConfiguration(file string) (*FASTConfig, error) {
	var config FASTConfig
	configFile, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode FAST configuration %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the FASTConfig are valid.
func (config *FASTConfig) Validate(path string) error {
	if config.NMatchesCircle < 1 || config.NMatchesCircle > len(CircleIdx) {
		return goutils.NewConfigValidationError(path, errors.Errorf("n_matches should be in [1, %d]", len(CircleIdx)))
	}
	if config.NMSWinSize < 1 {
		return goutils.NewConfigValidationError(path, errors.New("nms_win_size should be >= 1"))
	}
	if config.Threshold < 0 || config.Threshold > 1 {
		return goutils.NewConfigValidationError(path, errors.New("threshold should be in [0, 1]"))
	}
	return nil
}

// NewFASTKeypointsFromImage returns a pointer to a FASTKeypoints struct containing keypoints locations and
// orientations.
func NewFASTKeypointsFromImage(img *image.Gray, cfg *FASTConfig) *FASTKeypoints {
	kps, scores := computeFAST(img, cfg)
	var orientations []float64
	if cfg.Oriented {
		orientations = computeKeypointsOrientations(img, kps)
	}
	return &FASTKeypoints{
		Points:       kps,
		Scores:       scores,
		Orientations: orientations,
	}
}

// IsOriented returns true if FASTKeypoints contains orientations.
func (kps *FASTKeypoints) IsOriented() bool {
	return kps.Orientations != nil
}

// GetPointValuesInNeighborhood returns a slice of floats containing the values of neighborhood pixels in image img.
func GetPointValuesInNeighborhood(img *image.Gray, coords image.Point, neighborhood []image.Point) []float64 {
	vals := make([]float64, len(neighborhood))
	for i := range neighborhood {
		vals[i] = float64(img.GrayAt(coords.X+neighborhood[i].X, coords.Y+neighborhood[i].Y).Y)
	}
	return vals
}

// isValidSliceVals returns true if s contains at least n consecutive non-zero values, wrapping around its end.
func isValidSliceVals(s []float64, n int) bool {
	if n <= 0 {
		return true
	}
	run := 0
	for i := 0; i < 2*len(s); i++ {
		if s[i%len(s)] != 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sumOfPositiveValuesSlice(s []float64) float64 {
	sum := 0.
	for _, v := range s {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

func sumOfNegativeValuesSlice(s []float64) float64 {
	sum := 0.
	for _, v := range s {
		if v < 0 {
			sum += v
		}
	}
	return sum
}

// getBrighterValues marks with 1 the values of s strictly greater than t.
func getBrighterValues(s []float64, t float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v > t {
			out[i] = 1
		}
	}
	return out
}

// getDarkerValues marks with 1 the values of s strictly smaller than t.
func getDarkerValues(s []float64, t float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v < t {
			out[i] = 1
		}
	}
	return out
}

// classifyCross checks the cross neighborhood; a valid arc of n >= 5 pixels on the circle always
// covers at least 2 of the 4 cross pixels.
func classifyCross(img *image.Gray, p image.Point, low, high float64, nMatches int) bool {
	if nMatches < 5 {
		return true
	}
	vals := GetPointValuesInNeighborhood(img, p, CrossIdx)
	nBrighter, nDarker := 0, 0
	for _, v := range vals {
		switch pixelType(v, low, high) {
		case brighter:
			nBrighter++
		case darker:
			nDarker++
		case similar:
		}
	}
	return nBrighter >= 2 || nDarker >= 2
}

func pixelType(v, low, high float64) PixelType {
	switch {
	case v > high:
		return brighter
	case v < low:
		return darker
	default:
		return similar
	}
}

// fastScore returns the corner score of p, or 0 if p is not a corner. The score is the summed
// contrast above threshold of the brighter or darker pixels of the circle.
func fastScore(img *image.Gray, p image.Point, cfg *FASTConfig) float64 {
	center := float64(img.GrayAt(p.X, p.Y).Y)
	t := cfg.Threshold * 255
	low, high := center-t, center+t
	if !classifyCross(img, p, low, high, cfg.NMatchesCircle) {
		return 0
	}
	vals := GetPointValuesInNeighborhood(img, p, CircleIdx)
	score := 0.
	if brighterVals := getBrighterValues(vals, high); isValidSliceVals(brighterVals, cfg.NMatchesCircle) {
		diffs := make([]float64, len(vals))
		for i, v := range vals {
			diffs[i] = brighterVals[i] * (v - high)
		}
		score = sumOfPositiveValuesSlice(diffs)
	}
	if darkerVals := getDarkerValues(vals, low); isValidSliceVals(darkerVals, cfg.NMatchesCircle) {
		diffs := make([]float64, len(vals))
		for i, v := range vals {
			diffs[i] = darkerVals[i] * (v - low)
		}
		score = max(score, -sumOfNegativeValuesSlice(diffs))
	}
	return score
}

// ComputeFAST computes the location of FAST keypoints.
// The keypoints are returned in row-major order.
func ComputeFAST(img *image.Gray, cfg *FASTConfig) KeyPoints {
	kps, _ := computeFAST(img, cfg)
	return kps
}

func computeFAST(img *image.Gray, cfg *FASTConfig) (KeyPoints, []float64) {
	gray := rimage.MakeGray(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w <= 2*circleRadius || h <= 2*circleRadius {
		return KeyPoints{}, []float64{}
	}
	scores := make([]float64, w*h)
	inner := image.Point{w - 2*circleRadius, h - 2*circleRadius}
	utils.ParallelForEachPixel(inner, func(x, y int) {
		p := image.Point{x + circleRadius, y + circleRadius}
		scores[p.Y*w+p.X] = fastScore(gray, p, cfg)
	})

	half := cfg.NMSWinSize / 2
	kps := make(KeyPoints, 0)
	kpScores := make([]float64, 0)
	for y := circleRadius; y < h-circleRadius; y++ {
		for x := circleRadius; x < w-circleRadius; x++ {
			s := scores[y*w+x]
			if s <= 0 || !isLocalMaximum(scores, w, h, x, y, half) {
				continue
			}
			kps = append(kps, image.Point{x, y})
			kpScores = append(kpScores, s)
		}
	}
	return kps, kpScores
}

// isLocalMaximum is true when no pixel of the window has a higher score, and no pixel earlier in
// row-major order ties it.
func isLocalMaximum(scores []float64, w, h, x, y, half int) bool {
	s := scores[y*w+x]
	for j := max(0, y-half); j <= min(h-1, y+half); j++ {
		for i := max(0, x-half); i <= min(w-1, x+half); i++ {
			if i == x && j == y {
				continue
			}
			other := scores[j*w+i]
			if other > s {
				return false
			}
			if other == s && (j < y || (j == y && i < x)) {
				return false
			}
		}
	}
	return true
}
