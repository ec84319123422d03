// Package pipeline runs visual odometry over a dataset: features are extracted from every frame,
// matched against the previous one, tracked across frames, and turned into a camera trajectory.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/vo/config"
	"go.viam.com/vo/dataset"
	"go.viam.com/vo/logging"
	"go.viam.com/vo/rimage"
	"go.viam.com/vo/rimage/transform"
	"go.viam.com/vo/spatialmath"
	"go.viam.com/vo/utils"
	"go.viam.com/vo/vision/features"
	"go.viam.com/vo/vision/odometry"
	"go.viam.com/vo/vision/tracking"
)

const (
	prefetchDepth = 2
	overlayDepth  = 4
	matchedWindow = 10
)

// Result summarizes a run.
type Result struct {
	Frames     int
	Trajectory *odometry.Trajectory
	// Reference holds the ground truth position of every frame. It is nil unless the dataset has a
	// ground truth covering every frame.
	Reference []r3.Vector
	Report    *odometry.ErrorReport
}

// Pipeline processes the frames of a dataset. It is not safe for concurrent use.
type Pipeline struct {
	cfg        *config.Config
	src        dataset.Source
	extractor  features.Extractor
	matcher    *features.Matcher
	tracker    *tracking.Tracker
	estimator  *odometry.Estimator
	viewport   transform.Viewport
	overlayDir string
	matchedAvg *utils.RollingAverage
	logger     logging.Logger
}

type preparedFrame struct {
	frame    *dataset.Frame
	img      *image.Gray
	features *features.Features
}

type overlay struct {
	index   int
	img     *image.Gray
	tracked *tracking.Tracked
}

// New returns a Pipeline reading frames from src. The camera intrinsics come from the estimator
// configuration when set, from the dataset otherwise.
func New(cfg *config.Config, src dataset.Source, extractor features.Extractor, logger logging.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline configuration is required")
	}
	if src == nil {
		return nil, errors.New("dataset source is required")
	}
	if extractor == nil {
		return nil, errors.New("feature extractor is required")
	}
	estCfg := cfg.Estimator
	if estCfg.CamIntrinsics == nil {
		estCfg.CamIntrinsics = src.Intrinsics()
	}
	if estCfg.CamIntrinsics == nil {
		return nil, transform.NewNoIntrinsicsError("neither the estimator nor the dataset provide intrinsics")
	}
	viewport := estCfg.CamIntrinsics.Viewport()
	estimator, err := odometry.NewEstimator(&estCfg, viewport, logger.Sublogger("estimator"))
	if err != nil {
		return nil, err
	}
	maxFrames := cfg.Tracker.MaxFramesBuffered
	if maxFrames == 0 {
		maxFrames = config.DefaultMaxFramesBuffered
	}
	return &Pipeline{
		cfg:        cfg,
		src:        src,
		extractor:  extractor,
		matcher:    features.NewMatcher(cfg.Matching, logger.Sublogger("matcher")),
		tracker:    tracking.NewTracker(maxFrames),
		estimator:  estimator,
		viewport:   viewport,
		overlayDir: cfg.Output.OverlayDir,
		matchedAvg: utils.NewRollingAverage(matchedWindow),
		logger:     logger,
	}, nil
}

// Run processes the dataset until it is exhausted, the configured frame limit is reached or ctx is
// done. The next frame is decoded and its features extracted while the current one is processed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.overlayDir != "" {
		if err := os.MkdirAll(p.overlayDir, 0o750); err != nil {
			return nil, errors.Wrapf(err, "cannot create overlay directory %q", p.overlayDir)
		}
	}
	gt := p.src.GroundTruth()
	g, gctx := errgroup.WithContext(ctx)

	frames := make(chan preparedFrame, prefetchDepth)
	g.Go(func() error {
		defer close(frames)
		return p.prefetch(gctx, frames)
	})

	var overlays chan overlay
	if p.overlayDir != "" {
		overlays = make(chan overlay, overlayDepth)
		g.Go(func() error {
			return p.writeOverlays(overlays)
		})
	}

	var (
		trajectory *odometry.Trajectory
		reference  []r3.Vector
		processed  int
	)
	referenceComplete := gt.Len() > 0
	g.Go(func() error {
		if overlays != nil {
			defer close(overlays)
		}
		for pf := range frames {
			ts := pf.frame.Timestamp
			if trajectory == nil {
				trajectory = odometry.NewTrajectory(groundTruthPose(gt, ts))
			}
			tracked := p.step(gctx, pf)
			motion, scale := p.estimate(tracked, gt, ts)
			trajectory.Append(ts, motion, scale)
			processed++

			if referenceComplete {
				if pose, ok := gt.Pose(ts); ok {
					reference = append(reference, pose.Point())
				} else {
					p.logger.CDebugw(gctx, "no ground truth for frame, skipping evaluation", "index", pf.frame.Index)
					referenceComplete = false
					reference = nil
				}
			}
			if overlays != nil {
				select {
				case overlays <- overlay{index: pf.frame.Index, img: pf.img, tracked: tracked}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if trajectory == nil {
		trajectory = odometry.NewTrajectory(nil)
	}
	res := &Result{Frames: processed, Trajectory: trajectory}
	if referenceComplete && len(reference) > 0 {
		res.Reference = reference
		report, err := odometry.Evaluate(trajectory.Positions(), reference)
		if err != nil {
			return nil, err
		}
		res.Report = report
	}
	if last, ok := trajectory.Last(); ok {
		p.logger.Infow("visual odometry done", "frames", processed, "final_position", last.Pose.Point(),
			"evaluated", res.Report != nil)
	}
	return res, nil
}

func (p *Pipeline) prefetch(ctx context.Context, out chan<- preparedFrame) error {
	for count := 0; p.cfg.Pipeline.MaxFrames <= 0 || count < p.cfg.Pipeline.MaxFrames; count++ {
		frame, err := p.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		img, err := rimage.NewGrayImageFromFile(frame.Path)
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame.Index)
		}
		if img.Bounds().Dx() != p.viewport.Width || img.Bounds().Dy() != p.viewport.Height {
			return errors.Errorf("frame %d is %dx%d, intrinsics expect %dx%d", frame.Index,
				img.Bounds().Dx(), img.Bounds().Dy(), p.viewport.Width, p.viewport.Height)
		}
		feats, err := p.extractor.Extract(img)
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame.Index)
		}
		select {
		case out <- preparedFrame{frame: frame, img: img, features: feats}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// step links the features of pf to the previous frame and returns the resulting snapshot. When no
// feature could be linked, the tracks are restarted from pf; a frame without features also drops the
// matcher's reference frame.
func (p *Pipeline) step(ctx context.Context, pf preparedFrame) *tracking.Tracked {
	matched := p.matcher.Match(ctx, pf.features, p.viewport)
	n := 0
	for _, mf := range matched {
		if mf.IsMatched() {
			n++
		}
	}
	if pf.features.Len() == 0 {
		p.matcher.Reset()
	}
	if n == 0 && p.tracker.Len() > 0 {
		p.logger.CDebugw(ctx, "feature tracks lost, restarting", "index", pf.frame.Index,
			"features", pf.features.Len(), "buffered", p.tracker.Len())
		p.tracker.Reset()
	}
	p.tracker.UpdateMatched(pf.frame.Timestamp, matched)
	tracked := p.tracker.Tracked()

	p.matchedAvg.Add(float64(n))
	p.logger.CDebugw(ctx, "frame tracked", "index", pf.frame.Index, "features", len(matched),
		"matched", n, "matched_avg", p.matchedAvg.Average(), "frames", tracked.FramesCount())
	return tracked
}

// estimate returns the motion ending at the newest frame of tracked and the scale of its
// translation. A nil motion means the camera is assumed not to have moved.
func (p *Pipeline) estimate(tracked *tracking.Tracked, gt *dataset.GroundTruth, ts time.Time) (*odometry.Motion3D, float64) {
	if tracked.FramesCount() < 2 {
		return nil, 1
	}
	motion, err := p.estimator.EstimateMotion(tracked)
	if err != nil {
		p.logger.Debugw("cannot estimate motion, assuming identity", "error", err)
		return nil, 1
	}
	if !p.cfg.Pipeline.UseGroundTruthScale || gt.Len() == 0 {
		return motion, 1
	}
	older, ok := tracked.Timestamp(motion.FrameOffset)
	if !ok {
		return motion, 1
	}
	scale, ok := gt.Distance(older, ts)
	if !ok {
		p.logger.Debugw("no ground truth scale for frame", "timestamp", ts)
		return motion, 1
	}
	return motion, scale
}

func (p *Pipeline) writeOverlays(in <-chan overlay) error {
	for o := range in {
		path := filepath.Join(p.overlayDir, fmt.Sprintf("%06d.png", o.index))
		label := fmt.Sprintf("frame %d tracks %d", o.index, o.tracked.PointsCount())
		if err := odometry.SaveTracked(path, o.img, o.tracked, p.viewport, label); err != nil {
			return errors.Wrapf(err, "cannot write overlay %q", path)
		}
	}
	return nil
}

func groundTruthPose(gt *dataset.GroundTruth, ts time.Time) spatialmath.Pose {
	if gt.Len() == 0 {
		return nil
	}
	pose, ok := gt.Pose(ts)
	if !ok {
		return nil
	}
	return pose
}
