// Package main runs visual odometry over a dataset described by a config file.
package main

import (
	"context"

	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/vo/config"
	"go.viam.com/vo/dataset"
	"go.viam.com/vo/logging"
	"go.viam.com/vo/pipeline"
	"go.viam.com/vo/vision/features"
	"go.viam.com/vo/vision/odometry"
)

var logger = logging.NewLogger("vo")

// Arguments for the command.
type Arguments struct {
	ConfigFile  string `flag:"config,required,usage=run config file"`
	Debug       bool   `flag:"debug,usage=enable debug logs"`
	TraceFrames bool   `flag:"trace-frames,usage=log every frame without enabling all debug logs"`
	PlotPath    string `flag:"plot,usage=write a trajectory plot to this file"`
	OverlayDir  string `flag:"overlays,usage=write feature track overlays to this directory"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	config.UpdateLogLevel(logger, argsParsed.Debug, cfg)
	if argsParsed.Debug || argsParsed.TraceFrames {
		ctx = logging.EnableDebugMode(ctx, "vo")
	}
	if argsParsed.PlotPath != "" {
		cfg.Output.PlotPath = argsParsed.PlotPath
	}
	if argsParsed.OverlayDir != "" {
		cfg.Output.OverlayDir = argsParsed.OverlayDir
	}

	src, err := dataset.NewSource(ctx, cfg.Dataset, logger.Sublogger("dataset"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, src.Close())
	}()

	extractor, err := features.NewORBExtractor(cfg.Features.ORB, cfg.Features.Seed)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, src, extractor, logger.Sublogger("pipeline"))
	if err != nil {
		return err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if res.Report != nil {
		logger.Infow("trajectory error",
			"frames", res.Report.Count,
			"mean", res.Report.Mean,
			"median", res.Report.Median,
			"std_dev", res.Report.StdDev,
			"max", res.Report.Max,
			"rmse", res.Report.RMSE,
		)
	} else {
		logger.Info("no ground truth, trajectory not evaluated")
	}
	if cfg.Output.PlotPath != "" {
		if err := odometry.PlotTrajectory(cfg.Output.PlotPath, res.Trajectory.Positions(), res.Reference); err != nil {
			return err
		}
		logger.Infow("wrote trajectory plot", "path", cfg.Output.PlotPath)
	}
	return nil
}
