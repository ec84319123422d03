package odometry

import (
	"image/color"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	estimatedColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	referenceColor = color.RGBA{R: 40, G: 90, B: 220, A: 255}
)

// PlotTrajectory saves a top-down view (X/Z plane) of the estimated trajectory, and of the reference
// one when not empty, to path. The image format follows the file extension.
func PlotTrajectory(path string, estimated, reference []r3.Vector) error {
	if len(estimated) == 0 {
		return errors.New("empty trajectory")
	}
	p := plot.New()
	p.Title.Text = "Trajectory"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "z (m)"
	p.Add(plotter.NewGrid())

	if err := addTrajectoryLine(p, "estimated", estimated, estimatedColor); err != nil {
		return err
	}
	if len(reference) > 0 {
		if err := addTrajectoryLine(p, "reference", reference, referenceColor); err != nil {
			return err
		}
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, filepath.Clean(path)); err != nil {
		return errors.Wrapf(err, "cannot save trajectory plot to %q", path)
	}
	return nil
}

func addTrajectoryLine(p *plot.Plot, name string, positions []r3.Vector, c color.Color) error {
	pts := make(plotter.XYs, len(positions))
	for i, pos := range positions {
		pts[i] = plotter.XY{X: pos.X, Y: pos.Z}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "cannot plot %s trajectory", name)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}
