package odometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrorReport summarizes the positional error of an estimated trajectory against a reference.
type ErrorReport struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Max    float64
	RMSE   float64
}

// Evaluate compares estimated positions with reference positions of the same frames.
func Evaluate(estimated, reference []r3.Vector) (*ErrorReport, error) {
	if len(estimated) != len(reference) {
		return nil, errors.Errorf("cannot compare %d estimated positions with %d reference positions",
			len(estimated), len(reference))
	}
	if len(estimated) == 0 {
		return nil, errors.New("no positions to compare")
	}
	data := make(stats.Float64Data, len(estimated))
	squared := make(stats.Float64Data, len(estimated))
	for i := range estimated {
		data[i] = estimated[i].Distance(reference[i])
		squared[i] = data[i] * data[i]
	}
	report := &ErrorReport{Count: len(data)}
	var err, errs error
	report.Mean, err = data.Mean()
	errs = multierr.Combine(errs, err)
	report.Median, err = data.Median()
	errs = multierr.Combine(errs, err)
	report.StdDev, err = data.StandardDeviation()
	errs = multierr.Combine(errs, err)
	report.Max, err = data.Max()
	errs = multierr.Combine(errs, err)
	meanSquared, err := squared.Mean()
	errs = multierr.Combine(errs, err)
	report.RMSE = math.Sqrt(meanSquared)
	if errs != nil {
		return nil, errors.Wrap(errs, "cannot compute error statistics")
	}
	return report, nil
}
