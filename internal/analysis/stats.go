package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

// Rate is a least-squares fit log10(error) = Intercept + Slope*log10(dofs).
type Rate struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Points    int     `json:"points"`
}

// ConvergenceRate fits the estimated error against the DOF count over the
// records with inner index 0. It needs two distinct DOF counts with
// positive errors.
func ConvergenceRate(t *trace.RunTrace) (Rate, error) {
	var xs, ys []float64
	for n := 0; n < t.Len(); n++ {
		if t.Inner[n] != 0 || t.DOFs[n] <= 0 || !(t.Estimates[n] > 0) {
			continue
		}
		xs = append(xs, math.Log10(float64(t.DOFs[n])))
		ys = append(ys, math.Log10(t.Estimates[n]))
	}
	if len(xs) < 2 || floats.Min(xs) == floats.Max(xs) {
		return Rate{}, fmt.Errorf("%w: need two distinct dof counts, have %d samples", ErrTooFewPoints, len(xs))
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Rate{
		Slope:     beta,
		Intercept: alpha,
		RSquared:  stat.RSquared(xs, ys, nil, alpha, beta),
		Points:    len(xs),
	}, nil
}

// Summary condenses a trace for listing.
type Summary struct {
	Records      int     `json:"records"`
	FirstOuter   int     `json:"first_outer"`
	LastOuter    int     `json:"last_outer"`
	MinEstimate  float64 `json:"min_estimate"`
	MaxEstimate  float64 `json:"max_estimate"`
	MeanEstimate float64 `json:"mean_estimate"`
	FinalDOFs    int     `json:"final_dofs"`
	TotalHours   float64 `json:"total_hours"`
}

// Summarize computes the Summary of a non-empty trace.
func Summarize(t *trace.RunTrace) Summary {
	last := t.Len() - 1
	return Summary{
		Records:      t.Len(),
		FirstOuter:   t.Outer[0],
		LastOuter:    t.Outer[last],
		MinEstimate:  floats.Min(t.Estimates),
		MaxEstimate:  floats.Max(t.Estimates),
		MeanEstimate: stat.Mean(t.Estimates, nil),
		FinalDOFs:    t.DOFs[last],
		TotalHours:   floats.Max(t.Hours),
	}
}
