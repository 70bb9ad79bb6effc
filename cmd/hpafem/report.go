package main

import (
	"encoding/json"
	"io"
	"math"

	"github.com/Batmanabcdefg/hp-afem/internal/analysis"
	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

// num converts v for JSON output; encoding/json rejects NaN and Inf, which
// the indicators produce for degenerate inputs, so those become null.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type traceReport struct {
	Path         string            `json:"path"`
	Params       map[string]string `json:"params"`
	Records      int               `json:"records"`
	FirstOuter   int               `json:"first_outer"`
	LastOuter    int               `json:"last_outer"`
	MinEstimate  *float64          `json:"min_estimate"`
	MaxEstimate  *float64          `json:"max_estimate"`
	MeanEstimate *float64          `json:"mean_estimate"`
	FinalDOFs    int               `json:"final_dofs"`
	TotalHours   *float64          `json:"total_hours"`
	ReduceHours  *float64          `json:"reduce_hours"`
	Rate         *rateReport       `json:"rate,omitempty"`
}

type rateReport struct {
	Slope    *float64 `json:"slope"`
	RSquared *float64 `json:"r_squared"`
	Points   int      `json:"points"`
}

func newTraceReport(path string, t *trace.RunTrace) traceReport {
	s := analysis.Summarize(t)
	r := traceReport{
		Path:         path,
		Params:       map[string]string{},
		Records:      s.Records,
		FirstOuter:   s.FirstOuter,
		LastOuter:    s.LastOuter,
		MinEstimate:  num(s.MinEstimate),
		MaxEstimate:  num(s.MaxEstimate),
		MeanEstimate: num(s.MeanEstimate),
		FinalDOFs:    s.FinalDOFs,
		TotalHours:   num(s.TotalHours),
		ReduceHours:  num(analysis.TimePartition(t).ReduceHours),
	}
	for _, l := range trace.Labels() {
		if t.Params.Has(l) {
			r.Params[l.String()] = t.Params.Value(l)
		}
	}
	if rate, err := analysis.ConvergenceRate(t); err == nil {
		r.Rate = &rateReport{Slope: num(rate.Slope), RSquared: num(rate.RSquared), Points: rate.Points}
	}
	return r
}

type progressionRow struct {
	Outer                        int      `json:"outer"`
	DOFs                         int      `json:"dofs"`
	Complexity                   int      `json:"complexity"`
	Pinf                         int      `json:"pinf"`
	Reduce                       int      `json:"reduce"`
	Estimate                     *float64 `json:"estimate"`
	LogFraction                  *float64 `json:"log_fraction"`
	Comparable                   *float64 `json:"comparable"`
	ConformingRefinementFraction *float64 `json:"conf_ref_frac"`
	FractionTime                 *float64 `json:"frac_time"`
	ErrorRatio                   *float64 `json:"error_ratio"`
}

func newProgressionRow(p analysis.ProgressionPoint) progressionRow {
	return progressionRow{
		Outer:                        p.Outer,
		DOFs:                         p.DOFs,
		Complexity:                   p.Complexity,
		Pinf:                         p.Pinf,
		Reduce:                       p.Reduce,
		Estimate:                     num(p.Estimate),
		LogFraction:                  num(p.LogFraction),
		Comparable:                   num(p.Comparable),
		ConformingRefinementFraction: num(p.ConformingRefinementFraction),
		FractionTime:                 num(p.FractionTime),
		ErrorRatio:                   num(p.ErrorRatio),
	}
}
