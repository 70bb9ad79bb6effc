// Package analysis joins decoded traces with their mesh snapshots and
// reduces them to the per-iteration indicators used to compare runs.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Batmanabcdefg/hp-afem/internal/mesh"
	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

// ErrTooFewPoints is returned when a fit needs more distinct samples.
var ErrTooFewPoints = errors.New("analysis: too few points")

// SnapshotSource returns the snapshot written at the start of an outer
// iteration, identified by its outer and inner index and its DOF count.
type SnapshotSource interface {
	Snapshot(outer, inner, dofs int) (*mesh.Snapshot, error)
}

// ProgressionPoint describes one outer iteration at its first inner
// iteration. Ratios follow IEEE semantics: a zero denominator yields Inf or
// NaN rather than an error.
type ProgressionPoint struct {
	Record int `json:"record"`
	Outer  int `json:"outer"`
	Pinf   int `json:"pinf"`
	// Complexity is the total dimension of the snapshot's triangles.
	Complexity int     `json:"complexity"`
	DOFs       int     `json:"dofs"`
	Estimate   float64 `json:"estimate"`
	Broken     float64 `json:"broken"`
	Preval     float64 `json:"preval"`
	// NBCompl is the count reported on the code 3 line.
	NBCompl int `json:"nbcompl"`
	Reduce  int `json:"reduce"`

	// LogFraction is ((estimate - preval) / broken) / (1 + ln pinf)^1.5.
	LogFraction float64 `json:"log_fraction"`
	// Comparable is pinf over the smallest triangle degree.
	Comparable float64 `json:"comparable"`
	// ConformingRefinementFraction is sum(trinum(deg+1) - 1) / nbcompl.
	ConformingRefinementFraction float64 `json:"conf_ref_frac"`
	// FractionTime is the share of the previous outer iteration spent
	// after its first reduce step.
	FractionTime float64 `json:"frac_time"`
	// ErrorRatio is sqrt(max/min) of the per-triangle errors, NaN when the
	// snapshot carries none.
	ErrorRatio float64 `json:"error_ratio"`
}

// Progression builds a point for every record with inner index 0, loading
// its snapshot from src. When outers is non-empty only those outer
// iterations are kept.
func Progression(t *trace.RunTrace, src SnapshotSource, outers ...int) ([]ProgressionPoint, error) {
	var out []ProgressionPoint
	for n := 0; n < t.Len(); n++ {
		if t.Inner[n] != 0 {
			continue
		}
		if len(outers) > 0 && !slices.Contains(outers, t.Outer[n]) {
			continue
		}
		snap, err := src.Snapshot(t.Outer[n], t.Inner[n], t.DOFs[n])
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot for record %d: %w", n, err)
		}
		out = append(out, point(t, n, snap))
	}
	return out, nil
}

func point(t *trace.RunTrace, n int, snap *mesh.Snapshot) ProgressionPoint {
	p := ProgressionPoint{
		Record:     n,
		Outer:      t.Outer[n],
		Pinf:       t.Pinf[n],
		Complexity: snap.TotalDim(),
		DOFs:       t.DOFs[n],
		Estimate:   t.Estimates[n],
		Broken:     t.Broken[n],
		Preval:     t.Preval[n],
		NBCompl:    t.Complexity[n],
		Reduce:     t.Riits[n],
		ErrorRatio: snap.ErrorRatio(),
	}

	pinf := float64(p.Pinf)
	p.LogFraction = ((p.Estimate - p.Preval) / p.Broken) / math.Pow(1+math.Log(pinf), 1.5)

	minDeg, _ := snap.DegreeRange()
	p.Comparable = pinf / float64(minDeg)

	conforming := 0
	for _, tri := range snap.Triangles {
		conforming += mesh.TriangleNumber(tri.Degree()+1) - 1
	}
	p.ConformingRefinementFraction = float64(conforming) / float64(p.NBCompl)

	p.FractionTime = fractionTime(t, n)
	return p
}

// fractionTime is (t[n] - t[n-1]) / (t[n] - t[n-inner[n-1]]), or 0 when
// n == 0 or the denominator vanishes.
func fractionTime(t *trace.RunTrace, n int) float64 {
	if n == 0 {
		return 0
	}
	k := max(n-t.Inner[n-1], 0)
	den := t.Hours[n] - t.Hours[k]
	if den == 0 {
		return 0
	}
	return (t.Hours[n] - t.Hours[n-1]) / den
}
