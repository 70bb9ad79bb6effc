package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Batmanabcdefg/hp-afem/internal/mesh"
	"github.com/Batmanabcdefg/hp-afem/internal/testutil"
	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

const eps = 1e-12

type fakeSource struct {
	snap  *mesh.Snapshot
	err   error
	calls [][3]int
}

func (f *fakeSource) Snapshot(outer, inner, dofs int) (*mesh.Snapshot, error) {
	f.calls = append(f.calls, [3]int{outer, inner, dofs})
	return f.snap, f.err
}

func sampleTrace(t *testing.T) *trace.RunTrace {
	t.Helper()
	tr, err := trace.Parse(strings.NewReader(testutil.SampleLog()), trace.Options{})
	require.NoError(t, err)
	return tr
}

func dofSnapshot(t *testing.T) *mesh.Snapshot {
	t.Helper()
	s, err := mesh.Decode(strings.NewReader(testutil.DOFSnapshot()))
	require.NoError(t, err)
	return s
}

func TestProgression(t *testing.T) {
	tr := sampleTrace(t)
	src := &fakeSource{snap: dofSnapshot(t)}

	points, err := Progression(tr, src)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, [][3]int{{1, 0, 100}, {2, 0, 300}}, src.calls)

	first := points[0]
	assert.Equal(t, 0, first.Record)
	assert.Equal(t, 1, first.Outer)
	assert.Equal(t, 3, first.Pinf)
	assert.Equal(t, 6, first.Complexity)
	assert.Equal(t, 100, first.DOFs)
	assert.Equal(t, 40, first.NBCompl)
	assert.Equal(t, 2, first.Reduce)
	assert.InDelta(t, ((0.5-0.9)/0.7)/math.Pow(1+math.Log(3), 1.5), first.LogFraction, eps)
	assert.InDelta(t, 3.0, first.Comparable, eps)
	assert.InDelta(t, 10.0/40, first.ConformingRefinementFraction, eps)
	assert.Zero(t, first.FractionTime)
	assert.True(t, math.IsNaN(first.ErrorRatio))

	second := points[1]
	assert.Equal(t, 3, second.Record)
	assert.Equal(t, 2, second.Outer)
	assert.Equal(t, 1, second.Reduce)
	assert.InDelta(t, ((0.15-0.19)/0.18)/math.Pow(1+math.Log(4), 1.5), second.LogFraction, eps)
	assert.InDelta(t, 10.0/75, second.ConformingRefinementFraction, eps)
	assert.InDelta(t, 0.8/0.9, second.FractionTime, eps)
}

func TestProgression_Filter(t *testing.T) {
	src := &fakeSource{snap: dofSnapshot(t)}
	points, err := Progression(sampleTrace(t), src, 2)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2, points[0].Outer)
	assert.Len(t, src.calls, 1)
}

func TestProgression_SnapshotError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Progression(sampleTrace(t), &fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestTimePartition(t *testing.T) {
	p := TimePartition(sampleTrace(t))

	require.Len(t, p.Phases, 2)
	assert.Equal(t, Phase{Outer: 1, Begin: 0, Reduce: 0, End: 0.2, NearBestFraction: 0}, p.Phases[0])

	ph := p.Phases[1]
	assert.Equal(t, 2, ph.Outer)
	assert.InDelta(t, 0.2, ph.Begin, eps)
	assert.InDelta(t, 1.0, ph.Reduce, eps)
	assert.InDelta(t, 2.0, ph.End, eps)
	assert.InDelta(t, 0.8/1.8, ph.NearBestFraction, eps)

	assert.InDelta(t, 1.2, p.ReduceHours, eps)
	assert.InDelta(t, 2.0, p.TotalHours, eps)
}

func TestTimePartition_NoTimestamps(t *testing.T) {
	lines := append(testutil.Header(1, 0.8, 4, 0.5), "0 1 0 10 0.5", "0 1 1 20 0.4", "0 2 1 30 0.3")
	tr, err := trace.ParseLines(lines, trace.Options{})
	require.NoError(t, err)

	p := TimePartition(tr)
	require.Len(t, p.Phases, 2)
	for _, ph := range p.Phases {
		assert.Zero(t, ph.NearBestFraction)
	}
	assert.Zero(t, p.TotalHours)
}

func TestConvergenceRate(t *testing.T) {
	lines := append(testutil.Header(1, 0.8, 4, 0.5),
		"0 1 0 100 0.1",
		"0 1 1 5000 7",
		"0 2 0 10000 0.001",
		"0 3 0 1000000 0.00001",
	)
	tr, err := trace.ParseLines(lines, trace.Options{})
	require.NoError(t, err)

	rate, err := ConvergenceRate(tr)
	require.NoError(t, err)
	assert.Equal(t, 3, rate.Points)
	assert.InDelta(t, -1.0, rate.Slope, 1e-9)
	assert.InDelta(t, 1.0, rate.Intercept, 1e-9)
	assert.InDelta(t, 1.0, rate.RSquared, 1e-9)
}

func TestConvergenceRate_TooFewPoints(t *testing.T) {
	lines := append(testutil.Header(1, 0.8, 4, 0.5), "0 1 0 100 0.1", "0 2 0 100 0.05")
	tr, err := trace.ParseLines(lines, trace.Options{})
	require.NoError(t, err)

	_, err = ConvergenceRate(tr)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTrace(t))
	assert.Equal(t, 5, s.Records)
	assert.Equal(t, 1, s.FirstOuter)
	assert.Equal(t, 2, s.LastOuter)
	assert.InDelta(t, 0.1, s.MinEstimate, eps)
	assert.InDelta(t, 0.5, s.MaxEstimate, eps)
	assert.InDelta(t, 0.25, s.MeanEstimate, eps)
	assert.Equal(t, 420, s.FinalDOFs)
	assert.InDelta(t, 2.0, s.TotalHours, eps)
}
