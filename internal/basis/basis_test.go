package basis

import (
	"errors"
	"io/fs"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Batmanabcdefg/hp-afem/internal/fsutil"
	"github.com/Batmanabcdefg/hp-afem/internal/mesh"
	"github.com/Batmanabcdefg/hp-afem/internal/testutil"
)

// linearBasis is the nodal P1 basis 1-X-Y, X, Y.
const linearBasis = "3\n1 1 -1 -1 0\n1 0 0 1 0\n1 0 1 0 0\n"

func basisFS(dir string) *fsutil.MemoryFileSystem {
	mfs := fsutil.NewMemoryFileSystem().Add(dir+"/"+FileName(0), linearBasis)
	for typ := 1; typ < NumTypes; typ++ {
		mfs.Add(dir+"/"+FileName(typ), "0\n")
	}
	return mfs
}

func solutionSnapshot(t *testing.T) *mesh.Snapshot {
	t.Helper()
	s, err := mesh.Decode(strings.NewReader(testutil.SolutionSnapshot()))
	require.NoError(t, err)
	return s
}

func TestDecode(t *testing.T) {
	funcs, err := Decode([]byte("2\n0 4\n2 1 0 0 0 0 0 0 0 3 extra\n"))
	require.NoError(t, err)
	require.Len(t, funcs, 2)

	assert.Equal(t, 0, funcs[0].Degree)
	assert.Equal(t, 4.0, funcs[0].At(0.3, 0.7))

	// 1 + 3 X^2 Y^2
	assert.Equal(t, 2, funcs[1].Degree)
	assert.InDelta(t, 1+3*0.25*0.0625, funcs[1].At(0.5, 0.25), 1e-15)
}

func TestDecode_Errors(t *testing.T) {
	for name, text := range map[string]string{
		"empty":          "",
		"bad count":      "x\n",
		"short file":     "2\n0 1\n",
		"bad degree":     "1\n-1 0\n",
		"few coeffs":     "1\n1 0 0 0\n",
		"bad coeff":      "1\n0 one\n",
		"blank function": "1\n\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(text))
			assert.ErrorIs(t, err, ErrMalformedBasis)
		})
	}
}

func TestReadSet(t *testing.T) {
	set, err := ReadSet(basisFS("bases"), "bases")
	require.NoError(t, err)
	assert.Len(t, set[0], 3)
	for typ := 1; typ < NumTypes; typ++ {
		assert.Empty(t, set[typ])
	}
}

func TestReadSet_MissingFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem().Add("bases/basis_0.mat", linearBasis)
	_, err := ReadSet(mfs, "bases")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	set, err := ReadSet(basisFS("b"), "b")
	require.NoError(t, err)
	s := solutionSnapshot(t)

	// Coefficients 1, 2, 3 on the nodal basis give 1 + X + 2Y.
	for _, p := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {0.5, 0.25}} {
		got, err := Evaluate(set, s, 0, p[0], p[1])
		require.NoError(t, err)
		assert.InDelta(t, 1+p[0]+2*p[1], got, 1e-12)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	set, err := ReadSet(basisFS("b"), "b")
	require.NoError(t, err)

	dof, err := mesh.Decode(strings.NewReader(testutil.DOFSnapshot()))
	require.NoError(t, err)
	_, err = Evaluate(set, dof, 0, 0, 0)
	assert.ErrorIs(t, err, ErrNoSolution)

	s := solutionSnapshot(t)
	s.Triangles[0].Type = 1
	_, err = Evaluate(set, s, 0, 0, 0)
	assert.ErrorIs(t, err, ErrMissingFunction)

	s.Triangles[0].Type = 9
	_, err = Evaluate(set, s, 0, 0, 0)
	assert.ErrorIs(t, err, ErrMissingFunction)
}

func TestMapToPhysical(t *testing.T) {
	s, err := mesh.Decode(strings.NewReader(testutil.Lines(
		"tridim", "3", "1 1", "3 1", "1 2", "1", "1 0 1 2",
	)))
	require.NoError(t, err)

	tests := []struct{ X, Y, x, y float64 }{
		{0, 0, 1, 1},
		{1, 0, 3, 1},
		{0, 1, 1, 2},
		{0.5, 0.5, 2, 1.5},
	}
	for _, tt := range tests {
		x, y := MapToPhysical(s, 0, tt.X, tt.Y)
		assert.InDelta(t, tt.x, x, 1e-12)
		assert.InDelta(t, tt.y, y, 1e-12)
	}

	J, _ := Affine(s, 0)
	// The Jacobian determinant is twice the triangle area.
	assert.InDelta(t, 2*s.Area(0), math.Abs(det(J.RawMatrix().Data)), 1e-12)
}

func det(m []float64) float64 { return m[0]*m[3] - m[1]*m[2] }

func TestReferencePoints(t *testing.T) {
	assert.Len(t, ReferencePoints(0), 1)
	pts := ReferencePoints(4)
	assert.Len(t, pts, mesh.TriangleNumber(4))
	for _, p := range pts {
		assert.LessOrEqual(t, p[0]+p[1], 1.0+1e-12)
	}
}

func TestMaxPointError(t *testing.T) {
	set, err := ReadSet(basisFS("b"), "b")
	require.NoError(t, err)
	s := solutionSnapshot(t)

	exact := func(x, y float64) float64 { return 1 + x + 2*y }
	errs, err := MaxPointError(set, s, exact, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0, errs[0], 1e-12)

	shifted := func(x, y float64) float64 { return exact(x, y) + 0.5*x }
	errs, err = MaxPointError(set, s, shifted, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, errs[0], 1e-12)
}
