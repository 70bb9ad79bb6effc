// Package basis evaluates the piecewise polynomial solution stored in "sol"
// snapshots. Each triangle type has its own family of basis functions on the
// reference triangle, read from basis_<type>.mat files.
package basis

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Batmanabcdefg/hp-afem/internal/fsutil"
	"github.com/Batmanabcdefg/hp-afem/internal/mesh"
	"github.com/Batmanabcdefg/hp-afem/internal/security"
)

// NumTypes is the number of triangle types the solver distinguishes.
const NumTypes = 8

var (
	// ErrMalformedBasis is returned for basis files that cannot be decoded.
	ErrMalformedBasis = errors.New("basis: malformed basis file")

	// ErrMissingFunction means a triangle needs more basis functions than its
	// type provides, or its type has no basis file.
	ErrMissingFunction = errors.New("basis: missing basis function")

	// ErrNoSolution is returned for snapshots without per-triangle
	// coefficients.
	ErrNoSolution = errors.New("basis: snapshot has no solution coefficients")
)

// Function is a bivariate polynomial on the reference triangle with
// Coeffs.At(a, b) multiplying X^a Y^b.
type Function struct {
	Degree int
	Coeffs *mat.Dense
}

// At evaluates f at the reference point (X, Y).
func (f Function) At(X, Y float64) float64 {
	return mat.Inner(powers(X, f.Degree), f.Coeffs, powers(Y, f.Degree))
}

func powers(v float64, deg int) *mat.VecDense {
	p := make([]float64, deg+1)
	acc := 1.0
	for i := range p {
		p[i] = acc
		acc *= v
	}
	return mat.NewVecDense(len(p), p)
}

// Set holds the basis functions of every triangle type, indexed by type.
type Set [NumTypes][]Function

// FileName returns the basis file name for a triangle type.
func FileName(typ int) string {
	return fmt.Sprintf("basis_%d.mat", typ)
}

// ReadSet reads basis_0.mat through basis_7.mat from dir.
func ReadSet(fsys fsutil.FileSystem, dir string) (*Set, error) {
	var set Set
	for typ := 0; typ < NumTypes; typ++ {
		path, err := security.ResolveWithinDirectory(dir, FileName(typ))
		if err != nil {
			return nil, err
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read basis file: %w", err)
		}
		funcs, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		set[typ] = funcs
	}
	return &set, nil
}

// Decode parses one basis file: a function count, then one line per function
// holding its degree followed by (degree+1)^2 coefficients in row-major
// order. Extra fields and lines past the count are ignored.
func Decode(data []byte) ([]Function, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, fmt.Errorf("%w: missing function count", ErrMalformedBasis)
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: line 1: bad function count %q", ErrMalformedBasis, sc.Text())
	}

	funcs := make([]Function, 0, count)
	for line := 2; len(funcs) < count; line++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: want %d functions, got %d", ErrMalformedBasis, count, len(funcs))
		}
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			return nil, fmt.Errorf("%w: line %d: empty", ErrMalformedBasis, line)
		}
		deg, err := strconv.Atoi(f[0])
		if err != nil || deg < 0 {
			return nil, fmt.Errorf("%w: line %d: bad degree %q", ErrMalformedBasis, line, f[0])
		}
		n := (deg + 1) * (deg + 1)
		if len(f)-1 < n {
			return nil, fmt.Errorf("%w: line %d: degree %d needs %d coefficients, got %d", ErrMalformedBasis, line, deg, n, len(f)-1)
		}
		coeffs := make([]float64, n)
		for i, tok := range f[1 : n+1] {
			if coeffs[i], err = strconv.ParseFloat(tok, 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedBasis, line, err)
			}
		}
		funcs = append(funcs, Function{Degree: deg, Coeffs: mat.NewDense(deg+1, deg+1, coeffs)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read basis file: %w", err)
	}
	return funcs, nil
}

// Evaluate returns the discrete solution on triangle tri at reference point
// (X, Y): the sum of the triangle's coefficients times the basis functions
// of its type.
func Evaluate(set *Set, s *mesh.Snapshot, tri int, X, Y float64) (float64, error) {
	if !s.Caps.Sol {
		return 0, ErrNoSolution
	}
	t := s.Triangles[tri]
	if t.Type < 0 || t.Type >= NumTypes {
		return 0, fmt.Errorf("%w: triangle %d has type %d", ErrMissingFunction, tri, t.Type)
	}
	funcs := set[t.Type]
	if len(t.Coefficients) > len(funcs) {
		return 0, fmt.Errorf("%w: triangle %d needs %d functions of type %d, have %d",
			ErrMissingFunction, tri, len(t.Coefficients), t.Type, len(funcs))
	}
	sum := 0.0
	for j, c := range t.Coefficients {
		sum += c * funcs[j].At(X, Y)
	}
	return sum, nil
}

// Affine returns the map G(X, Y) = J·(X, Y) + o from the reference triangle
// (0,0) (1,0) (0,1) onto triangle tri.
func Affine(s *mesh.Snapshot, tri int) (J *mat.Dense, o *mat.VecDense) {
	t := s.Triangles[tri]
	a, b, c := s.Vertices[t.V[0]], s.Vertices[t.V[1]], s.Vertices[t.V[2]]
	J = mat.NewDense(2, 2, []float64{
		b.X - a.X, c.X - a.X,
		b.Y - a.Y, c.Y - a.Y,
	})
	return J, mat.NewVecDense(2, []float64{a.X, a.Y})
}

// MapToPhysical maps reference coordinates on triangle tri to physical ones.
func MapToPhysical(s *mesh.Snapshot, tri int, X, Y float64) (x, y float64) {
	J, o := Affine(s, tri)
	var p mat.VecDense
	p.MulVec(J, mat.NewVecDense(2, []float64{X, Y}))
	p.AddVec(&p, o)
	return p.AtVec(0), p.AtVec(1)
}

// ReferencePoints returns the lattice points (i/n, j/n) with i+j <= n on the
// reference triangle.
func ReferencePoints(n int) [][2]float64 {
	if n < 1 {
		return [][2]float64{{1.0 / 3, 1.0 / 3}}
	}
	pts := make([][2]float64, 0, (n+1)*(n+2)/2)
	for i := 0; i <= n; i++ {
		for j := 0; i+j <= n; j++ {
			pts = append(pts, [2]float64{float64(i) / float64(n), float64(j) / float64(n)})
		}
	}
	return pts
}

// MaxPointError returns, per triangle, the largest |u_h - u| over the
// reference lattice of resolution n, where u is the reference solution.
func MaxPointError(set *Set, s *mesh.Snapshot, ref mesh.Evaluator, n int) ([]float64, error) {
	pts := ReferencePoints(n)
	out := make([]float64, len(s.Triangles))
	for i := range s.Triangles {
		worst := 0.0
		for _, p := range pts {
			uh, err := Evaluate(set, s, i, p[0], p[1])
			if err != nil {
				return nil, err
			}
			x, y := MapToPhysical(s, i, p[0], p[1])
			worst = math.Max(worst, math.Abs(uh-ref(x, y)))
		}
		out[i] = worst
	}
	return out, nil
}
