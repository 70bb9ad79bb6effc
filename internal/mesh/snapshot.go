// Package mesh decodes hp-AFEM mesh snapshots: a triangulation plus optional
// per-vertex and per-triangle data whose layout is announced by the settings
// tokens on the first line.
//
//	<settings tokens>
//	[<nverts>]
//	<x y [value|dof]>          nverts lines
//	<ntris>
//	<[dim] v0 v1 v2 [type] [error] [coefficients|dofs...]>   ntris lines
//	[<reference solution expression>]
package mesh

import (
	"math"
	"slices"
)

// Vertex is a mesh vertex. Value is set with LinSol, DOF with the DOF
// capability.
type Vertex struct {
	X     float64
	Y     float64
	Value float64
	DOF   int
}

// Triangle references three vertices by index. Optional fields are zero
// unless the snapshot's capabilities carry them.
type Triangle struct {
	V            [3]int
	Dim          int
	Type         int
	Error        float64
	Coefficients []float64
	DOFs         []int
}

// Degree is the polynomial degree implied by the triangle's dimension.
func (t Triangle) Degree() int { return DegreeFromDim(t.Dim) }

// Evaluator computes a scalar field at a physical point.
type Evaluator func(x, y float64) float64

// Compiler turns a reference-solution expression into an Evaluator.
type Compiler func(expr string) (Evaluator, error)

// Snapshot is a decoded mesh snapshot. It must be treated as read-only.
type Snapshot struct {
	Caps      Capabilities
	Vertices  []Vertex
	Triangles []Triangle
	// ReferenceSolution is the closed-form solution in x and y from the
	// optional trailing line, kept as written. See Evaluator.
	ReferenceSolution string
}

// HasReferenceSolution reports whether the snapshot ended with an expression.
func (s *Snapshot) HasReferenceSolution() bool { return s.ReferenceSolution != "" }

// ReferenceEvaluator compiles the reference solution with compile.
func (s *Snapshot) ReferenceEvaluator(compile Compiler) (Evaluator, error) {
	if !s.HasReferenceSolution() {
		return nil, ErrNoReferenceSolution
	}
	return compile(s.ReferenceSolution)
}

// Dims returns the dimension of every triangle.
func (s *Snapshot) Dims() []int {
	out := make([]int, len(s.Triangles))
	for i, t := range s.Triangles {
		out[i] = t.Dim
	}
	return out
}

// TotalDim sums the triangle dimensions, the snapshot's complexity count.
func (s *Snapshot) TotalDim() int {
	total := 0
	for _, t := range s.Triangles {
		total += t.Dim
	}
	return total
}

// DegreeRange returns the smallest and largest triangle degree, or (0, 0)
// for a snapshot without triangles.
func (s *Snapshot) DegreeRange() (lo, hi int) {
	if len(s.Triangles) == 0 {
		return 0, 0
	}
	degrees := make([]int, len(s.Triangles))
	for i, t := range s.Triangles {
		degrees[i] = t.Degree()
	}
	return slices.Min(degrees), slices.Max(degrees)
}

// ErrorRatio is sqrt(max error / min error) over the triangles, NaN without
// the error capability or with a non-positive minimum.
func (s *Snapshot) ErrorRatio() float64 {
	if !s.Caps.Error || len(s.Triangles) == 0 {
		return math.NaN()
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range s.Triangles {
		lo = math.Min(lo, t.Error)
		hi = math.Max(hi, t.Error)
	}
	if lo <= 0 {
		return math.NaN()
	}
	return math.Sqrt(hi / lo)
}

// Area returns the area of triangle i.
func (s *Snapshot) Area(i int) float64 {
	t := s.Triangles[i]
	a, b, c := s.Vertices[t.V[0]], s.Vertices[t.V[1]], s.Vertices[t.V[2]]
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}
