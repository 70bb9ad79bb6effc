package mesh

// TriangleNumber is the dimension of the polynomials of degree p on a
// triangle, (p+1)(p+2)/2.
func TriangleNumber(p int) int {
	return (p + 1) * (p + 2) / 2
}

// DegreeFromDim returns the largest degree p with TriangleNumber(p) <= dim.
// A dimension below 1 yields -1.
func DegreeFromDim(dim int) int {
	p := 0
	for TriangleNumber(p) <= dim {
		p++
	}
	return p - 1
}
