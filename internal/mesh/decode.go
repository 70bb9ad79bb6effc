package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxLineBytes = 1 << 20

// lineReader hands out lines with their 1-based numbers.
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool, error) {
	if !lr.sc.Scan() {
		if err := lr.sc.Err(); err != nil {
			return "", false, fmt.Errorf("failed to read snapshot: %w", err)
		}
		return "", false, nil
	}
	lr.line++
	return strings.TrimRight(lr.sc.Text(), "\r"), true, nil
}

// need returns the next line or a MalformedRecord error naming what was due.
func (lr *lineReader) need(what string) (string, error) {
	line, ok, err := lr.next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", malformed(lr.line+1, what, "", io.ErrUnexpectedEOF)
	}
	return line, nil
}

func (lr *lineReader) count(what string) (int, error) {
	line, err := lr.need(what)
	if err != nil {
		return 0, err
	}
	tok := strings.TrimSpace(line)
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, malformed(lr.line, what, tok, err)
	}
	if n < 0 {
		return 0, malformed(lr.line, what, tok, fmt.Errorf("negative count"))
	}
	return n, nil
}

// Decode reads a complete snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	lr := newLineReader(r)

	settings, err := lr.need("settings")
	if err != nil {
		return nil, err
	}
	caps, nverts, err := ParseSettings(settings)
	if err != nil {
		return nil, err
	}
	if nverts < 0 {
		if nverts, err = lr.count("vertex count"); err != nil {
			return nil, err
		}
	}

	snap := &Snapshot{Caps: caps}
	if snap.Vertices, err = decodeVertices(lr, caps, nverts); err != nil {
		return nil, err
	}

	ntris, err := lr.count("triangle count")
	if err != nil {
		return nil, err
	}
	if snap.Triangles, err = decodeTriangles(lr, caps, ntris, snap.Vertices); err != nil {
		return nil, err
	}

	line, ok, err := lr.next()
	if err != nil {
		return nil, err
	}
	if ok {
		snap.ReferenceSolution = strings.TrimSpace(line)
	}
	return snap, nil
}

func decodeVertices(lr *lineReader, caps Capabilities, n int) ([]Vertex, error) {
	verts := make([]Vertex, 0, n)
	withScalar := caps.LinSol || caps.DOF
	for i := 0; i < n; i++ {
		line, err := lr.need("vertex")
		if err != nil {
			return nil, err
		}
		f := strings.Fields(line)
		want := 2
		if withScalar {
			want = 3
		}
		if len(f) < want {
			return nil, malformed(lr.line, "vertex", line, fmt.Errorf("want %d fields, got %d", want, len(f)))
		}

		var v Vertex
		if v.X, err = strconv.ParseFloat(f[0], 64); err != nil {
			return nil, malformed(lr.line, "x", f[0], err)
		}
		if v.Y, err = strconv.ParseFloat(f[1], 64); err != nil {
			return nil, malformed(lr.line, "y", f[1], err)
		}
		switch {
		case caps.LinSol:
			if v.Value, err = strconv.ParseFloat(f[2], 64); err != nil {
				return nil, malformed(lr.line, "vertex value", f[2], err)
			}
		case caps.DOF:
			if v.DOF, err = strconv.Atoi(f[2]); err != nil {
				return nil, malformed(lr.line, "vertex dof", f[2], err)
			}
		}
		verts = append(verts, v)
	}
	return verts, nil
}

func decodeTriangles(lr *lineReader, caps Capabilities, n int, verts []Vertex) ([]Triangle, error) {
	tris := make([]Triangle, 0, n)
	fixed := 3
	for _, on := range []bool{caps.TriDim, caps.TriType, caps.Error} {
		if on {
			fixed++
		}
	}

	for i := 0; i < n; i++ {
		line, err := lr.need("triangle")
		if err != nil {
			return nil, err
		}
		f := strings.Fields(line)
		if len(f) < fixed {
			return nil, malformed(lr.line, "triangle", line, fmt.Errorf("want at least %d fields, got %d", fixed, len(f)))
		}

		var t Triangle
		pos := 0
		if caps.TriDim {
			if t.Dim, err = strconv.Atoi(f[pos]); err != nil {
				return nil, malformed(lr.line, "dim", f[pos], err)
			}
			pos++
		}
		for k := 0; k < 3; k++ {
			if t.V[k], err = strconv.Atoi(f[pos]); err != nil {
				return nil, malformed(lr.line, "vertex index", f[pos], err)
			}
			if t.V[k] < 0 || t.V[k] >= len(verts) {
				return nil, malformed(lr.line, "vertex index", f[pos], fmt.Errorf("out of range [0, %d)", len(verts)))
			}
			pos++
		}
		if caps.TriType {
			if t.Type, err = strconv.Atoi(f[pos]); err != nil {
				return nil, malformed(lr.line, "type", f[pos], err)
			}
			pos++
		}
		if caps.Error {
			if t.Error, err = strconv.ParseFloat(f[pos], 64); err != nil {
				return nil, malformed(lr.line, "error", f[pos], err)
			}
			pos++
		}

		payload := f[pos:]
		if (caps.Sol || caps.DOF) && len(payload) != t.Dim {
			return nil, malformed(lr.line, "triangle", line, fmt.Errorf("want %d payload values for dim %d, got %d", t.Dim, t.Dim, len(payload)))
		}
		switch {
		case caps.Sol:
			t.Coefficients = make([]float64, len(payload))
			for k, tok := range payload {
				if t.Coefficients[k], err = strconv.ParseFloat(tok, 64); err != nil {
					return nil, malformed(lr.line, "coefficient", tok, err)
				}
			}
		case caps.DOF:
			t.DOFs = make([]int, len(payload))
			for k, tok := range payload {
				if t.DOFs[k], err = strconv.Atoi(tok); err != nil {
					return nil, malformed(lr.line, "dof", tok, err)
				}
			}
			if err := checkVertexDOFs(t, verts, lr.line); err != nil {
				return nil, err
			}
		}
		tris = append(tris, t)
	}
	return tris, nil
}

// checkVertexDOFs requires the first three DOF ids of a triangle to be the
// DOF ids of its vertices, in vertex order.
func checkVertexDOFs(t Triangle, verts []Vertex, lineNo int) error {
	if len(t.DOFs) < 3 {
		return &ParseError{Line: lineNo, Field: "dofs", Text: fmt.Sprint(t.DOFs), Err: ErrIndexMismatch,
			Cause: fmt.Errorf("triangle carries %d dof ids, need at least 3", len(t.DOFs))}
	}
	for k, v := range t.V {
		if t.DOFs[k] != verts[v].DOF {
			return &ParseError{Line: lineNo, Field: "dof", Text: strconv.Itoa(t.DOFs[k]), Err: ErrIndexMismatch,
				Cause: fmt.Errorf("vertex %d has dof %d", v, verts[v].DOF)}
		}
	}
	return nil
}
