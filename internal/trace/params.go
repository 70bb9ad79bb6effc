package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Label identifies one scalar of the log header.
type Label int

const (
	LabelMeshFile Label = iota
	LabelRHSFile
	LabelInitialDegree
	LabelTriangles
	LabelHRefines
	LabelPRefines
	LabelInitialError
	LabelTheta
	LabelOmega
	LabelMu
	numLabels
)

var labelText = [numLabels]string{
	"mesh file",
	"rhs file",
	"initial degree",
	"number of triangles",
	"h-refines",
	"p-refines",
	"initial error",
	"theta",
	"omega",
	"mu",
}

// String returns the label as it is written in the log header.
func (l Label) String() string {
	if l < 0 || l >= numLabels {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelText[l]
}

// Labels returns every header label in the order the solver writes them.
func Labels() []Label {
	out := make([]Label, numLabels)
	for i := range out {
		out[i] = Label(i)
	}
	return out
}

// LabelSet records which header labels were found.
type LabelSet uint16

// Has reports whether l is in the set.
func (s LabelSet) Has(l Label) bool { return s&(1<<uint(l)) != 0 }

// With returns s with l added.
func (s LabelSet) With(l Label) LabelSet { return s | 1<<uint(l) }

// RunParameters are the scalar run settings from the log header. A label that
// was not found leaves its field at the zero value and out of Present.
type RunParameters struct {
	MeshFile         string
	RHSFile          string
	InitialDegree    int
	InitialTriangles int
	HRefines         int
	PRefines         int
	// InitialError is epsilon0, the error estimate of the initial mesh.
	InitialError float64
	Theta        float64
	Omega        float64
	Mu           float64

	Present LabelSet
}

// Has reports whether the header carried label l.
func (p RunParameters) Has(l Label) bool { return p.Present.Has(l) }

// Require fails with ErrHeaderIncomplete naming every absent label.
func (p RunParameters) Require(labels ...Label) error {
	var missing []string
	for _, l := range labels {
		if !p.Has(l) {
			missing = append(missing, strconv.Quote(l.String()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrHeaderIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// WithValue returns p with label l set from its textual header value.
func (p RunParameters) WithValue(l Label, raw string) (RunParameters, error) {
	v := strings.TrimSpace(raw)
	var err error
	switch l {
	case LabelMeshFile:
		p.MeshFile = raw
	case LabelRHSFile:
		p.RHSFile = raw
	case LabelInitialDegree:
		p.InitialDegree, err = strconv.Atoi(v)
	case LabelTriangles:
		p.InitialTriangles, err = strconv.Atoi(v)
	case LabelHRefines:
		p.HRefines, err = strconv.Atoi(v)
	case LabelPRefines:
		p.PRefines, err = strconv.Atoi(v)
	case LabelInitialError:
		p.InitialError, err = strconv.ParseFloat(v, 64)
	case LabelTheta:
		p.Theta, err = strconv.ParseFloat(v, 64)
	case LabelOmega:
		p.Omega, err = strconv.ParseFloat(v, 64)
	case LabelMu:
		p.Mu, err = strconv.ParseFloat(v, 64)
	default:
		return p, fmt.Errorf("unknown header label %d", int(l))
	}
	if err != nil {
		return p, err
	}
	p.Present = p.Present.With(l)
	return p, nil
}

// Value formats label l the way the solver writes it, or "" when absent.
func (p RunParameters) Value(l Label) string {
	if !p.Has(l) {
		return ""
	}
	switch l {
	case LabelMeshFile:
		return p.MeshFile
	case LabelRHSFile:
		return p.RHSFile
	case LabelInitialDegree:
		return strconv.Itoa(p.InitialDegree)
	case LabelTriangles:
		return strconv.Itoa(p.InitialTriangles)
	case LabelHRefines:
		return strconv.Itoa(p.HRefines)
	case LabelPRefines:
		return strconv.Itoa(p.PRefines)
	case LabelInitialError:
		return formatFloat(p.InitialError)
	case LabelTheta:
		return formatFloat(p.Theta)
	case LabelOmega:
		return formatFloat(p.Omega)
	case LabelMu:
		return formatFloat(p.Mu)
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
