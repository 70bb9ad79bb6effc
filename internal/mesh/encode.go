package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Encode writes s in the snapshot format. A snapshot without capabilities is
// written with the vertex count on the settings line.
func Encode(w io.Writer, s *Snapshot) error {
	if err := s.Caps.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if tokens := s.Caps.Tokens(); len(tokens) > 0 {
		fmt.Fprintln(bw, strings.Join(tokens, " "))
	}
	fmt.Fprintln(bw, len(s.Vertices))

	for _, v := range s.Vertices {
		fields := []string{formatFloat(v.X), formatFloat(v.Y)}
		switch {
		case s.Caps.LinSol:
			fields = append(fields, formatFloat(v.Value))
		case s.Caps.DOF:
			fields = append(fields, strconv.Itoa(v.DOF))
		}
		fmt.Fprintln(bw, strings.Join(fields, " "))
	}

	fmt.Fprintln(bw, len(s.Triangles))
	for _, t := range s.Triangles {
		var fields []string
		if s.Caps.TriDim {
			fields = append(fields, strconv.Itoa(t.Dim))
		}
		for _, v := range t.V {
			fields = append(fields, strconv.Itoa(v))
		}
		if s.Caps.TriType {
			fields = append(fields, strconv.Itoa(t.Type))
		}
		if s.Caps.Error {
			fields = append(fields, formatFloat(t.Error))
		}
		switch {
		case s.Caps.Sol:
			for _, c := range t.Coefficients {
				fields = append(fields, formatFloat(c))
			}
		case s.Caps.DOF:
			for _, d := range t.DOFs {
				fields = append(fields, strconv.Itoa(d))
			}
		}
		fmt.Fprintln(bw, strings.Join(fields, " "))
	}

	if s.HasReferenceSolution() {
		fmt.Fprintln(bw, s.ReferenceSolution)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
