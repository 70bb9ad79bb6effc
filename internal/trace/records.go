package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Batmanabcdefg/hp-afem/internal/monitoring"
)

// Line codes of the record region.
const (
	CodeIteration  = 0
	CodePreval     = 1
	CodePinf       = 2
	CodeComplexity = 3
	CodeTerminator = 666
)

const (
	// complexityPrefix is the length of the "N=" tag in front of the count.
	complexityPrefix = 2
	// brokenField is the index of the broken error in a code 3 line:
	// "3 N=<count> and total error = <broken>".
	brokenField = 6
)

// Records holds the committed iteration records as parallel slices. Index n
// of every slice describes the same record.
type Records struct {
	Outer []int
	Inner []int
	DOFs  []int
	// Estimates are the estimated errors reported with each iteration.
	Estimates []float64
	// Timestamps are unix seconds, 0 when the line carried none.
	Timestamps []int64
	Broken     []float64
	Pinf       []int
	Complexity []int
	Preval     []float64
}

// Len returns the number of committed records.
func (r Records) Len() int { return len(r.Outer) }

func (r Records) checkLengths() error {
	n := len(r.Outer)
	lens := []int{len(r.Inner), len(r.DOFs), len(r.Estimates), len(r.Timestamps),
		len(r.Broken), len(r.Pinf), len(r.Complexity), len(r.Preval)}
	for _, l := range lens {
		if l != n {
			return fmt.Errorf("%w: record columns have unequal lengths", ErrMalformedRecord)
		}
	}
	return nil
}

// pendingRecord accumulates the auxiliary lines (codes 1-3) for the slot the
// next committed code 0 line will occupy.
type pendingRecord struct {
	timestamp  int64
	outer      int
	inner      int
	dofs       int
	estimate   float64
	broken     float64
	pinf       int
	complexity int
	preval     float64
}

type recordDecoder struct {
	oitsStart int
	pending   pendingRecord
	out       Records
}

// DecodeRecords decodes the record region of a log. firstLine is the 1-based
// line number of lines[0] and is only used in error positions. Iteration
// lines whose outer index is below oitsStart are dropped without advancing.
func DecodeRecords(lines []string, firstLine, oitsStart int) (Records, error) {
	d := &recordDecoder{oitsStart: oitsStart}
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		done, err := d.decodeLine(fields, firstLine+i)
		if err != nil {
			return Records{}, err
		}
		if done {
			break
		}
	}
	if d.out.Len() == 0 {
		return Records{}, ErrEmptyTrace
	}
	return d.out, nil
}

func (d *recordDecoder) decodeLine(fields []string, lineNo int) (bool, error) {
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return false, malformed(lineNo, "line code", fields[0], err)
	}

	switch code {
	case CodeTerminator:
		return true, nil
	case CodeComplexity:
		if err := needFields(fields, brokenField+1, lineNo); err != nil {
			return false, err
		}
		tag := fields[1]
		if len(tag) <= complexityPrefix {
			return false, malformed(lineNo, "complexity", tag, fmt.Errorf("expected %d-character prefix before count", complexityPrefix))
		}
		if d.pending.complexity, err = strconv.Atoi(tag[complexityPrefix:]); err != nil {
			return false, malformed(lineNo, "complexity", tag, err)
		}
		if d.pending.broken, err = strconv.ParseFloat(fields[brokenField], 64); err != nil {
			return false, malformed(lineNo, "broken error", fields[brokenField], err)
		}
	case CodePreval:
		if err := needFields(fields, 2, lineNo); err != nil {
			return false, err
		}
		if d.pending.preval, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return false, malformed(lineNo, "preval", fields[1], err)
		}
	case CodePinf:
		if err := needFields(fields, 2, lineNo); err != nil {
			return false, err
		}
		if d.pending.pinf, err = strconv.Atoi(fields[1]); err != nil {
			return false, malformed(lineNo, "pinf", fields[1], err)
		}
	case CodeIteration:
		return false, d.iteration(fields[1:], lineNo)
	default:
		monitoring.Debugf("trace: line %d: ignoring line code %d", lineNo, code)
	}
	return false, nil
}

// iteration handles "0 [<ts>:] <outer> <inner> <dof> <error>" with the code
// already stripped.
func (d *recordDecoder) iteration(fields []string, lineNo int) error {
	var ts int64
	if len(fields) > 0 && strings.HasSuffix(fields[0], ":") {
		var err error
		tok := strings.TrimSuffix(fields[0], ":")
		if ts, err = strconv.ParseInt(tok, 10, 64); err != nil {
			return malformed(lineNo, "timestamp", fields[0], err)
		}
		fields = fields[1:]
	}
	if len(fields) < 4 {
		return malformed(lineNo, "iteration", strings.Join(fields, " "),
			fmt.Errorf("want outer, inner, dof and error, got %d fields", len(fields)))
	}

	outer, err := strconv.Atoi(fields[0])
	if err != nil {
		return malformed(lineNo, "outer iteration", fields[0], err)
	}
	inner, err := strconv.Atoi(fields[1])
	if err != nil {
		return malformed(lineNo, "inner iteration", fields[1], err)
	}
	dofs, err := strconv.Atoi(fields[2])
	if err != nil {
		return malformed(lineNo, "dof count", fields[2], err)
	}
	estimate, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return malformed(lineNo, "error estimate", fields[3], err)
	}

	d.pending.timestamp = ts
	d.pending.outer = outer
	d.pending.inner = inner
	d.pending.dofs = dofs
	d.pending.estimate = estimate

	if outer < d.oitsStart {
		// the slot is reused by the next iteration line
		return nil
	}
	d.commit()
	return nil
}

func (d *recordDecoder) commit() {
	p := d.pending
	d.out.Outer = append(d.out.Outer, p.outer)
	d.out.Inner = append(d.out.Inner, p.inner)
	d.out.DOFs = append(d.out.DOFs, p.dofs)
	d.out.Estimates = append(d.out.Estimates, p.estimate)
	d.out.Timestamps = append(d.out.Timestamps, p.timestamp)
	d.out.Broken = append(d.out.Broken, p.broken)
	d.out.Pinf = append(d.out.Pinf, p.pinf)
	d.out.Complexity = append(d.out.Complexity, p.complexity)
	d.out.Preval = append(d.out.Preval, p.preval)
	d.pending = pendingRecord{}
}

func needFields(fields []string, n, lineNo int) error {
	if len(fields) < n {
		return malformed(lineNo, "line", strings.Join(fields, " "),
			fmt.Errorf("line code %s needs at least %d fields, got %d", fields[0], n, len(fields)))
	}
	return nil
}
