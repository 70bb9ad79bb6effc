// Package trace decodes the iteration logs written by the hp-AFEM solver into
// per-iteration numeric records and derives the convergence series used in
// downstream analysis.
//
// A log is a key/value header closed by a dashed line, followed by records
// whose first field is a line code:
//
//	0 [<unix>:] <outer> <inner> <dofs> <error>
//	1 <preval>
//	2 <pinf>
//	3 N=<complexity> and total error = <broken>
//	666
//
// Codes 1 to 3 annotate the slot of the next committed code 0 line; 666 ends
// decoding.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// Options tune decoding. The zero value decodes every record and validates
// outer iteration grouping.
type Options struct {
	// OitsStart drops iteration lines whose outer index is below it.
	OitsStart int
	// SkipGroupingCheck accepts outer values that are not blockwise
	// non-decreasing. Reverse iteration counts are then computed per
	// contiguous run and may be misleading.
	SkipGroupingCheck bool
}

// RunTrace is one fully decoded log. It is built in a single pass and must
// be treated as read-only.
type RunTrace struct {
	Params RunParameters
	Records
	Derived
}

// Record is the view of record n across every column.
type Record struct {
	Timestamp     int64
	Outer         int
	Inner         int
	DOFs          int
	Estimate      float64
	Broken        float64
	Pinf          int
	Complexity    int
	Preval        float64
	Hours         float64
	Epsilon       float64
	BrokenEpsilon float64
	Riits         int
}

// Parse reads a complete log from r.
func Parse(r io.Reader, opts Options) (*RunTrace, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	return ParseLines(lines, opts)
}

// ParseLines decodes a log already split into lines.
func ParseLines(lines []string, opts Options) (*RunTrace, error) {
	params, start, err := ReadHeader(lines)
	if err != nil {
		return nil, err
	}
	records, err := DecodeRecords(lines[start:], start+1, opts.OitsStart)
	if err != nil {
		return nil, err
	}
	return Build(params, records, opts)
}

// Build assembles a trace from parameters and committed records, computing
// the derived series. It is used by the decoder and by stores that persist
// the primary columns only.
func Build(params RunParameters, records Records, opts Options) (*RunTrace, error) {
	if err := records.checkLengths(); err != nil {
		return nil, err
	}
	if records.Len() == 0 {
		return nil, ErrEmptyTrace
	}
	derived, err := Derive(params, records, !opts.SkipGroupingCheck)
	if err != nil {
		return nil, err
	}
	return &RunTrace{Params: params, Records: records, Derived: derived}, nil
}

// Record returns record n. It panics if n is out of range.
func (t *RunTrace) Record(n int) Record {
	return Record{
		Timestamp:     t.Timestamps[n],
		Outer:         t.Outer[n],
		Inner:         t.Inner[n],
		DOFs:          t.DOFs[n],
		Estimate:      t.Estimates[n],
		Broken:        t.Broken[n],
		Pinf:          t.Pinf[n],
		Complexity:    t.Complexity[n],
		Preval:        t.Preval[n],
		Hours:         t.Hours[n],
		Epsilon:       t.Epsilon[n],
		BrokenEpsilon: t.BrokenEpsilon[n],
		Riits:         t.Riits[n],
	}
}

// Blocks returns the contiguous outer iteration blocks in record order.
func (t *RunTrace) Blocks() []Block {
	return blocks(t.Outer)
}

func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return lines, nil
}
