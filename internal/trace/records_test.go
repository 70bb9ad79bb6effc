package trace

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Batmanabcdefg/hp-afem/internal/testutil"
)

func TestDecodeRecords_AuxiliaryLinesAttachToNextIteration(t *testing.T) {
	lines := []string{
		"1 0.9",
		"3 N=40 and total error = 0.7",
		"2 3",
		"0 1 0 100 0.5",
		"0 1 1 150 0.3",
	}
	r, err := DecodeRecords(lines, 1, 0)
	testutil.AssertNoError(t, err)

	want := Records{
		Outer:      []int{1, 1},
		Inner:      []int{0, 1},
		DOFs:       []int{100, 150},
		Estimates:  []float64{0.5, 0.3},
		Timestamps: []int64{0, 0},
		Broken:     []float64{0.7, 0},
		Pinf:       []int{3, 0},
		Complexity: []int{40, 0},
		Preval:     []float64{0.9, 0},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecords_Timestamp(t *testing.T) {
	r, err := DecodeRecords([]string{"0 1700000000: 2 3 400 0.01"}, 1, 0)
	testutil.AssertNoError(t, err)
	if r.Timestamps[0] != 1700000000 || r.Outer[0] != 2 || r.Inner[0] != 3 || r.DOFs[0] != 400 {
		t.Errorf("record = %+v", r)
	}
}

func TestDecodeRecords_TerminatorTruncates(t *testing.T) {
	lines := []string{
		"0 1 0 10 0.5",
		"0 1 1 20 0.4",
		"666",
		"0 2 0 30 0.3",
		"garbage that is never read",
	}
	r, err := DecodeRecords(lines, 1, 0)
	testutil.AssertNoError(t, err)
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if diff := cmp.Diff([]int{10, 20}, r.DOFs); diff != "" {
		t.Errorf("DOFs mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecords_OitsStart(t *testing.T) {
	lines := []string{
		"1 0.8",
		"0 1 0 10 0.5",
		"0 1 1 20 0.4",
		"0 2 0 30 0.3",
		"0 2 1 40 0.2",
	}
	r, err := DecodeRecords(lines, 1, 2)
	testutil.AssertNoError(t, err)

	if diff := cmp.Diff([]int{2, 2}, r.Outer); diff != "" {
		t.Errorf("Outer mismatch (-want +got):\n%s", diff)
	}
	// the preval written before the dropped lines stays on the first kept slot
	if diff := cmp.Diff([]float64{0.8, 0}, r.Preval); diff != "" {
		t.Errorf("Preval mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecords_IgnoresUnknownCodesAndBlankLines(t *testing.T) {
	lines := []string{"", "7 0.0001", "0 1 0 10 0.5", "   ", "42 x y"}
	r, err := DecodeRecords(lines, 1, 0)
	testutil.AssertNoError(t, err)
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestDecodeRecords_Empty(t *testing.T) {
	cases := []struct {
		name      string
		lines     []string
		oitsStart int
	}{
		{"no lines", nil, 0},
		{"only aux", []string{"1 0.5", "2 3"}, 0},
		{"terminator first", []string{"666", "0 1 0 10 0.5"}, 0},
		{"all below start", []string{"0 0 0 10 0.5"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRecords(tc.lines, 1, tc.oitsStart)
			testutil.AssertErrorIs(t, err, ErrEmptyTrace)
		})
	}
}

func TestDecodeRecords_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		field string
	}{
		{"line code", "x 1 0 10 0.5", "line code"},
		{"outer", "0 one 0 10 0.5", "outer iteration"},
		{"error value", "0 1 0 10 half", "error estimate"},
		{"too few", "0 1 0 10", "iteration"},
		{"timestamp", "0 12ab: 1 0 10 0.5", "timestamp"},
		{"preval", "1 big", "preval"},
		{"pinf float", "2 3.5", "pinf"},
		{"complexity short", "3 N=4 and total error", "line"},
		{"complexity tag", "3 N= and total error = 0.1", "complexity"},
		{"broken", "3 N=4 and total error = nan?", "broken error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRecords([]string{"0 1 0 1 1", tc.line}, 20, 0)
			testutil.AssertErrorIs(t, err, ErrMalformedRecord)

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not a *ParseError", err)
			}
			if pe.Line != 21 {
				t.Errorf("Line = %d, want 21", pe.Line)
			}
			if pe.Field != tc.field {
				t.Errorf("Field = %q, want %q", pe.Field, tc.field)
			}
		})
	}
}

func TestParseErrorMatchesCause(t *testing.T) {
	_, err := DecodeRecords([]string{"0 1 0 ten 0.5"}, 1, 0)
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("error %v should wrap strconv.ErrSyntax", err)
	}
}
