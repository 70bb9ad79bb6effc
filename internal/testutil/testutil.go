// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the sample iteration logs and mesh snapshots used
// across the parsing, analysis and storage tests.
package testutil

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// Lines joins lines into newline-terminated text.
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Header returns a log preamble in the layout the solver writes, including
// its section titles and blank lines.
func Header(epsilon0, theta, omega, mu float64) []string {
	return []string{
		"Problem settings:",
		"mesh file: lshaped.mesh",
		"rhs file: lshaped.rhs",
		"",
		"Initial triangulation settings:",
		"initial degree: 1",
		"number of triangles: 24",
		"",
		"Error estimator settings:",
		"h-refines: 2",
		"p-refines: 1",
		fmt.Sprintf("initial error: %g", epsilon0),
		"",
		"hp-AFEM settings:",
		fmt.Sprintf("theta: %g", theta),
		fmt.Sprintf("omega: %g", omega),
		fmt.Sprintf("mu: %g", mu),
		"--------------",
	}
}

// SampleLog is a two-outer-iteration run with timestamps and every auxiliary
// line code.
func SampleLog() string {
	lines := Header(1.0, 0.8, 4, 0.5)
	lines = append(lines,
		"1 0.9",
		"3 N=40 and total error = 0.7",
		"2 3 0.6",
		"0 1000: 1 0 100 0.5",
		"0 1360: 1 1 150 0.3",
		"0 1720: 1 2 210 0.2",
		"1 0.19",
		"3 N=75 and total error = 0.18",
		"2 4 0.17",
		"7 0.001",
		"0 4600: 2 0 300 0.15",
		"0 8200: 2 1 420 0.1",
		"666",
		"0 9000: 3 0 999 0.01",
	)
	return Lines(lines...)
}

// DOFSnapshot is a "tridim tritype dof" snapshot of the unit square split in
// two linear triangles.
func DOFSnapshot() string {
	return Lines(
		"tridim tritype dof",
		"4",
		"0 0 10",
		"1 0 11",
		"1 1 12",
		"0 1 13",
		"2",
		"3 0 1 2 0 10 11 12",
		"3 0 2 3 1 10 12 13",
	)
}

// SolutionSnapshot is a "tridim tritype sol" snapshot with a reference
// solution on its trailing line.
func SolutionSnapshot() string {
	return Lines(
		"tridim tritype sol",
		"3",
		"0.0000000000000000 0.0000000000000000 1",
		"1.0000000000000000 0.0000000000000000 1",
		"0.0000000000000000 1.0000000000000000 1",
		"1",
		"3 0 1 2 0 1.0000000000000000 2.0000000000000000 3.0000000000000000",
		"x*y*(1 - x - y)**2",
	)
}
