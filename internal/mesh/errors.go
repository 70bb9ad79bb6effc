package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation means the settings line asks for a field layout that
	// cannot be decoded, such as "sol" without "tritype".
	ErrSchemaViolation = errors.New("mesh: schema violation")

	// ErrIndexMismatch means a triangle's vertex DOF ids disagree with the DOF
	// ids recorded on its vertices.
	ErrIndexMismatch = errors.New("mesh: dof index mismatch")

	// ErrMalformedRecord means a count, coordinate or index could not be
	// parsed, a line is short of fields, or the input ended early.
	ErrMalformedRecord = errors.New("mesh: malformed record")

	// ErrNoReferenceSolution is returned when asking for the evaluator of a
	// snapshot without a reference-solution line.
	ErrNoReferenceSolution = errors.New("mesh: no reference solution")
)

// ParseError locates a failure at a 1-based line of the snapshot.
type ParseError struct {
	Line  int
	Field string
	Text  string
	Err   error
	Cause error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v: line %d", e.Err, e.Line)
	if e.Field != "" {
		msg += fmt.Sprintf(": %s %q", e.Field, e.Text)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func malformed(line int, field, text string, cause error) error {
	return &ParseError{Line: line, Field: field, Text: text, Err: ErrMalformedRecord, Cause: cause}
}
