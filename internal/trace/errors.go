package trace

import (
	"errors"
	"fmt"
)

// Parse failures. Every failure is terminal for the call that returned it;
// no partial trace is handed back.
var (
	// ErrHeaderIncomplete means the dashed separator ending the header was not
	// found, or a consumer needed a parameter the header did not carry.
	ErrHeaderIncomplete = errors.New("trace: header incomplete")

	// ErrMalformedRecord means a numeric field could not be parsed or a line
	// had fewer fields than its line code requires.
	ErrMalformedRecord = errors.New("trace: malformed record")

	// ErrEmptyTrace means no iteration (code 0) record was committed.
	ErrEmptyTrace = errors.New("trace: no iteration records")

	// ErrInvalidGrouping means outer iteration values do not form contiguous
	// non-decreasing blocks.
	ErrInvalidGrouping = errors.New("trace: outer iterations not in non-decreasing blocks")
)

// ParseError locates a failure at a 1-based line of the log. It matches its
// sentinel and, when present, the underlying conversion error via errors.Is.
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
