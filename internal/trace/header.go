package trace

import (
	"errors"
	"fmt"
	"strings"
)

const headerSeparator = ": "

// ReadHeader extracts the run parameters from the preamble of an iteration
// log and returns the index of the first line after the dashed separator.
//
// Each label takes its value from the first header line starting with it.
// Labels that never appear are left absent rather than failing the parse.
func ReadHeader(lines []string) (RunParameters, int, error) {
	end := -1
	for i, line := range lines {
		if isSeparatorLine(line) {
			end = i
			break
		}
	}
	if end < 0 {
		return RunParameters{}, 0, fmt.Errorf("%w: no dashed separator line", ErrHeaderIncomplete)
	}

	var params RunParameters
	for _, label := range Labels() {
		for i, line := range lines[:end] {
			if !strings.HasPrefix(line, label.String()) {
				continue
			}
			idx := strings.Index(line, headerSeparator)
			if idx < 0 {
				return RunParameters{}, 0, malformed(i+1, label.String(), line,
					errors.New("missing \": \" separator"))
			}
			raw := strings.TrimRight(line[idx+len(headerSeparator):], "\r\n")
			var err error
			if params, err = params.WithValue(label, raw); err != nil {
				return RunParameters{}, 0, malformed(i+1, label.String(), raw, err)
			}
			break
		}
	}
	return params, end + 1, nil
}

func isSeparatorLine(line string) bool {
	t := strings.TrimSpace(line)
	return t != "" && strings.Trim(t, "-") == ""
}
