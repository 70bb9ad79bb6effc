package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const separatorLine = "--------------"

// Encode writes t in the log format. Each record's non-zero auxiliary values
// are written as code 1, 2 and 3 lines ahead of its code 0 line, and the
// output ends with the 666 terminator, so Parse(Encode(t)) restores t.
func Encode(w io.Writer, t *RunTrace) error {
	bw := bufio.NewWriter(w)

	for _, l := range Labels() {
		if t.Params.Has(l) {
			fmt.Fprintf(bw, "%s%s%s\n", l, headerSeparator, t.Params.Value(l))
		}
	}
	fmt.Fprintln(bw, separatorLine)

	for n := 0; n < t.Len(); n++ {
		if t.Preval[n] != 0 {
			fmt.Fprintf(bw, "%d %s\n", CodePreval, formatFloat(t.Preval[n]))
		}
		if t.Pinf[n] != 0 {
			fmt.Fprintf(bw, "%d %d\n", CodePinf, t.Pinf[n])
		}
		if t.Complexity[n] != 0 || t.Broken[n] != 0 {
			fmt.Fprintf(bw, "%d N=%d and total error = %s\n", CodeComplexity, t.Complexity[n], formatFloat(t.Broken[n]))
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d ", CodeIteration)
		if t.Timestamps[n] != 0 {
			fmt.Fprintf(&b, "%d: ", t.Timestamps[n])
		}
		fmt.Fprintf(&b, "%d %d %d %s", t.Outer[n], t.Inner[n], t.DOFs[n], formatFloat(t.Estimates[n]))
		fmt.Fprintln(bw, b.String())
	}
	fmt.Fprintln(bw, CodeTerminator)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}
