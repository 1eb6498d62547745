package testing

import (
	"fmt"
	"io"
	"strings"
)

// PrintReport renders a Stats the way the teacher's TextReporter laid out
// a run: per-file pass/fail lines, then a summary banner.
func PrintReport(w io.Writer, s *Stats) {
	for _, r := range s.Results {
		if r.Passed {
			fmt.Fprintf(w, "\033[32m✓\033[0m %s (%v)\n", r.File, r.Duration)
			continue
		}
		fmt.Fprintf(w, "\033[31m✗\033[0m %s (%v)\n", r.File, r.Duration)
		if r.Err != nil {
			fmt.Fprintf(w, "  %v\n", r.Err)
		}
		for _, msg := range r.Failures {
			for _, line := range strings.Split(msg, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Total: %d  Passed: %d  Failed: %d\n", s.Total, s.Passed, s.Failed)
	if s.Failed == 0 {
		fmt.Fprintln(w, "\033[32mall tests passed\033[0m")
	} else {
		fmt.Fprintln(w, "\033[31msome tests failed\033[0m")
	}
}
