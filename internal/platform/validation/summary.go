package validation

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var rule = strings.Repeat("=", 64)

// Totals counts results per verdict.
func Totals(results []FileResult) (passed, failed, checkLog int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusCheckLog:
			checkLog++
		}
	}
	return passed, failed, checkLog
}

// ExitCode is 1 when any file failed. CHECK LOG results do not fail the run.
func ExitCode(results []FileResult) int {
	if _, failed, _ := Totals(results); failed > 0 {
		return 1
	}
	return 0
}

// WriteSummary writes the fixed-width summary table.
func WriteSummary(w io.Writer, results []FileResult, at time.Time) error {
	passed, failed, checkLog := Totals(results)

	var b strings.Builder
	b.WriteString("MIABIS on FHIR - Validation Summary\n")
	fmt.Fprintf(&b, "Date: %s\n", at.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Files validated: %d\n", len(results))
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "%-50s %8s %8s %8s %s\n", "FILE", "ERRORS", "WARNINGS", "NOTES", "RESULT")
	fmt.Fprintf(&b, "%-50s %8s %8s %8s %s\n", "----", "------", "--------", "-----", "------")
	for _, r := range results {
		fmt.Fprintf(&b, "%-50s %8s %8s %8s %s\n",
			r.File, formatCount(r.Errors), formatCount(r.Warnings), formatCount(r.Notes), r.Status)
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "TOTALS: %d files | %d passed | %d failed | %d check log\n", len(results), passed, failed, checkLog)
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
