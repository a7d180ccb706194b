package validation

import (
	"regexp"
	"strconv"
)

var (
	errorCount   = regexp.MustCompile(`(?i)(\d+)\s+error`)
	warningCount = regexp.MustCompile(`(?i)(\d+)\s+warning`)
	noteCount    = regexp.MustCompile(`(?i)(\d+)\s+note`)
)

// Counts are the issue totals reported by the validator. A nil count was
// not found in the output; it is unknown, not zero.
type Counts struct {
	Errors   *int
	Warnings *int
	Notes    *int
}

// ParseCounts extracts counts from validator output. When a count is
// mentioned several times the last mention wins.
func ParseCounts(output string) Counts {
	return Counts{
		Errors:   lastCount(errorCount, output),
		Warnings: lastCount(warningCount, output),
		Notes:    lastCount(noteCount, output),
	}
}

func lastCount(re *regexp.Regexp, s string) *int {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return nil
	}
	return &n
}

// Status is the verdict for one validated file.
type Status string

const (
	StatusPass     Status = "PASS"
	StatusFail     Status = "FAIL"
	StatusCheckLog Status = "CHECK LOG"
)

// Classify derives the verdict from the error count alone.
func Classify(c Counts) Status {
	switch {
	case c.Errors == nil:
		return StatusCheckLog
	case *c.Errors == 0:
		return StatusPass
	default:
		return StatusFail
	}
}

func formatCount(n *int) string {
	if n == nil {
		return "?"
	}
	return strconv.Itoa(*n)
}
