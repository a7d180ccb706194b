package validation

import (
	"strings"
	"testing"
	"time"
)

func TestWriteSummary(t *testing.T) {
	results := []FileResult{
		{File: "a.json", Counts: Counts{Errors: intp(0), Warnings: intp(2), Notes: intp(1)}, Status: StatusPass},
		{File: "b.json", Counts: Counts{Errors: intp(3), Warnings: intp(0)}, Status: StatusFail},
		{File: "c.json", Status: StatusCheckLog},
	}
	var b strings.Builder
	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	if err := WriteSummary(&b, results, at); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	rule := strings.Repeat("=", 64)
	want := strings.Join([]string{
		"MIABIS on FHIR - Validation Summary",
		"Date: 2026-10-14 07:30:00 UTC",
		"Files validated: 3",
		rule,
		"",
		"FILE                                                 ERRORS WARNINGS    NOTES RESULT",
		"----                                                 ------ --------    ----- ------",
		"a.json                                                    0        2        1 PASS",
		"b.json                                                    3        0        ? FAIL",
		"c.json                                                    ?        ?        ? CHECK LOG",
		"",
		rule,
		"TOTALS: 3 files | 1 passed | 1 failed | 1 check log",
		rule,
		"",
	}, "\n")
	if got := b.String(); got != want {
		t.Fatalf("unexpected summary:\n%s\nwant:\n%s", got, want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     int
	}{
		{"all pass", []Status{StatusPass, StatusPass}, 0},
		{"check log is not failure", []Status{StatusPass, StatusCheckLog}, 0},
		{"any failure", []Status{StatusPass, StatusFail, StatusCheckLog}, 1},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		var results []FileResult
		for _, s := range tt.statuses {
			results = append(results, FileResult{Status: s})
		}
		if got := ExitCode(results); got != tt.want {
			t.Errorf("%s: ExitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}
