// Package validation drives the external HL7 FHIR validator over generated
// bundles: it prepares the toolchain and the compiled MIABIS profiles, runs
// the validator once per file, and summarises the results.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/miabis/miabis/internal/platform/db"
)

// Options locates the working files and fixes the validator flags.
type Options struct {
	WorkDir         string
	IGRepo          string
	IGBranches      []string
	ValidatorURL    string
	ValidatorMaxAge time.Duration
	FHIRVersion     string
	ExtensionDomain string
}

// IGDir is the implementation guide checkout.
func (o Options) IGDir() string { return filepath.Join(o.WorkDir, "miabis-on-fhir") }

// ResourcesDir holds the profiles built by sushi.
func (o Options) ResourcesDir() string { return filepath.Join(o.IGDir(), "fsh-generated", "resources") }

// ValidatorPath is the downloaded validator jar.
func (o Options) ValidatorPath() string { return filepath.Join(o.WorkDir, "validator_cli.jar") }

// ReportsDir holds per-file logs and the summary.
func (o Options) ReportsDir() string { return filepath.Join(o.WorkDir, "reports") }

// SummaryPath is the summary table written after each run.
func (o Options) SummaryPath() string { return filepath.Join(o.ReportsDir(), "validation-summary.txt") }

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run db.RunRecord) error
}

// Deps are the orchestrator's collaborators. Zero fields get defaults:
// ExecRunner, HTTPDownloader, os.Stdout and time.Now. A nil Recorder
// disables history.
type Deps struct {
	Runner     CommandRunner
	Downloader Downloader
	Recorder   Recorder
	Out        io.Writer
	Now        func() time.Time
}

// Orchestrator runs validation batches. It is not safe for concurrent use.
type Orchestrator struct {
	opts       Options
	runner     CommandRunner
	downloader Downloader
	recorder   Recorder
	out        io.Writer
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates an Orchestrator, filling zero Deps fields with defaults.
func New(opts Options, deps Deps, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		opts:       opts,
		runner:     deps.Runner,
		downloader: deps.Downloader,
		recorder:   deps.Recorder,
		out:        deps.Out,
		now:        deps.Now,
		logger:     logger,
	}
	if o.runner == nil {
		o.runner = ExecRunner{}
	}
	if o.downloader == nil {
		o.downloader = HTTPDownloader{}
	}
	if o.out == nil {
		o.out = os.Stdout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// FileResult is the outcome of validating one file.
type FileResult struct {
	File       string
	Path       string
	LogPath    string
	ReportPath string
	Counts
	Status Status
}

// Report describes a finished run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	Input       string
	SkipSetup   bool
	Stages      []StageResult
	Files       []FileResult
	SummaryPath string
	ExitCode    int
}

// Run validates every .json file under input. Setup failures are returned
// as *SetupError before any file is validated. When the batch completes with
// failures the report is returned together with ErrValidationFailed.
func (o *Orchestrator) Run(ctx context.Context, input string, skipSetup bool) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Input:     input,
		SkipSetup: skipSetup,
	}
	log := o.logger.With().Str("run_id", report.RunID).Logger()

	files, err := CollectInputFiles(input)
	if err != nil {
		return nil, &SetupError{
			Stage: "input",
			Hint:  "pass a .json file or a directory containing .json files",
			Err:   err,
		}
	}
	log.Info().Str("input", input).Int("files", len(files)).Msg("input resolved")

	if skipSetup {
		log.Info().Msg("skipping setup, using existing IG and validator")
		if err := o.checkExistingSetup(); err != nil {
			return nil, err
		}
	} else {
		stages, err := NewPipeline(log, o.SetupStages()...).Run(ctx)
		report.Stages = stages
		if err != nil {
			return nil, err
		}
	}

	if !isDir(o.opts.ResourcesDir()) {
		return nil, &SetupError{
			Stage: "validate",
			Hint:  "did the sushi build succeed?",
			Err:   fmt.Errorf("%w at %s", ErrProfilesMissing, o.opts.ResourcesDir()),
		}
	}
	if err := os.MkdirAll(o.opts.ReportsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}

	fmt.Fprintln(o.out, rule)
	for i, f := range files {
		fmt.Fprintf(o.out, "\n--- [%d/%d] Validating: %s ---\n", i+1, len(files), filepath.Base(f))
		res := o.ValidateFile(ctx, f)
		report.Files = append(report.Files, res)

		log.Info().
			Str("file", res.File).
			Str("errors", formatCount(res.Errors)).
			Str("warnings", formatCount(res.Warnings)).
			Str("notes", formatCount(res.Notes)).
			Str("status", string(res.Status)).
			Msg("file validated")
		fmt.Fprintf(o.out, "    -> Errors: %s  Warnings: %s  Notes: %s  [%s]\n",
			formatCount(res.Errors), formatCount(res.Warnings), formatCount(res.Notes), res.Status)
		fmt.Fprintf(o.out, "    -> Report: %s\n", res.ReportPath)
	}

	report.SummaryPath = o.opts.SummaryPath()
	if err := o.writeSummary(report); err != nil {
		return nil, err
	}
	report.ExitCode = ExitCode(report.Files)
	o.record(ctx, log, report)

	passed, failed, checkLog := Totals(report.Files)
	log.Info().Int("passed", passed).Int("failed", failed).Int("check_log", checkLog).
		Str("summary", report.SummaryPath).Msg("validation complete")

	if report.ExitCode != 0 {
		return report, ErrValidationFailed
	}
	return report, nil
}

// ValidateFile runs the validator on path and persists its console output.
// Problems running the validator show up as an unknown count, never as an
// error.
func (o *Orchestrator) ValidateFile(ctx context.Context, path string) FileResult {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := FileResult{
		File:       filepath.Base(path),
		Path:       path,
		LogPath:    filepath.Join(o.opts.ReportsDir(), stem+"-validation-log.txt"),
		ReportPath: filepath.Join(o.opts.ReportsDir(), stem+"-validation-report.html"),
	}

	out, err := o.runner.Run(ctx, "", "java",
		"-jar", o.opts.ValidatorPath(),
		path,
		"-ig", o.opts.ResourcesDir(),
		"-version", o.opts.FHIRVersion,
		"-allow-example-urls", "true",
		"-extension", o.opts.ExtensionDomain,
		"-output", res.ReportPath,
	)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		out = append(out, []byte("\nvalidator did not run: "+err.Error()+"\n")...)
	}

	if werr := os.WriteFile(res.LogPath, out, 0o644); werr != nil {
		o.logger.Warn().Err(werr).Str("file", res.File).Msg("could not write validation log")
	}
	_, _ = o.out.Write(out)

	res.Counts = ParseCounts(string(out))
	res.Status = Classify(res.Counts)
	return res
}

func (o *Orchestrator) writeSummary(report *Report) error {
	f, err := os.Create(report.SummaryPath)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := WriteSummary(io.MultiWriter(f, o.out), report.Files, o.now()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write summary: %w", err)
	}
	return f.Close()
}

func (o *Orchestrator) record(ctx context.Context, log zerolog.Logger, report *Report) {
	if o.recorder == nil {
		return
	}
	run := db.RunRecord{
		ID:        report.RunID,
		StartedAt: report.StartedAt,
		Input:     report.Input,
		SkipSetup: report.SkipSetup,
		ExitCode:  report.ExitCode,
	}
	for _, f := range report.Files {
		run.Files = append(run.Files, db.FileRecord{
			File:     f.File,
			Errors:   f.Errors,
			Warnings: f.Warnings,
			Notes:    f.Notes,
			Status:   string(f.Status),
		})
	}
	if err := o.recorder.Record(ctx, run); err != nil {
		log.Warn().Err(err).Msg("could not record validation history")
	}
}
