package validation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Stage is one named step of a pipeline. A failing tolerable stage is
// logged and the pipeline continues; any other failure halts it.
type Stage struct {
	Name      string
	Tolerable bool
	Run       func(ctx context.Context) error
}

// StageResult records how a stage finished.
type StageResult struct {
	Name      string
	Err       error
	Tolerated bool
	Duration  time.Duration
}

// Pipeline runs stages strictly in order.
type Pipeline struct {
	stages []Stage
	logger zerolog.Logger
}

// NewPipeline creates a pipeline over stages in the given order.
func NewPipeline(logger zerolog.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger}
}

// Run executes each stage and returns the results of the stages that ran.
// The returned error is the first non-tolerable failure, as a *SetupError.
func (p *Pipeline) Run(ctx context.Context) ([]StageResult, error) {
	results := make([]StageResult, 0, len(p.stages))
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		p.logger.Info().Str("stage", s.Name).Msg("stage started")
		start := time.Now()
		err := s.Run(ctx)
		res := StageResult{Name: s.Name, Err: err, Duration: time.Since(start)}

		if err == nil {
			results = append(results, res)
			p.logger.Info().Str("stage", s.Name).Dur("duration", res.Duration).Msg("stage complete")
			continue
		}
		if s.Tolerable {
			res.Tolerated = true
			results = append(results, res)
			p.logger.Warn().Err(err).Str("stage", s.Name).Msg("stage failed, continuing")
			continue
		}

		results = append(results, res)
		var se *SetupError
		if !errors.As(err, &se) {
			se = &SetupError{Stage: s.Name, Err: err}
		}
		p.logger.Error().Err(se.Err).Str("stage", se.Stage).Str("hint", se.Hint).Msg("stage failed")
		return results, se
	}
	return results, nil
}
