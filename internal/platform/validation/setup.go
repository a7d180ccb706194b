package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	StagePrerequisites = "prerequisites"
	StageSushi         = "sushi"
	StageProfiles      = "profiles"
	StageBuild         = "build"
	StageValidator     = "validator"
)

type prerequisite struct {
	name        string
	versionArgs []string
	hint        string
}

var prerequisites = []prerequisite{
	{"java", []string{"-version"}, "install Java 17+ from https://adoptium.net/"},
	{"git", []string{"--version"}, "install Git from https://git-scm.com/"},
	{"node", []string{"-v"}, "install Node.js 18+ from https://nodejs.org/"},
	{"npm", []string{"-v"}, "npm ships with Node.js; reinstall Node.js"},
}

// SetupStages returns the setup pipeline in execution order.
func (o *Orchestrator) SetupStages() []Stage {
	return []Stage{
		{Name: StagePrerequisites, Run: o.checkPrerequisites},
		{Name: StageSushi, Run: o.ensureSushi},
		o.profilesStage(),
		{Name: StageBuild, Run: o.buildIG},
		{Name: StageValidator, Run: o.ensureValidator},
	}
}

func (o *Orchestrator) checkPrerequisites(ctx context.Context) error {
	for _, p := range prerequisites {
		if _, err := o.runner.LookPath(p.name); err != nil {
			return &SetupError{
				Stage: StagePrerequisites,
				Hint:  p.hint,
				Err:   fmt.Errorf("%w: %s", ErrToolMissing, p.name),
			}
		}
		out, _ := o.runner.Run(ctx, "", p.name, p.versionArgs...)
		o.logger.Info().Str("tool", p.name).Str("version", firstLine(out)).Msg("prerequisite found")
	}
	return nil
}

func (o *Orchestrator) ensureSushi(ctx context.Context) error {
	if _, err := o.runner.LookPath("sushi"); err == nil {
		out, _ := o.runner.Run(ctx, "", "sushi", "--version")
		o.logger.Info().Str("version", firstLine(out)).Msg("sushi already installed")
		return nil
	}

	o.logger.Info().Msg("installing fsh-sushi")
	if out, err := o.runner.Run(ctx, "", "npm", "install", "-g", "fsh-sushi"); err != nil {
		o.logger.Debug().Str("output", string(out)).Msg("npm install output")
		return &SetupError{
			Stage: StageSushi,
			Hint:  "run `npm install -g fsh-sushi` manually and check npm permissions",
			Err:   fmt.Errorf("npm install fsh-sushi: %w", err),
		}
	}
	if _, err := o.runner.LookPath("sushi"); err != nil {
		o.logger.Warn().Msg("sushi not on PATH after install; restart the shell or add the npm global bin to PATH. The build falls back to npx")
	}
	return nil
}

// profilesStage clones the IG, or updates an existing checkout. A failed
// update is tolerated: validation proceeds on the stale checkout.
func (o *Orchestrator) profilesStage() Stage {
	if isDir(filepath.Join(o.opts.IGDir(), ".git")) {
		return Stage{Name: StageProfiles, Tolerable: true, Run: o.updateIG}
	}
	return Stage{Name: StageProfiles, Run: o.cloneIG}
}

func (o *Orchestrator) cloneIG(ctx context.Context) error {
	if err := os.MkdirAll(o.opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	if err := os.RemoveAll(o.opts.IGDir()); err != nil {
		return fmt.Errorf("remove partial checkout: %w", err)
	}

	o.logger.Info().Str("repo", o.opts.IGRepo).Msg("cloning IG repository")
	if out, err := o.runner.Run(ctx, "", "git", "clone", "--depth", "1", o.opts.IGRepo, o.opts.IGDir()); err != nil {
		o.logger.Debug().Str("output", string(out)).Msg("git clone output")
		return &SetupError{
			Stage: StageProfiles,
			Hint:  "check network access to " + o.opts.IGRepo,
			Err:   fmt.Errorf("git clone: %w", err),
		}
	}
	o.logger.Info().Str("dir", o.opts.IGDir()).Msg("repository cloned")
	return nil
}

func (o *Orchestrator) updateIG(ctx context.Context) error {
	dir := o.opts.IGDir()
	var errs []error
	for _, branch := range o.opts.IGBranches {
		if _, err := o.runner.Run(ctx, dir, "git", "fetch", "--depth", "1", "origin", branch); err != nil {
			o.logger.Debug().Err(err).Str("branch", branch).Msg("fetch failed")
			errs = append(errs, fmt.Errorf("fetch %s: %w", branch, err))
			continue
		}
		if _, err := o.runner.Run(ctx, dir, "git", "reset", "--hard", "FETCH_HEAD"); err != nil {
			errs = append(errs, fmt.Errorf("reset to %s: %w", branch, err))
			continue
		}
		o.logger.Info().Str("branch", branch).Str("dir", dir).Msg("repository updated")
		return nil
	}
	return fmt.Errorf("could not update, using existing checkout: %w", errors.Join(errs...))
}

func (o *Orchestrator) buildIG(ctx context.Context) error {
	name, args := "sushi", []string{"build"}
	if _, err := o.runner.LookPath("sushi"); err != nil {
		name, args = "npx", []string{"fsh-sushi", "build"}
	}

	out, err := o.runner.Run(ctx, o.opts.IGDir(), name, args...)
	o.logger.Debug().Str("output", string(out)).Msg("sushi build output")
	if err != nil {
		return &SetupError{
			Stage: StageBuild,
			Hint:  "inspect the sushi output with LOG_LEVEL=debug",
			Err:   fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err),
		}
	}
	o.logger.Info().Str("resources", o.opts.ResourcesDir()).Msg("sushi build complete")
	return nil
}

func (o *Orchestrator) ensureValidator(ctx context.Context) error {
	path := o.opts.ValidatorPath()
	if err := os.MkdirAll(o.opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		o.logger.Info().Str("url", o.opts.ValidatorURL).Msg("downloading FHIR validator")
	case o.now().Sub(info.ModTime()) > o.opts.ValidatorMaxAge:
		age := o.now().Sub(info.ModTime()) / (24 * time.Hour)
		o.logger.Info().Int("age_days", int(age)).Msg("validator is stale, re-downloading")
	default:
		o.logger.Info().Str("path", path).Msg("validator present and recent")
		return nil
	}

	if err := o.downloader.Download(ctx, o.opts.ValidatorURL, path); err != nil {
		return &SetupError{
			Stage: StageValidator,
			Hint:  "check network access to " + o.opts.ValidatorURL,
			Err:   err,
		}
	}
	o.logger.Info().Str("path", path).Msg("validator downloaded")
	return nil
}

// checkExistingSetup is the --skip-setup guard.
func (o *Orchestrator) checkExistingSetup() error {
	if _, err := os.Stat(o.opts.ValidatorPath()); err != nil {
		return &SetupError{
			Stage: "skip-setup",
			Hint:  "run without --skip-setup first",
			Err:   fmt.Errorf("%w at %s", ErrValidatorMissing, o.opts.ValidatorPath()),
		}
	}
	if !isDir(o.opts.ResourcesDir()) {
		return &SetupError{
			Stage: "skip-setup",
			Hint:  "run without --skip-setup first",
			Err:   fmt.Errorf("%w at %s", ErrProfilesMissing, o.opts.ResourcesDir()),
		}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func firstLine(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}
