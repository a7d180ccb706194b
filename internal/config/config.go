package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/miabis/miabis/internal/platform/db"
	"github.com/miabis/miabis/internal/platform/validation"
)

type Config struct {
	Env                 string   `mapstructure:"ENV"`
	LogLevel            string   `mapstructure:"LOG_LEVEL"`
	Port                int      `mapstructure:"PORT"`
	WorkDir             string   `mapstructure:"MIABIS_WORK_DIR"`
	BundlesDir          string   `mapstructure:"MIABIS_BUNDLES_DIR"`
	IGRepo              string   `mapstructure:"MIABIS_IG_REPO"`
	IGBranches          []string `mapstructure:"MIABIS_IG_BRANCHES"`
	ValidatorURL        string   `mapstructure:"MIABIS_VALIDATOR_URL"`
	ValidatorMaxAgeDays int      `mapstructure:"MIABIS_VALIDATOR_MAX_AGE_DAYS"`
	FHIRVersion         string   `mapstructure:"MIABIS_FHIR_VERSION"`
	ExtensionDomain     string   `mapstructure:"MIABIS_EXTENSION_DOMAIN"`
	MemberLimit         int      `mapstructure:"MIABIS_MEMBER_LIMIT"`
	HistoryDSN          string   `mapstructure:"MIABIS_HISTORY_DSN"`
	MaxGenerateCount    int      `mapstructure:"MIABIS_MAX_GENERATE_COUNT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 8000)
	v.SetDefault("MIABIS_WORK_DIR", "miabis-validation")
	v.SetDefault("MIABIS_BUNDLES_DIR", "bundles")
	v.SetDefault("MIABIS_IG_REPO", "https://github.com/BBMRI-cz/miabis-on-fhir.git")
	v.SetDefault("MIABIS_IG_BRANCHES", "main,master")
	v.SetDefault("MIABIS_VALIDATOR_URL", "https://github.com/hapifhir/org.hl7.fhir.core/releases/latest/download/validator_cli.jar")
	v.SetDefault("MIABIS_VALIDATOR_MAX_AGE_DAYS", 30)
	v.SetDefault("MIABIS_FHIR_VERSION", "4.0.1")
	v.SetDefault("MIABIS_EXTENSION_DOMAIN", "http://example.org/")
	v.SetDefault("MIABIS_MEMBER_LIMIT", 20)
	v.SetDefault("MIABIS_MAX_GENERATE_COUNT", 10000)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"ENV",
		"LOG_LEVEL",
		"PORT",
		"MIABIS_WORK_DIR",
		"MIABIS_BUNDLES_DIR",
		"MIABIS_IG_REPO",
		"MIABIS_IG_BRANCHES",
		"MIABIS_VALIDATOR_URL",
		"MIABIS_VALIDATOR_MAX_AGE_DAYS",
		"MIABIS_FHIR_VERSION",
		"MIABIS_EXTENSION_DOMAIN",
		"MIABIS_MEMBER_LIMIT",
		"MIABIS_HISTORY_DSN",
		"MIABIS_MAX_GENERATE_COUNT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.IGBranches = splitList(strings.Join(cfg.IGBranches, ","))

	// Unset means the default sqlite file; set but empty disables history.
	if !v.IsSet("MIABIS_HISTORY_DSN") {
		cfg.HistoryDSN = "sqlite://" + filepath.Join(cfg.WorkDir, "history.db")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValidatorMaxAge is the download refresh threshold.
func (c *Config) ValidatorMaxAge() time.Duration {
	return time.Duration(c.ValidatorMaxAgeDays) * 24 * time.Hour
}

// HistoryEnabled reports whether validation runs are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDSN != ""
}

// ValidationOptions maps the configuration onto orchestrator options.
func (c *Config) ValidationOptions() validation.Options {
	return validation.Options{
		WorkDir:         c.WorkDir,
		IGRepo:          c.IGRepo,
		IGBranches:      c.IGBranches,
		ValidatorURL:    c.ValidatorURL,
		ValidatorMaxAge: c.ValidatorMaxAge(),
		FHIRVersion:     c.FHIRVersion,
		ExtensionDomain: c.ExtensionDomain,
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("PORT must be positive, got %d", c.Port)
	}
	if c.WorkDir == "" {
		return fmt.Errorf("MIABIS_WORK_DIR is required")
	}
	if c.ValidatorMaxAgeDays <= 0 {
		return fmt.Errorf("MIABIS_VALIDATOR_MAX_AGE_DAYS must be positive, got %d", c.ValidatorMaxAgeDays)
	}
	if c.FHIRVersion == "" {
		return fmt.Errorf("MIABIS_FHIR_VERSION is required")
	}
	if len(c.IGBranches) == 0 {
		return fmt.Errorf("MIABIS_IG_BRANCHES must name at least one branch")
	}
	if c.MaxGenerateCount <= 0 {
		return fmt.Errorf("MIABIS_MAX_GENERATE_COUNT must be positive, got %d", c.MaxGenerateCount)
	}
	if c.HistoryEnabled() {
		if _, _, err := db.ParseDSN(c.HistoryDSN); err != nil {
			return fmt.Errorf("MIABIS_HISTORY_DSN: %w", err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}
