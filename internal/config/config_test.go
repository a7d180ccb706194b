package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var configKeys = []string{
	"ENV", "LOG_LEVEL", "PORT", "MIABIS_WORK_DIR", "MIABIS_BUNDLES_DIR",
	"MIABIS_IG_REPO", "MIABIS_IG_BRANCHES", "MIABIS_VALIDATOR_URL",
	"MIABIS_VALIDATOR_MAX_AGE_DAYS", "MIABIS_FHIR_VERSION",
	"MIABIS_EXTENSION_DOMAIN", "MIABIS_MEMBER_LIMIT", "MIABIS_HISTORY_DSN",
	"MIABIS_MAX_GENERATE_COUNT",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		if old, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Errorf("expected development env by default, got %s", cfg.Env)
	}
	if cfg.WorkDir != "miabis-validation" {
		t.Errorf("expected default work dir, got %s", cfg.WorkDir)
	}
	if diff := cmp.Diff([]string{"main", "master"}, cfg.IGBranches); diff != "" {
		t.Errorf("branches (-want +got):\n%s", diff)
	}
	if cfg.ValidatorMaxAge() != 30*24*time.Hour {
		t.Errorf("expected 30 day max age, got %s", cfg.ValidatorMaxAge())
	}
	if cfg.MemberLimit != 20 {
		t.Errorf("expected member limit 20, got %d", cfg.MemberLimit)
	}
	if cfg.MaxGenerateCount != 10000 {
		t.Errorf("expected max generate count 10000, got %d", cfg.MaxGenerateCount)
	}
	want := "sqlite://" + filepath.Join("miabis-validation", "history.db")
	if cfg.HistoryDSN != want {
		t.Errorf("expected history DSN %s, got %s", want, cfg.HistoryDSN)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MIABIS_WORK_DIR", "/tmp/work")
	t.Setenv("MIABIS_IG_BRANCHES", "develop, main")
	t.Setenv("MIABIS_VALIDATOR_MAX_AGE_DAYS", "7")
	t.Setenv("MIABIS_HISTORY_DSN", "postgres://u:p@localhost:5432/miabis")
	t.Setenv("MIABIS_MAX_GENERATE_COUNT", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if diff := cmp.Diff([]string{"develop", "main"}, cfg.IGBranches); diff != "" {
		t.Errorf("branches (-want +got):\n%s", diff)
	}
	opts := cfg.ValidationOptions()
	if opts.WorkDir != "/tmp/work" || opts.ValidatorMaxAge != 7*24*time.Hour {
		t.Errorf("unexpected validation options %+v", opts)
	}
	if cfg.HistoryDSN != "postgres://u:p@localhost:5432/miabis" {
		t.Errorf("expected postgres DSN, got %s", cfg.HistoryDSN)
	}
	if cfg.MaxGenerateCount != 500 {
		t.Errorf("expected max generate count 500, got %d", cfg.MaxGenerateCount)
	}
}

func TestLoad_EmptyHistoryDSNDisablesHistory(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIABIS_HISTORY_DSN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HistoryEnabled() {
		t.Errorf("expected history disabled, got DSN %q", cfg.HistoryDSN)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func validConfig() *Config {
	return &Config{
		Env:                 "development",
		LogLevel:            "info",
		Port:                8000,
		WorkDir:             "miabis-validation",
		IGBranches:          []string{"main"},
		ValidatorMaxAgeDays: 30,
		FHIRVersion:         "4.0.1",
		HistoryDSN:          "sqlite://history.db",
		MaxGenerateCount:    10000,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"history disabled", func(c *Config) { c.HistoryDSN = "" }, ""},
		{"zero port", func(c *Config) { c.Port = 0 }, "PORT"},
		{"missing work dir", func(c *Config) { c.WorkDir = "" }, "MIABIS_WORK_DIR"},
		{"zero max age", func(c *Config) { c.ValidatorMaxAgeDays = 0 }, "MIABIS_VALIDATOR_MAX_AGE_DAYS"},
		{"negative max age", func(c *Config) { c.ValidatorMaxAgeDays = -1 }, "MIABIS_VALIDATOR_MAX_AGE_DAYS"},
		{"empty fhir version", func(c *Config) { c.FHIRVersion = "" }, "MIABIS_FHIR_VERSION"},
		{"no branches", func(c *Config) { c.IGBranches = nil }, "MIABIS_IG_BRANCHES"},
		{"unknown dsn scheme", func(c *Config) { c.HistoryDSN = "mysql://localhost/db" }, "MIABIS_HISTORY_DSN"},
		{"upper-case log level", func(c *Config) { c.LogLevel = "INFO" }, ""},
		{"zero max generate count", func(c *Config) { c.MaxGenerateCount = 0 }, "MIABIS_MAX_GENERATE_COUNT"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
