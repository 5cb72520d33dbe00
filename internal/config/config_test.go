package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempFile(t, `
max_messages: 500
workers: 4
call_timeout: 5s
timezone: UTC
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxMessages != 500 || cfg.Workers != 4 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.CallTimeout != 5*time.Second {
		t.Fatalf("call_timeout want 5s got %s", cfg.CallTimeout)
	}
	if cfg.Top != 20 {
		t.Fatalf("unset keys should keep defaults, top=%d", cfg.Top)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempFile(t, "not: [valid_yaml")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(envMaxMessages, "3000")
	t.Setenv(envCallTimeout, "10s")
	t.Setenv(envRatePerSecond, "2.5")
	t.Setenv(envListen, ":9000")

	cfg, err := ApplyEnv(Default())
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.MaxMessages != 3000 || cfg.CallTimeout != 10*time.Second || cfg.RatePerSecond != 2.5 || cfg.Listen != ":9000" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestApplyEnvInvalidNumber(t *testing.T) {
	t.Setenv(envWorkers, "many")
	if _, err := ApplyEnv(Default()); err == nil || !strings.Contains(err.Error(), envWorkers) {
		t.Fatalf("expected error naming %s, got %v", envWorkers, err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(envTop+"=7\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv(envTop, "")
	os.Unsetenv(envTop)

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg, err := ApplyEnv(Default())
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Top != 7 {
		t.Fatalf("top want 7 got %d", cfg.Top)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"cap too small", func(c *Config) { c.MaxMessages = 99 }, "max_messages"},
		{"cap too large", func(c *Config) { c.MaxMessages = 10001 }, "max_messages"},
		{"page size", func(c *Config) { c.PageSize = 501 }, "page_size"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"top", func(c *Config) { c.Top = 0 }, "top"},
		{"timeout", func(c *Config) { c.CallTimeout = 0 }, "call_timeout"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
