package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies the default values. The subtests serve as
// living documentation of the defaults; a change here should always be
// intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default export path is index.json", func(t *testing.T) {
		t.Parallel()
		if cfg.ExportPath != "index.json" {
			t.Errorf("expected ExportPath to be 'index.json', got %q", cfg.ExportPath)
		}
	})

	t.Run("default index URL points at the dataset endpoint", func(t *testing.T) {
		t.Parallel()
		if cfg.IndexURL != "https://api.spy.pet/servers" {
			t.Errorf("unexpected IndexURL %q", cfg.IndexURL)
		}
	})

	t.Run("default page size is 1000", func(t *testing.T) {
		t.Parallel()
		if cfg.PageSize != 1000 {
			t.Errorf("expected PageSize 1000, got %d", cfg.PageSize)
		}
	})

	t.Run("default max retries is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 5 {
			t.Errorf("expected MaxRetries 5, got %d", cfg.MaxRetries)
		}
	})

	t.Run("default backoff base is 500ms", func(t *testing.T) {
		t.Parallel()
		if cfg.BackoffBase != 500*time.Millisecond {
			t.Errorf("expected BackoffBase 500ms, got %v", cfg.BackoffBase)
		}
	})

	t.Run("default timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default concurrency is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 1 {
			t.Errorf("expected Concurrency 1, got %d", cfg.Concurrency)
		}
	})

	t.Run("history saving is enabled by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
	})
}

// TestConfigValidate exercises every validation rule with one invalid
// configuration each.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty index URL", func(c *Config) { c.IndexURL = "" }, ErrNoIndexURL},
		{"details without detail URL", func(c *Config) { c.FetchDetails = true; c.DetailURL = "" }, ErrNoDetailURL},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, ErrInvalidPageSize},
		{"negative max retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"zero backoff base", func(c *Config) { c.BackoffBase = 0 }, ErrInvalidBackoff},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative request rate", func(c *Config) { c.RequestsPerSecond = -1 }, ErrInvalidRateLimit},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"both json and markdown", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
		{"negative max body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero max retries is valid", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.MaxRetries = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("zero request rate disables the limiter and is valid", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.RequestsPerSecond = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("endpoint errors name the actual flags", func(t *testing.T) {
		t.Parallel()
		if msg := ErrNoIndexURL.Error(); !strings.Contains(msg, "--index-url") {
			t.Errorf("expected ErrNoIndexURL to mention --index-url, got %q", msg)
		}
		if msg := ErrNoDetailURL.Error(); !strings.Contains(msg, "--detail-url") {
			t.Errorf("expected ErrNoDetailURL to mention --detail-url, got %q", msg)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads endpoint overrides", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, ".guildwatch")
		content := `endpoint:
  indexURL: "https://example.test/servers"
  pageSize: 50
  maxRetries: 2
  backoffBase: "250ms"
  requestsPerSecond: 0.5
export: "package/servers/index.json"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.ApplyTo(cfg)

		if cfg.IndexURL != "https://example.test/servers" {
			t.Errorf("unexpected IndexURL %q", cfg.IndexURL)
		}
		if cfg.PageSize != 50 {
			t.Errorf("expected PageSize 50, got %d", cfg.PageSize)
		}
		if cfg.MaxRetries != 2 {
			t.Errorf("expected MaxRetries 2, got %d", cfg.MaxRetries)
		}
		if cfg.BackoffBase != 250*time.Millisecond {
			t.Errorf("expected BackoffBase 250ms, got %v", cfg.BackoffBase)
		}
		if cfg.RequestsPerSecond != 0.5 {
			t.Errorf("expected RequestsPerSecond 0.5, got %v", cfg.RequestsPerSecond)
		}
		if cfg.ExportPath != "package/servers/index.json" {
			t.Errorf("unexpected ExportPath %q", cfg.ExportPath)
		}
	})

	t.Run("unset fields keep defaults", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, ".guildwatch")
		if err := os.WriteFile(path, []byte("endpoint:\n  pageSize: 10\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.ApplyTo(cfg)

		if cfg.PageSize != 10 {
			t.Errorf("expected PageSize 10, got %d", cfg.PageSize)
		}
		if cfg.IndexURL != DefaultIndexURL {
			t.Errorf("expected default IndexURL, got %q", cfg.IndexURL)
		}
		if cfg.BackoffBase != DefaultBackoffBase {
			t.Errorf("expected default BackoffBase, got %v", cfg.BackoffBase)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml returns an error", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, ".guildwatch")
		if err := os.WriteFile(path, []byte("endpoint: [not a map"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected an error for malformed yaml")
		}
	})

	t.Run("invalid duration returns an error", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, ".guildwatch")
		if err := os.WriteFile(path, []byte("endpoint:\n  backoffBase: \"soon\"\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected an error for invalid duration")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	// Not parallel: changes the working directory.

	t.Run("explicit path wins when it exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "custom.yaml")
		if err := os.WriteFile(path, []byte(""), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit path that does not exist returns empty", func(t *testing.T) {
		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("finds config in current directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte(""), 0600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)
		got := FindConfigFile("")
		if filepath.Base(got) != DefaultConfigFile {
			t.Errorf("expected to find %s, got %q", DefaultConfigFile, got)
		}
	})
}
