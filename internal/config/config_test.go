package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns a config that passes validation.
func validConfig() *Config {
	c := NewConfig()
	c.Targets = []string{"https://example.com/article"}
	return c
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("defaults with a target are valid", func(t *testing.T) {
		t.Parallel()

		if err := validConfig().Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no target", func(c *Config) { c.Targets = nil }, ErrNoTarget},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalidTimeout},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative retries", func(c *Config) { c.FetchRetries = -1 }, ErrInvalidFetchRetries},
		{"both report formats", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestLoadConfigFile tests credentials file loading and merging.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads yaml credentials", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		content := "api_key: test-key\nsearch_api_key: search-key\nsearch_engine_id: engine1\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if f.APIKey != "test-key" {
			t.Errorf("expected api key 'test-key', got %q", f.APIKey)
		}
		if f.SearchEngineID != "engine1" {
			t.Errorf("expected engine 'engine1', got %q", f.SearchEngineID)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(":\n  - not yaml"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error for malformed yaml")
		}
	})

	t.Run("flag values win over file values", func(t *testing.T) {
		t.Parallel()

		c := validConfig()
		c.APIKey = "from-flag"
		c.Apply(&File{APIKey: "from-file", SearchAPIKey: "search-from-file"})

		if c.APIKey != "from-flag" {
			t.Errorf("flag value should win, got %q", c.APIKey)
		}
		if c.SearchAPIKey != "search-from-file" {
			t.Errorf("file should fill unset fields, got %q", c.SearchAPIKey)
		}
	})

	t.Run("file endpoint overrides default only", func(t *testing.T) {
		t.Parallel()

		c := validConfig()
		c.Apply(&File{ScoreEndpoint: "https://proxy.internal/generate"})
		if c.ScoreEndpoint != "https://proxy.internal/generate" {
			t.Errorf("file endpoint should replace the default, got %q", c.ScoreEndpoint)
		}

		c2 := validConfig()
		c2.ScoreEndpoint = "https://flag.example/generate"
		c2.Apply(&File{ScoreEndpoint: "https://proxy.internal/generate"})
		if c2.ScoreEndpoint != "https://flag.example/generate" {
			t.Errorf("flag endpoint should win, got %q", c2.ScoreEndpoint)
		}
	})
}
