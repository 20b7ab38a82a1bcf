package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"imgferry/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	t.Setenv("IMGFERRY_API_TOKEN", "")
	t.Setenv("IMGFERRY_PUBLIC_BASE_URL", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "imgferry")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.ScratchDir != filepath.Join(wantData, "scratch") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "imgferry.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Server.Bind != "127.0.0.1:7630" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.FetchTimeout() != 30*time.Second {
		t.Fatalf("unexpected fetch timeout: %v", cfg.FetchTimeout())
	}
	if cfg.Normalize.MaxDimension != 1920 || cfg.Normalize.JPEGQuality != 85 || cfg.Normalize.WebPQuality != 85 {
		t.Fatalf("unexpected normalize defaults: %+v", cfg.Normalize)
	}
	if cfg.Migration.BatchSize != 10 {
		t.Fatalf("unexpected batch size: %d", cfg.Migration.BatchSize)
	}
	if cfg.BatchPause() != time.Second {
		t.Fatalf("unexpected batch pause: %v", cfg.BatchPause())
	}
	if cfg.CleanupDelay() != time.Minute {
		t.Fatalf("unexpected cleanup delay: %v", cfg.CleanupDelay())
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "imgferry.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Server struct {
			PublicBaseURL string `toml:"public_base_url"`
		} `toml:"server"`
		Migration struct {
			BatchSize int `toml:"batch_size"`
		} `toml:"migration"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Server.PublicBaseURL = "https://blog.example.com/"
	custom.Migration.BatchSize = 3
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Server.PublicBaseURL != "https://blog.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Migration.BatchSize != 3 {
		t.Fatalf("expected batch size 3, got %d", cfg.Migration.BatchSize)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
	if cfg.Normalize.MaxDimension != 1920 {
		t.Fatalf("expected defaults for unset sections, got %d", cfg.Normalize.MaxDimension)
	}
}

func TestEnvVarFillsUnsetServerValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IMGFERRY_API_TOKEN", " secret ")
	t.Setenv("IMGFERRY_PUBLIC_BASE_URL", "http://localhost:8080/")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "secret" {
		t.Fatalf("expected token from env, got %q", cfg.Server.APIToken)
	}
	if cfg.Server.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("expected base url from env, got %q", cfg.Server.PublicBaseURL)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "imgferry.toml")
	if err := os.WriteFile(configPath, []byte("[fetch]\ntimeout = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "public_base_url") {
		t.Fatalf("sample config missing public_base_url: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.DataDir, "imgferry") {
			t.Fatalf("expected data dir to contain imgferry, got %q", cfg.Paths.DataDir)
		}
	}
	if cfg.Migration.BatchSize != 10 {
		t.Fatalf("expected sample batch size 10, got %d", cfg.Migration.BatchSize)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"fetch timeout", func(c *config.Config) { c.Fetch.TimeoutSeconds = 0 }},
		{"fetch max bytes", func(c *config.Config) { c.Fetch.MaxBytes = 0 }},
		{"max dimension", func(c *config.Config) { c.Normalize.MaxDimension = 0 }},
		{"jpeg quality", func(c *config.Config) { c.Normalize.JPEGQuality = 101 }},
		{"webp quality", func(c *config.Config) { c.Normalize.WebPQuality = 0 }},
		{"archive entries", func(c *config.Config) { c.Archive.MaxEntries = 0 }},
		{"cleanup delay", func(c *config.Config) { c.Archive.CleanupDelaySeconds = -1 }},
		{"batch size", func(c *config.Config) { c.Migration.BatchSize = 0 }},
		{"batch pause", func(c *config.Config) { c.Migration.BatchPauseMS = -5 }},
		{"base url scheme", func(c *config.Config) { c.Server.PublicBaseURL = "ftp://example.com" }},
		{"base url host", func(c *config.Config) { c.Server.PublicBaseURL = "https://" }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
