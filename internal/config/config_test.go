package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tsumugi/internal/config"
)

func TestLoadDefaultsUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TSUMUGI_EXTRACTION_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

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

	wantLibrary := filepath.Join(tempHome, ".local", "share", "tsumugi", "library")
	if cfg.Paths.LibraryDir != wantLibrary {
		t.Fatalf("unexpected library dir: got %q want %q", cfg.Paths.LibraryDir, wantLibrary)
	}
	if cfg.Extraction.APIKey != "env-key" {
		t.Fatalf("expected extraction key from env, got %q", cfg.Extraction.APIKey)
	}
	if cfg.Translation.SourceLanguage != "ja" || cfg.Translation.TargetLanguage != "en" {
		t.Fatalf("unexpected translation defaults: %s -> %s",
			cfg.Translation.SourceLanguage, cfg.Translation.TargetLanguage)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled by default")
	}
	if cfg.Cache.TTLSeconds != 300 {
		t.Fatalf("unexpected cache ttl: %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Workflow.MaxReextracts != 3 {
		t.Fatalf("unexpected max re-extracts: %d", cfg.Workflow.MaxReextracts)
	}
	if len(cfg.Consolidation.CommonWords) == 0 {
		t.Fatal("expected default common words")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tsumugi.toml")

	type payload struct {
		Paths struct {
			LibraryDir string `toml:"library_dir"`
			LogDir     string `toml:"log_dir"`
		} `toml:"paths"`
		Translation struct {
			TargetLanguage string `toml:"target_language"`
		} `toml:"translation"`
		Extraction struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"extraction"`
		Cache struct {
			Target string `toml:"target"`
		} `toml:"cache"`
	}
	custom := payload{}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "library")
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Translation.TargetLanguage = "DE"
	custom.Extraction.APIKey = "file-key"
	custom.Extraction.Model = "custom/model"
	custom.Cache.Target = "custom-target"

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
	if cfg.Extraction.APIKey != "file-key" {
		t.Fatalf("expected extraction key from file, got %q", cfg.Extraction.APIKey)
	}
	if cfg.Extraction.Model != "custom/model" {
		t.Fatalf("unexpected model: %q", cfg.Extraction.Model)
	}
	if cfg.Translation.TargetLanguage != "de" {
		t.Fatalf("expected target language lowered to de, got %q", cfg.Translation.TargetLanguage)
	}
	if cfg.Cache.Target != "custom-target" {
		t.Fatalf("unexpected cache target: %q", cfg.Cache.Target)
	}
	// Unset sections keep their defaults.
	if cfg.Extraction.TimeoutSeconds != 60 {
		t.Fatalf("unexpected extraction timeout: %d", cfg.Extraction.TimeoutSeconds)
	}
}

func TestFileAPIKeyWinsOverEnv(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tsumugi.toml")
	content := `[paths]
library_dir = "` + filepath.Join(tempDir, "library") + `"
log_dir = "` + filepath.Join(tempDir, "logs") + `"

[extraction]
api_key = "file-key"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TSUMUGI_EXTRACTION_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Extraction.APIKey != "file-key" {
		t.Fatalf("expected file key to win, got %q", cfg.Extraction.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "empty library dir",
			mutate: func(c *config.Config) { c.Paths.LibraryDir = "" },
			want:   "paths.library_dir",
		},
		{
			name:   "merge bonus out of range",
			mutate: func(c *config.Config) { c.Consolidation.MergeBonus = 1.5 },
			want:   "consolidation.merge_bonus",
		},
		{
			name:   "non-positive cache ttl",
			mutate: func(c *config.Config) { c.Cache.TTLSeconds = 0 },
			want:   "cache.ttl_seconds",
		},
		{
			name:   "unknown log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.LibraryDir = "/tmp/library"
			cfg.Paths.LogDir = "/tmp/logs"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDocumentDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LibraryDir = "/data/library"
	if got := cfg.DocumentDir("bookworm_vol_1"); got != "/data/library/bookworm_vol_1" {
		t.Fatalf("unexpected document dir: %q", got)
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
}
