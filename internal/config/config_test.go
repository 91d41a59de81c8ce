package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Pipeline.PagesPerChunk != 5 || cfg.Pipeline.ChunkThreshold != 10 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Pipeline)
	}
	if cfg.Images.UploadAttempts != 3 || cfg.Images.UploadRetryDelay != 2*time.Second {
		t.Errorf("unexpected upload defaults: %+v", cfg.Images)
	}
	if cfg.Analyzer.APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero pages per chunk",
			mutate:  func(c *Config) { c.Pipeline.PagesPerChunk = 0 },
			wantErr: "PagesPerChunk",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "s3" },
			wantErr: "Backend",
		},
		{
			name: "supabase without bucket",
			mutate: func(c *Config) {
				c.Storage.Backend = "supabase"
				c.Storage.Bucket = ""
			},
			wantErr: "Bucket",
		},
		{
			name:    "jpeg quality out of range",
			mutate:  func(c *Config) { c.Images.JPEGQuality = 101 },
			wantErr: "JPEGQuality",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "Level",
		},
		{
			name:   "local backend ignores supabase fields",
			mutate: func(c *Config) { c.Storage.Bucket = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
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

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands inside a larger string", func(t *testing.T) {
		t.Setenv("TEST_HOST", "cdn.example.com")
		result := ResolveEnvVars("https://${TEST_HOST}/pages")
		if result != "https://cdn.example.com/pages" {
			t.Errorf("unexpected expansion: %s", result)
		}
	})
}

func TestConfig_Resolved(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")
	t.Setenv("TEST_SUPABASE_URL", "https://proj.supabase.co")

	cfg := DefaultConfig()
	cfg.Analyzer.APIKey = "${TEST_OPENROUTER_KEY}"
	cfg.Storage.SupabaseURL = "${TEST_SUPABASE_URL}"
	cfg.Storage.SupabaseKey = "direct-key"

	if got := cfg.ResolvedAnalyzer().APIKey; got != "or-key-123" {
		t.Errorf("expected or-key-123, got %s", got)
	}
	s := cfg.ResolvedStorage()
	if s.SupabaseURL != "https://proj.supabase.co" || s.SupabaseKey != "direct-key" {
		t.Errorf("unexpected storage resolution: %+v", s)
	}
	if cfg.Analyzer.APIKey != "${TEST_OPENROUTER_KEY}" {
		t.Error("resolution must not modify the config")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
pipeline:
  chunk_concurrency: 4
images:
  upload_retry_delay: 500ms
analyzer:
  model: "openai/gpt-4o"
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Pipeline.ChunkConcurrency != 4 {
			t.Errorf("expected 4, got %d", cfg.Pipeline.ChunkConcurrency)
		}
		if cfg.Pipeline.PagesPerChunk != 5 {
			t.Errorf("expected default 5, got %d", cfg.Pipeline.PagesPerChunk)
		}
		if cfg.Images.UploadRetryDelay != 500*time.Millisecond {
			t.Errorf("expected 500ms, got %s", cfg.Images.UploadRetryDelay)
		}
		if cfg.Analyzer.Model != "openai/gpt-4o" {
			t.Errorf("expected openai/gpt-4o, got %s", cfg.Analyzer.Model)
		}
		if mgr.File() != configFile {
			t.Errorf("expected %s, got %s", configFile, mgr.File())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("BROCHURE_PIPELINE_PAGES_PER_CHUNK", "8")
		configFile := writeConfig(t, "pipeline:\n  pages_per_chunk: 3\n")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Pipeline.PagesPerChunk; got != 8 {
			t.Errorf("expected 8, got %d", got)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		configFile := writeConfig(t, "storage:\n  backend: ftp\n")
		if _, err := NewManager(configFile); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Pipeline.PagesPerChunk
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "pipeline:\n  chunk_concurrency: 2\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int64

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int64(cfg.Pipeline.ChunkConcurrency))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("pipeline:\n  chunk_concurrency: 6\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Pipeline.ChunkConcurrency; got != 6 {
		t.Errorf("config not updated: expected 6, got %d", got)
	}
	if v := lastValue.Load(); v != 6 {
		t.Errorf("callback received wrong value: expected 6, got %d", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	content := string(data)
	for _, want := range []string{"# Brochure configuration", "pages_per_chunk: 5", "upload_retry_delay: 2s", "${OPENROUTER_API_KEY}"} {
		if !strings.Contains(content, want) {
			t.Errorf("written config missing %q", want)
		}
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written config should load: %v", err)
	}
	if mgr.Get().Images.UploadRetryDelay != 2*time.Second {
		t.Errorf("round trip lost upload_retry_delay: %s", mgr.Get().Images.UploadRetryDelay)
	}
}

func TestGetDefault(t *testing.T) {
	entry, err := GetDefault("pipeline.chunk_concurrency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Value != 2 {
		t.Errorf("expected 2, got %v", entry.Value)
	}

	_, err = GetDefault("pipeline.nope")
	if !errors.Is(err, ErrNoDefault) {
		t.Errorf("expected ErrNoDefault, got %v", err)
	}
}
