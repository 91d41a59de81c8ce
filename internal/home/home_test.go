package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-brochure")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-brochure" {
			t.Errorf("expected path /tmp/test-brochure, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-brochure")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-brochure/config.yaml"},
		{"ImagesPath", dir.ImagesPath(), "/tmp/test-brochure/images"},
		{"IndexPath", dir.IndexPath(), "/tmp/test-brochure/index"},
		{"StagingPath", dir.StagingPath(), "/tmp/test-brochure/staging"},
		{"ResultPath", dir.ResultPath("job-1", ".json"), "/tmp/test-brochure/results/job-1.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "brochure-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	for _, p := range []string{dir.ImagesPath(), dir.IndexPath(), dir.StagingPath(), dir.ResultsPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if dir.ConfigExists() {
		t.Error("config should not exist")
	}

	// Idempotent
	if err := dir.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists failed: %v", err)
	}
}

func TestOrDefault(t *testing.T) {
	if got := OrDefault("", "/fallback"); got != "/fallback" {
		t.Errorf("expected fallback, got %s", got)
	}
	if got := OrDefault("/custom", "/fallback"); got != "/custom" {
		t.Errorf("expected /custom, got %s", got)
	}
}
