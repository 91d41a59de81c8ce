package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the brochure home directory.
	DefaultDirName = ".brochure"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// ImagesDirName holds page images written by the local store.
	ImagesDirName = "images"

	// IndexDirName holds the badger database of the cache index and job diagnostics.
	IndexDirName = "index"

	// StagingDirName is the parent of per-run staging directories.
	StagingDirName = "staging"

	// ResultsDirName holds extraction results written by the CLI.
	ResultsDirName = "results"
)

// Dir represents the brochure home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.brochure).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ImagesPath returns the local image store root.
func (d *Dir) ImagesPath() string {
	return filepath.Join(d.path, ImagesDirName)
}

// IndexPath returns the badger database directory.
func (d *Dir) IndexPath() string {
	return filepath.Join(d.path, IndexDirName)
}

// StagingPath returns the parent of per-run staging directories.
func (d *Dir) StagingPath() string {
	return filepath.Join(d.path, StagingDirName)
}

// ResultsPath returns the directory for extraction results.
func (d *Dir) ResultsPath() string {
	return filepath.Join(d.path, ResultsDirName)
}

// ResultPath returns the result file for a job.
func (d *Dir) ResultPath(jobID, ext string) string {
	return filepath.Join(d.ResultsPath(), fmt.Sprintf("%s.%s", jobID, strings.TrimPrefix(ext, ".")))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.ImagesPath(), d.IndexPath(), d.StagingPath(), d.ResultsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// OrDefault returns configured when set, otherwise fallback.
func OrDefault(configured, fallback string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return fallback
}
