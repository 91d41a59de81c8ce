package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is one documented configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every configuration key with its default value.
// Viper defaults are registered from this list, so each key is also
// settable through a BROCHURE_ environment variable.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// Pipeline
		{Key: "pipeline.pages_per_chunk", Value: d.Pipeline.PagesPerChunk, Description: "Pages per chunk"},
		{Key: "pipeline.chunk_threshold", Value: d.Pipeline.ChunkThreshold, Description: "Documents with at most this many pages are processed as one chunk"},
		{Key: "pipeline.chunk_concurrency", Value: d.Pipeline.ChunkConcurrency, Description: "Chunks analyzed at once"},

		// Images
		{Key: "images.dpi", Value: d.Images.DPI, Description: "Rasterization resolution"},
		{Key: "images.upload_concurrency", Value: d.Images.UploadConcurrency, Description: "Pages uploaded per batch"},
		{Key: "images.upload_attempts", Value: d.Images.UploadAttempts, Description: "Upload attempts per page"},
		{Key: "images.upload_retry_delay", Value: d.Images.UploadRetryDelay, Description: "Fixed delay between upload attempts"},
		{Key: "images.jpeg_quality", Value: d.Images.JPEGQuality, Description: "JPEG quality for all variants"},
		{Key: "images.large_width", Value: d.Images.LargeWidth, Description: "Width of the large variant in pixels"},
		{Key: "images.medium_width", Value: d.Images.MediumWidth, Description: "Width of the medium variant in pixels"},
		{Key: "images.thumbnail_width", Value: d.Images.ThumbnailWidth, Description: "Width of the thumbnail variant in pixels"},

		// Storage
		{Key: "storage.backend", Value: d.Storage.Backend, Description: "Image store: local or supabase"},
		{Key: "storage.local_dir", Value: d.Storage.LocalDir, Description: "Local image directory (empty: <home>/images)"},
		{Key: "storage.public_base_url", Value: d.Storage.PublicBaseURL, Description: "Public URL prefix for local images (empty: file:// URLs)"},
		{Key: "storage.supabase_url", Value: d.Storage.SupabaseURL, Description: "Supabase project URL (uses environment variable)"},
		{Key: "storage.supabase_key", Value: d.Storage.SupabaseKey, Description: "Supabase service key (uses environment variable)"},
		{Key: "storage.bucket", Value: d.Storage.Bucket, Description: "Supabase storage bucket"},
		{Key: "storage.index_dir", Value: d.Storage.IndexDir, Description: "Cache index database directory (empty: <home>/index)"},

		// Analyzer
		{Key: "analyzer.provider", Value: d.Analyzer.Provider, Description: "Page analysis provider: openrouter, openai, or mock"},
		{Key: "analyzer.model", Value: d.Analyzer.Model, Description: "Vision model used for page analysis"},
		{Key: "analyzer.api_key", Value: d.Analyzer.APIKey, Description: "Provider API key (uses environment variable)"},
		{Key: "analyzer.base_url", Value: d.Analyzer.BaseURL, Description: "Provider base URL override"},
		{Key: "analyzer.rate_limit", Value: d.Analyzer.RateLimit, Description: "Requests per minute; 0 disables limiting"},
		{Key: "analyzer.timeout", Value: d.Analyzer.Timeout, Description: "HTTP timeout per request"},
		{Key: "analyzer.max_tokens", Value: d.Analyzer.MaxTokens, Description: "Completion token limit per page"},
		{Key: "analyzer.temperature", Value: d.Analyzer.Temperature, Description: "Sampling temperature"},

		// Logging
		{Key: "logging.level", Value: d.Logging.Level, Description: "Log level: debug, info, warn, or error"},
	}
}

// GetDefault returns the default entry for a config key.
// Returns ErrNoDefault if no default exists for the key.
func GetDefault(key string) (Entry, error) {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return entry, nil
		}
	}
	return Entry{}, fmt.Errorf("%w for key %q", ErrNoDefault, key)
}

// defaultTree nests the default entries by key segment for YAML output.
// Durations are written in their string form so the file stays readable.
func defaultTree() map[string]any {
	tree := make(map[string]any)
	for _, entry := range DefaultEntries() {
		parts := strings.Split(entry.Key, ".")
		node := tree
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		value := entry.Value
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		node[parts[len(parts)-1]] = value
	}
	return tree
}
