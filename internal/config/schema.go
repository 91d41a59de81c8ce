package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds brochure configuration.
// Stored at: ~/.brochure/config.yaml
type Config struct {
	Pipeline PipelineCfg `mapstructure:"pipeline" yaml:"pipeline"`
	Images   ImagesCfg   `mapstructure:"images" yaml:"images"`
	Storage  StorageCfg  `mapstructure:"storage" yaml:"storage"`
	Analyzer AnalyzerCfg `mapstructure:"analyzer" yaml:"analyzer"`
	Logging  LoggingCfg  `mapstructure:"logging" yaml:"logging"`
}

// PipelineCfg controls chunking and chunk fan-out.
type PipelineCfg struct {
	PagesPerChunk    int `mapstructure:"pages_per_chunk" yaml:"pages_per_chunk" validate:"min=1"`
	ChunkThreshold   int `mapstructure:"chunk_threshold" yaml:"chunk_threshold" validate:"min=0"`
	ChunkConcurrency int `mapstructure:"chunk_concurrency" yaml:"chunk_concurrency" validate:"min=1"`
}

// ImagesCfg controls page rendering and upload.
type ImagesCfg struct {
	DPI               float64       `mapstructure:"dpi" yaml:"dpi" validate:"gt=0"`
	UploadConcurrency int           `mapstructure:"upload_concurrency" yaml:"upload_concurrency" validate:"min=1"`
	UploadAttempts    uint          `mapstructure:"upload_attempts" yaml:"upload_attempts" validate:"min=1"`
	UploadRetryDelay  time.Duration `mapstructure:"upload_retry_delay" yaml:"upload_retry_delay" validate:"min=0"`
	JPEGQuality       int           `mapstructure:"jpeg_quality" yaml:"jpeg_quality" validate:"min=1,max=100"`
	LargeWidth        int           `mapstructure:"large_width" yaml:"large_width" validate:"min=1"`
	MediumWidth       int           `mapstructure:"medium_width" yaml:"medium_width" validate:"min=1"`
	ThumbnailWidth    int           `mapstructure:"thumbnail_width" yaml:"thumbnail_width" validate:"min=1"`
}

// StorageCfg selects where page images are uploaded.
type StorageCfg struct {
	Backend       string `mapstructure:"backend" yaml:"backend" validate:"oneof=local supabase"`
	LocalDir      string `mapstructure:"local_dir" yaml:"local_dir"`            // empty: <home>/images
	PublicBaseURL string `mapstructure:"public_base_url" yaml:"public_base_url"` // empty: file:// URLs
	SupabaseURL   string `mapstructure:"supabase_url" yaml:"supabase_url" validate:"required_if=Backend supabase"`
	SupabaseKey   string `mapstructure:"supabase_key" yaml:"supabase_key" validate:"required_if=Backend supabase"`
	Bucket        string `mapstructure:"bucket" yaml:"bucket" validate:"required_if=Backend supabase"`
	IndexDir      string `mapstructure:"index_dir" yaml:"index_dir"` // empty: <home>/index
}

// AnalyzerCfg configures the page analysis model.
type AnalyzerCfg struct {
	Provider    string        `mapstructure:"provider" yaml:"provider" validate:"oneof=openrouter openai mock"`
	Model       string        `mapstructure:"model" yaml:"model" validate:"required"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	RateLimit   int           `mapstructure:"rate_limit" yaml:"rate_limit" validate:"min=0"` // requests per minute
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens" validate:"min=1"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature" validate:"min=0,max=2"`
}

// LoggingCfg configures the CLI logger.
type LoggingCfg struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineCfg{
			PagesPerChunk:    5,
			ChunkThreshold:   10,
			ChunkConcurrency: 2,
		},
		Images: ImagesCfg{
			DPI:               150,
			UploadConcurrency: 10,
			UploadAttempts:    3,
			UploadRetryDelay:  2 * time.Second,
			JPEGQuality:       85,
			LargeWidth:        1600,
			MediumWidth:       800,
			ThumbnailWidth:    320,
		},
		Storage: StorageCfg{
			Backend:     "local",
			SupabaseURL: "${SUPABASE_URL}",
			SupabaseKey: "${SUPABASE_SERVICE_KEY}",
			Bucket:      "brochure-pages",
		},
		Analyzer: AnalyzerCfg{
			Provider:    "openrouter",
			Model:       "google/gemini-2.5-flash",
			APIKey:      "${OPENROUTER_API_KEY}",
			RateLimit:   60,
			Timeout:     2 * time.Minute,
			MaxTokens:   4096,
			Temperature: 0.1,
		},
		Logging: LoggingCfg{Level: "info"},
	}
}

var validate = validator.New()

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ResolvedAnalyzer returns the analyzer settings with ${ENV_VAR} references expanded.
func (c *Config) ResolvedAnalyzer() AnalyzerCfg {
	a := c.Analyzer
	a.APIKey = ResolveEnvVars(a.APIKey)
	a.BaseURL = ResolveEnvVars(a.BaseURL)
	return a
}

// ResolvedStorage returns the storage settings with ${ENV_VAR} references expanded.
func (c *Config) ResolvedStorage() StorageCfg {
	s := c.Storage
	s.SupabaseURL = ResolveEnvVars(s.SupabaseURL)
	s.SupabaseKey = ResolveEnvVars(s.SupabaseKey)
	s.PublicBaseURL = ResolveEnvVars(s.PublicBaseURL)
	return s
}
