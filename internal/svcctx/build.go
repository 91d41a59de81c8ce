package svcctx

import (
	"fmt"
	"log/slog"

	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/config"
	"github.com/jackzampolin/brochure/internal/home"
	"github.com/jackzampolin/brochure/internal/imagebatch"
	"github.com/jackzampolin/brochure/internal/pipeline"
	"github.com/jackzampolin/brochure/internal/providers"
	"github.com/jackzampolin/brochure/internal/render"
	"github.com/jackzampolin/brochure/internal/storage"
)

// Options controls which services Build constructs.
type Options struct {
	// WithoutAnalyzer skips the LLM client and processor, for commands that
	// only inspect documents or the cache.
	WithoutAnalyzer bool
	// Client replaces the configured LLM client.
	Client providers.LLMClient
}

// Build constructs the services described by the current configuration.
// The caller owns the result and must Close it.
func Build(mgr *config.Manager, dir *home.Dir, logger *slog.Logger, opts Options) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := mgr.Get()

	if err := dir.EnsureExists(); err != nil {
		return nil, err
	}

	db, err := storage.OpenDB(home.OrDefault(cfg.Storage.IndexDir, dir.IndexPath()), logger)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Logger: logger,
		Home:   dir,
		Config: mgr,
		DB:     db,
		Index:  storage.NewBadgerIndex(db),
	}

	backend, err := buildStore(cfg, dir, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Store = storage.NewCachedStore(backend, s.Index)

	if opts.WithoutAnalyzer {
		return s, nil
	}

	client := opts.Client
	if client == nil {
		a := cfg.ResolvedAnalyzer()
		client, err = providers.New(providers.ClientConfig{
			Provider:  a.Provider,
			APIKey:    a.APIKey,
			Model:     a.Model,
			BaseURL:   a.BaseURL,
			Timeout:   a.Timeout,
			RateLimit: a.RateLimit,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create %s client: %w", a.Provider, err)
		}
	}
	s.Client = client

	pageAnalyzer, err := analyzer.NewLLMAnalyzer(analyzer.Config{
		Client:      client,
		Model:       cfg.Analyzer.Model,
		MaxTokens:   cfg.Analyzer.MaxTokens,
		Temperature: cfg.Analyzer.Temperature,
		Logger:      logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Analyzer = pageAnalyzer

	s.Processor, err = pipeline.New(PipelineConfig(cfg, dir, s.Store, pageAnalyzer, db, logger))
	if err != nil {
		s.Close()
		return nil, err
	}

	logger.Debug("services ready",
		"storage", cfg.Storage.Backend,
		"provider", client.Name(),
		"model", cfg.Analyzer.Model)
	return s, nil
}

// PipelineConfig maps configuration onto a pipeline.Config.
func PipelineConfig(cfg *config.Config, dir *home.Dir, store storage.ImageStore, a analyzer.PageAnalyzer, db *storage.DB, logger *slog.Logger) pipeline.Config {
	return pipeline.Config{
		PagesPerChunk:    cfg.Pipeline.PagesPerChunk,
		ChunkThreshold:   cfg.Pipeline.ChunkThreshold,
		ChunkConcurrency: cfg.Pipeline.ChunkConcurrency,
		Images: imagebatch.Config{
			Store: store,
			DPI:   cfg.Images.DPI,
			Spec: render.VariantSpec{
				LargeWidth:     cfg.Images.LargeWidth,
				MediumWidth:    cfg.Images.MediumWidth,
				ThumbnailWidth: cfg.Images.ThumbnailWidth,
				JPEGQuality:    cfg.Images.JPEGQuality,
			},
			Concurrency: cfg.Images.UploadConcurrency,
			Attempts:    cfg.Images.UploadAttempts,
			RetryDelay:  cfg.Images.UploadRetryDelay,
			StagingDir:  dir.StagingPath(),
			Logger:      logger,
		},
		Analyzer: a,
		DB:       db,
		Logger:   logger,
	}
}

func buildStore(cfg *config.Config, dir *home.Dir, logger *slog.Logger) (storage.ImageStore, error) {
	sc := cfg.ResolvedStorage()
	switch sc.Backend {
	case "supabase":
		if sc.SupabaseURL == "" || sc.SupabaseKey == "" {
			return nil, fmt.Errorf("supabase storage requires storage.supabase_url and storage.supabase_key")
		}
		return storage.NewSupabaseStore(storage.SupabaseConfig{
			URL:    sc.SupabaseURL,
			Key:    sc.SupabaseKey,
			Bucket: sc.Bucket,
			Logger: logger,
		})
	default:
		return storage.NewLocalStore(home.OrDefault(sc.LocalDir, dir.ImagesPath()), sc.PublicBaseURL)
	}
}
