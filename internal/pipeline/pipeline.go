// Package pipeline runs the end-to-end extraction of one brochure: split into
// chunks, generate page images once, analyze chunks concurrently, aggregate,
// and finalize a single building record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/brochure/internal/aggregate"
	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/chunkproc"
	"github.com/jackzampolin/brochure/internal/document"
	"github.com/jackzampolin/brochure/internal/imagebatch"
	"github.com/jackzampolin/brochure/internal/recorder"
	"github.com/jackzampolin/brochure/internal/storage"
	"github.com/jackzampolin/brochure/internal/types"
)

// DefaultChunkConcurrency is the number of chunks analyzed at once.
const DefaultChunkConcurrency = 2

// Config configures a Processor.
type Config struct {
	PagesPerChunk    int
	ChunkThreshold   int
	ChunkConcurrency int

	Images   imagebatch.Config
	Analyzer analyzer.PageAnalyzer

	// DB, when set, receives the diagnostics of every job.
	DB     *storage.DB
	Logger *slog.Logger
}

// Processor runs extraction jobs. It holds no per-job state and may run
// several jobs concurrently.
type Processor struct {
	chunker     *document.Chunker
	images      *imagebatch.Generator
	chunks      *chunkproc.Processor
	concurrency int
	db          *storage.DB
	logger      *slog.Logger
}

// New creates a processor.
func New(cfg Config) (*Processor, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("page analyzer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = DefaultChunkConcurrency
	}
	if cfg.ChunkThreshold == 0 {
		cfg.ChunkThreshold = document.DefaultChunkThreshold
	}
	if cfg.Images.Logger == nil {
		cfg.Images.Logger = cfg.Logger
	}

	images, err := imagebatch.NewGenerator(cfg.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to create image generator: %w", err)
	}

	return &Processor{
		chunker:     document.NewChunker(cfg.PagesPerChunk, cfg.ChunkThreshold, cfg.Logger),
		images:      images,
		chunks:      chunkproc.New(cfg.Analyzer, cfg.Logger),
		concurrency: cfg.ChunkConcurrency,
		db:          cfg.DB,
		logger:      cfg.Logger,
	}, nil
}

// ImageStats summarizes the image batch of a job.
type ImageStats struct {
	Attempted  int                      `json:"attempted" yaml:"attempted"`
	Succeeded  int                      `json:"succeeded" yaml:"succeeded"`
	Failed     []imagebatch.PageFailure `json:"failed,omitempty" yaml:"failed,omitempty"`
	CacheHits  int                      `json:"cache_hits" yaml:"cache_hits"`
	DurationMs int64                    `json:"duration_ms" yaml:"duration_ms"`
}

// Result is the output of one job. Record carries whatever partial data was
// assembled; Errors and Warnings are always present.
type Result struct {
	JobID       string               `json:"job_id" yaml:"job_id"`
	Source      string               `json:"source" yaml:"source"`
	ContentHash string               `json:"content_hash" yaml:"content_hash"`
	PageCount   int                  `json:"page_count" yaml:"page_count"`
	Record      types.BuildingRecord `json:"record" yaml:"record"`
	Errors      []string             `json:"errors" yaml:"errors"`
	Warnings    []string             `json:"warnings" yaml:"warnings"`
	Chunks      []*chunkproc.Result  `json:"chunks" yaml:"chunks"`
	Images      ImageStats           `json:"images" yaml:"images"`
	Summary     aggregate.Summary    `json:"summary" yaml:"summary"`
	Diagnostics recorder.Summary     `json:"diagnostics" yaml:"diagnostics"`
	DurationMs  int64                `json:"duration_ms" yaml:"duration_ms"`
}

// Plan returns the chunk ranges doc would be split into.
func (p *Processor) Plan(doc *document.Document) []types.PageRange {
	return p.chunker.Plan(doc)
}

// ProcessFile loads a PDF from disk and processes it.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, doc)
}

// Process runs one extraction job for doc. Only a *document.ChunkingError or
// cancellation is returned as an error; every other failure is reported in
// the result.
func (p *Processor) Process(ctx context.Context, doc *document.Document) (*Result, error) {
	s := NewSession(doc, p.db, p.logger)
	logger := s.logger.With("document", doc.Name)
	rec := s.Recorder()
	rec.Start(doc.Name, doc.Hash, doc.PageCount)

	chunks, err := p.chunker.Split(doc)
	if err != nil {
		logger.Error("failed to split document", "error", err)
		return nil, err
	}

	logger.Info("starting extraction",
		"hash", doc.Hash,
		"pages", doc.PageCount,
		"chunks", len(chunks))

	var stats ImageStats
	var images chunkproc.PageImages
	batch, err := p.images.Generate(ctx, doc)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		logger.Error("image generation failed", "error", err)
		s.addError(fmt.Sprintf("image generation failed: %v", err))
	default:
		images = batch
		stats = ImageStats{
			Attempted:  batch.Attempted,
			Succeeded:  batch.Succeeded,
			Failed:     batch.Failed,
			CacheHits:  batch.CacheHits,
			DurationMs: batch.DurationMs,
		}
		s.addWarnings(batch.Warnings()...)
	}

	actx := analyzer.WithCallObserver(ctx, rec.Observe)
	var eg errgroup.Group
	eg.SetLimit(p.concurrency)
	for _, chunk := range chunks {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			s.complete(p.chunks.Process(actx, chunk, images, doc.Name))
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, summary := s.aggregator.Finalize()
	rec.Finish()
	if err := rec.Flush(ctx); err != nil {
		logger.Warn("failed to persist diagnostics", "error", err)
		s.addWarnings(fmt.Sprintf("diagnostics not persisted: %v", err))
	}

	errs, warns := s.messages()
	res := &Result{
		JobID:       s.JobID,
		Source:      doc.Name,
		ContentHash: doc.Hash,
		PageCount:   doc.PageCount,
		Record:      record,
		Errors:      errs,
		Warnings:    warns,
		Chunks:      s.chunkResults(),
		Images:      stats,
		Summary:     summary,
		Diagnostics: rec.Summary(),
		DurationMs:  time.Since(s.StartedAt).Milliseconds(),
	}

	logger.Info("extraction finished",
		"units", len(record.Units),
		"payment_plans", len(record.PaymentPlans),
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"duration_ms", res.DurationMs)
	return res, nil
}

// IsFatal reports whether err aborted a job before any chunk ran.
func IsFatal(err error) bool {
	var ce *document.ChunkingError
	return errors.As(err, &ce)
}
