// Package chunkproc analyzes the pages of one chunk concurrently using page
// images produced ahead of time.
package chunkproc

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/types"
)

// PageImages resolves the pre-generated variant URLs of a page.
type PageImages interface {
	URLs(page int) (types.VariantSet, bool)
}

// Result is the outcome of one chunk. A failed chunk has Success=false and at
// least one entry in Errors; it never aborts sibling chunks.
type Result struct {
	Success          bool                  `json:"success"`
	ChunkIndex       int                   `json:"chunk_index"`
	Pages            []*types.PageMetadata `json:"-"`
	Errors           []string              `json:"errors,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
	PageRange        types.PageRange       `json:"page_range"`
	PagesAnalyzed    int                   `json:"pages_analyzed"`
}

// Processor runs page analysis for chunks.
type Processor struct {
	analyzer analyzer.PageAnalyzer
	logger   *slog.Logger
}

// New creates a chunk processor.
func New(a analyzer.PageAnalyzer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{analyzer: a, logger: logger}
}

// Process analyzes every page of chunk that has images. Pages without images
// are skipped with a warning; pages whose analysis fails are dropped with a
// warning. All page analyses run concurrently and are joined before return.
func (p *Processor) Process(ctx context.Context, chunk types.Chunk, images PageImages, sourceID string) (res *Result) {
	start := time.Now()
	res = &Result{ChunkIndex: chunk.Index, PageRange: chunk.Range}
	logger := p.logger.With("chunk", chunk.Index, "pages", chunk.Range.String())

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Pages = nil
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: panic during processing: %v", chunk.Index, r))
		}
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
	}()

	if images == nil {
		res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: no image batch available", chunk.Index))
		return res
	}

	type job struct {
		page int
		urls types.VariantSet
	}
	var jobs []job
	for _, page := range chunk.Range.Pages() {
		urls, ok := images.URLs(page)
		if !ok || !urls.Complete() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: no image URLs, skipped", page))
			continue
		}
		jobs = append(jobs, job{page: page, urls: urls})
	}
	if len(jobs) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: no pages with images in range %s", chunk.Index, chunk.Range))
		return res
	}

	var mu sync.Mutex
	pages := make([]*types.PageMetadata, len(jobs))
	var eg errgroup.Group
	for i, j := range jobs {
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: analyzer panic: %v", j.page, r))
					mu.Unlock()
				}
			}()
			meta, err := p.analyzer.Analyze(ctx, analyzer.PageRequest{
				ImageURL:   j.urls.Large,
				PageNumber: j.page,
				SourceID:   sourceID,
			})
			if err != nil {
				logger.Warn("page analysis failed", "page", j.page, "error", err)
				mu.Lock()
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", j.page, err))
				mu.Unlock()
				return nil
			}
			if meta == nil {
				return nil
			}
			m := *meta
			m.PageNumber = j.page
			m.Images = j.urls
			pages[i] = &m
			return nil
		})
	}
	_ = eg.Wait()

	for _, m := range pages {
		if m != nil {
			res.Pages = append(res.Pages, m)
		}
	}
	sort.Slice(res.Pages, func(a, b int) bool { return res.Pages[a].PageNumber < res.Pages[b].PageNumber })
	sort.Strings(res.Warnings)
	res.PagesAnalyzed = len(res.Pages)

	if err := ctx.Err(); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: %v", chunk.Index, err))
		return res
	}
	if len(res.Pages) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: all %d pages failed analysis", chunk.Index, len(jobs)))
		return res
	}

	res.Success = true
	logger.Info("chunk processed",
		"analyzed", len(res.Pages),
		"skipped", len(chunk.Range.Pages())-len(jobs),
		"failed", len(jobs)-len(res.Pages),
		"duration_ms", time.Since(start).Milliseconds())
	return res
}
