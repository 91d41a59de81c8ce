// Package imagebatch renders every page of a document once and uploads the
// four resolution variants of each page before any chunk is analyzed.
package imagebatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/brochure/internal/document"
	"github.com/jackzampolin/brochure/internal/render"
	"github.com/jackzampolin/brochure/internal/storage"
	"github.com/jackzampolin/brochure/internal/types"
)

const (
	// DefaultConcurrency is the number of pages uploaded per batch.
	DefaultConcurrency = 10
	// DefaultAttempts is the number of upload attempts per page.
	DefaultAttempts = 3
	// DefaultRetryDelay is the fixed delay between upload attempts.
	DefaultRetryDelay = 2 * time.Second
)

// Cache is implemented by stores that can answer for an earlier upload
// without re-rendering the page.
type Cache interface {
	Lookup(ctx context.Context, key storage.CacheKey) (types.VariantSet, error)
}

// Config configures a Generator.
type Config struct {
	Store       storage.ImageStore
	Opener      render.Opener
	DPI         float64
	Spec        render.VariantSpec
	Concurrency int
	Attempts    uint
	RetryDelay  time.Duration
	// StagingDir is the parent of the per-run staging directory. Empty uses os.TempDir.
	StagingDir string
	Logger     *slog.Logger
}

// Generator produces the page → VariantSet map for a document.
type Generator struct {
	store       storage.ImageStore
	opener      render.Opener
	dpi         float64
	spec        render.VariantSpec
	concurrency int
	attempts    uint
	retryDelay  time.Duration
	stagingDir  string
	logger      *slog.Logger
}

// NewGenerator creates a generator, filling defaults for unset values.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("image store is required")
	}
	if cfg.Opener == nil {
		cfg.Opener = render.OpenFitz
	}
	if cfg.DPI <= 0 {
		cfg.DPI = render.DefaultDPI
	}
	if cfg.Spec == (render.VariantSpec{}) {
		cfg.Spec = render.DefaultVariantSpec()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Generator{
		store:       cfg.Store,
		opener:      cfg.Opener,
		dpi:         cfg.DPI,
		spec:        cfg.Spec,
		concurrency: cfg.Concurrency,
		attempts:    cfg.Attempts,
		retryDelay:  cfg.RetryDelay,
		stagingDir:  cfg.StagingDir,
		logger:      cfg.Logger,
	}, nil
}

// PageFailure records a page whose variants could not be produced.
type PageFailure struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

// Result is the outcome of one batch run.
// Pages holds only complete variant sets; failed pages are absent.
type Result struct {
	ContentHash string                   `json:"content_hash"`
	Pages       map[int]types.VariantSet `json:"pages"`
	Attempted   int                      `json:"attempted"`
	Succeeded   int                      `json:"succeeded"`
	Failed      []PageFailure            `json:"failed,omitempty"`
	CacheHits   int                      `json:"cache_hits"`
	DurationMs  int64                    `json:"duration_ms"`
}

// URLs returns the variant set for page, if one was produced.
func (r *Result) URLs(page int) (types.VariantSet, bool) {
	if r == nil {
		return types.VariantSet{}, false
	}
	set, ok := r.Pages[page]
	return set, ok
}

// Warnings renders page failures as warning strings.
func (r *Result) Warnings() []string {
	var out []string
	for _, f := range r.Failed {
		out = append(out, fmt.Sprintf("page %d: image generation failed: %s", f.Page, f.Error))
	}
	return out
}

// run holds the mutable state of one Generate call.
type run struct {
	hash    string
	source  render.Source
	staging string

	renderMu sync.Mutex

	mu     sync.Mutex
	result *Result
}

// Generate renders and uploads every page of doc. A page failure is recorded
// and does not stop the batch; only cancellation or an unreadable document
// returns an error.
func (g *Generator) Generate(ctx context.Context, doc *document.Document) (*Result, error) {
	start := time.Now()

	source, err := g.opener(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to open document for rendering: %w", err)
	}
	defer source.Close()

	staging, err := os.MkdirTemp(g.stagingDir, "brochure-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	r := &run{
		hash:    doc.Hash,
		source:  source,
		staging: staging,
		result: &Result{
			ContentHash: doc.Hash,
			Pages:       make(map[int]types.VariantSet),
		},
	}

	total := source.NumPage()
	g.logger.Info("generating page images",
		"document", doc.Name,
		"hash", doc.Hash,
		"pages", total,
		"concurrency", g.concurrency)

	for batchStart := 1; batchStart <= total; batchStart += g.concurrency {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchEnd := min(batchStart+g.concurrency-1, total)

		eg, egCtx := errgroup.WithContext(ctx)
		for page := batchStart; page <= batchEnd; page++ {
			eg.Go(func() error {
				return g.processPage(egCtx, r, page)
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	res := r.result
	res.Attempted = total
	res.Succeeded = len(res.Pages)
	res.DurationMs = time.Since(start).Milliseconds()
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Page < res.Failed[j].Page })

	g.logger.Info("page images ready",
		"hash", doc.Hash,
		"succeeded", res.Succeeded,
		"failed", len(res.Failed),
		"cache_hits", res.CacheHits,
		"duration_ms", res.DurationMs)

	return res, nil
}

// processPage returns an error only for cancellation.
func (g *Generator) processPage(ctx context.Context, r *run, page int) error {
	key := storage.CacheKey{Hash: r.hash, Page: page}

	if cache, ok := g.store.(Cache); ok {
		set, err := cache.Lookup(ctx, key)
		if err == nil && set.Complete() {
			r.mu.Lock()
			r.result.Pages[page] = set
			r.result.CacheHits++
			r.mu.Unlock()
			return nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			g.logger.Warn("cache lookup failed", "page", page, "error", err)
		}
	}

	set, err := g.renderAndUpload(ctx, r, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		g.logger.Warn("page image generation failed", "page", page, "error", err)
		r.mu.Lock()
		r.result.Failed = append(r.result.Failed, PageFailure{Page: page, Error: err.Error()})
		r.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	r.result.Pages[page] = set
	r.mu.Unlock()
	return nil
}

func (g *Generator) renderAndUpload(ctx context.Context, r *run, key storage.CacheKey) (types.VariantSet, error) {
	paths, err := g.stage(r, key)
	if err != nil {
		return types.VariantSet{}, err
	}

	var set types.VariantSet
	err = retry.Do(
		func() error {
			objects, err := loadStaged(paths)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			set, err = g.store.UploadWithVariants(ctx, key, objects)
			if err != nil {
				return err
			}
			if !set.Complete() {
				return fmt.Errorf("store returned incomplete variant set")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Debug("retrying page upload", "page", key.Page, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return types.VariantSet{}, fmt.Errorf("upload failed after %d attempts: %w", g.attempts, err)
	}
	return set, nil
}

// stagedFile is one encoded variant written to the staging directory.
type stagedFile struct {
	variant     types.Variant
	path        string
	contentType string
}

// stage renders the page and writes its encoded variants to the staging directory.
func (g *Generator) stage(r *run, key storage.CacheKey) ([]stagedFile, error) {
	r.renderMu.Lock()
	img, err := r.source.Render(key.Page, g.dpi)
	r.renderMu.Unlock()
	if err != nil {
		return nil, err
	}

	encoded, err := render.Variants(img, g.spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", key.Page, err)
	}

	files := make([]stagedFile, 0, len(types.AllVariants))
	for _, v := range types.AllVariants {
		enc, ok := encoded[v]
		if !ok {
			return nil, fmt.Errorf("variant %s missing for page %d", v, key.Page)
		}
		path := filepath.Join(r.staging, fmt.Sprintf("page_%04d_%s.jpg", key.Page, v))
		if err := os.WriteFile(path, enc.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to stage page %d: %w", key.Page, err)
		}
		files = append(files, stagedFile{variant: v, path: path, contentType: enc.ContentType})
	}
	return files, nil
}

func loadStaged(files []stagedFile) ([]storage.Object, error) {
	objects := make([]storage.Object, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read staged %s: %w", f.variant, err)
		}
		objects = append(objects, storage.Object{Variant: f.variant, Data: data, ContentType: f.contentType})
	}
	return objects, nil
}
