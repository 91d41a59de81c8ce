// Package inbox watches a directory for new PDFs and hands each one to a
// handler once it has stopped changing.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must go without writes before it is handled.
const DefaultSettle = time.Second

// ResultSuffix is appended to a PDF's base name to form its result file.
const ResultSuffix = ".result.json"

// Handler processes one settled PDF.
type Handler func(ctx context.Context, path string) error

// Config configures a Watcher.
type Config struct {
	Dir     string
	Handler Handler
	Settle  time.Duration
	Logger  *slog.Logger
}

// Watcher feeds PDFs dropped into Dir to Handler, one at a time.
type Watcher struct {
	dir     string
	handler Handler
	settle  time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// New creates a watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat inbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cfg.Dir)
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		dir:     cfg.Dir,
		handler: cfg.Handler,
		settle:  cfg.Settle,
		logger:  cfg.Logger.With("inbox", cfg.Dir),
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
	}, nil
}

// ResultPath returns the result file written next to pdfPath.
func ResultPath(pdfPath string) string {
	base := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	return base + ResultSuffix
}

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Processed reports whether pdfPath has a result file at least as new as itself.
func Processed(pdfPath string) bool {
	pdf, err := os.Stat(pdfPath)
	if err != nil {
		return false
	}
	res, err := os.Stat(ResultPath(pdfPath))
	if err != nil {
		return false
	}
	return !res.ModTime().Before(pdf.ModTime())
}

// Backlog returns PDFs already in the directory that have no current result file.
func (w *Watcher) Backlog() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if Processed(path) {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// Run handles the backlog, then watches for new files until ctx is done.
// A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	backlog, err := w.Backlog()
	if err != nil {
		return err
	}
	for _, path := range backlog {
		w.schedule(path)
	}

	w.logger.Info("watching for brochures", "backlog", len(backlog))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsPDF(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.schedule(ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case path := <-w.ready:
			w.handle(ctx, path)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if Processed(path) {
		w.logger.Debug("brochure already processed", "file", filepath.Base(path))
		return
	}
	start := time.Now()
	w.logger.Info("processing brochure", "file", filepath.Base(path))
	if err := w.handler(ctx, path); err != nil {
		w.logger.Error("brochure failed", "file", filepath.Base(path), "error", err)
		return
	}
	w.logger.Info("brochure done",
		"file", filepath.Base(path),
		"duration_ms", time.Since(start).Milliseconds())
}
