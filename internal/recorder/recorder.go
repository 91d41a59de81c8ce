package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/chunkproc"
	"github.com/jackzampolin/brochure/internal/storage"
)

// ErrJobNotFound is returned when no summary exists for a job ID.
var ErrJobNotFound = errors.New("job not found")

// Recorder accumulates the diagnostics of one job. It is safe for
// concurrent use. When a database is configured, Flush persists everything
// recorded so far under the job ID.
type Recorder struct {
	mu      sync.Mutex
	summary Summary
	calls   []Call
	chunks  []Chunk

	db     *storage.DB
	logger *slog.Logger
}

// New creates a recorder for jobID. db may be nil.
func New(jobID string, db *storage.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		summary: Summary{JobID: jobID, StartedAt: time.Now()},
		db:      db,
		logger:  logger.With("job_id", jobID),
	}
}

// JobID returns the job this recorder belongs to.
func (r *Recorder) JobID() string {
	return r.summary.JobID
}

// Start records the document under processing.
func (r *Recorder) Start(sourceID, contentHash string, pages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.SourceID = sourceID
	r.summary.ContentHash = contentHash
	r.summary.Pages = pages
}

// Observe records an analyzer call. Pass it to analyzer.WithCallObserver.
func (r *Recorder) Observe(c analyzer.Call) {
	call := FromAnalyzerCall(r.summary.JobID, c)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	r.summary.Calls++
	if !call.Success {
		r.summary.CallsFailed++
	}
	r.summary.InputTokens += call.InputTokens
	r.summary.OutputTokens += call.OutputTokens
	r.summary.CostUSD += call.CostUSD
}

// RecordChunk records the outcome of one chunk.
func (r *Recorder) RecordChunk(res *chunkproc.Result) {
	if res == nil {
		return
	}
	chunk := FromChunkResult(r.summary.JobID, res)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
	r.summary.Chunks++
	if chunk.Success {
		r.summary.ChunksSucceeded++
	}
	r.summary.PagesAnalyzed += chunk.PagesAnalyzed
}

// Finish marks the job finished.
func (r *Recorder) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FinishedAt = time.Now()
}

// Summary returns a snapshot of the job summary.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Calls returns the recorded calls ordered by page.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	out := append([]Call(nil), r.calls...)
	r.mu.Unlock()
	sortCalls(out)
	return out
}

// Chunks returns the recorded chunks ordered by index.
func (r *Recorder) Chunks() []Chunk {
	r.mu.Lock()
	out := append([]Chunk(nil), r.chunks...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Flush persists the summary, calls, and chunks. It is a no-op without a
// database. Records are upserted so repeated flushes are safe.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	summary := r.Summary()
	calls := r.Calls()
	chunks := r.Chunks()
	store := r.db.Store()

	for i := range calls {
		if err := store.Upsert(calls[i].ID, &calls[i]); err != nil {
			return fmt.Errorf("failed to persist call %s: %w", calls[i].ID, err)
		}
	}
	for i := range chunks {
		if err := store.Upsert(chunks[i].ID, &chunks[i]); err != nil {
			return fmt.Errorf("failed to persist chunk %s: %w", chunks[i].ID, err)
		}
	}
	if err := store.Upsert(summary.JobID, &summary); err != nil {
		return fmt.Errorf("failed to persist job summary: %w", err)
	}

	r.logger.Debug("diagnostics flushed",
		"calls", len(calls),
		"chunks", len(chunks),
		"cost_usd", summary.CostUSD)
	return nil
}

// LoadSummary reads a persisted job summary.
func LoadSummary(db *storage.DB, jobID string) (Summary, error) {
	var s Summary
	if err := db.Store().Get(jobID, &s); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return Summary{}, ErrJobNotFound
		}
		return Summary{}, fmt.Errorf("failed to read job summary: %w", err)
	}
	return s, nil
}

// LoadCalls reads the persisted calls of a job ordered by page.
func LoadCalls(db *storage.DB, jobID string) ([]Call, error) {
	var calls []Call
	if err := db.Store().Find(&calls, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to read job calls: %w", err)
	}
	sortCalls(calls)
	return calls, nil
}

// LoadChunks reads the persisted chunk records of a job ordered by index.
func LoadChunks(db *storage.DB, jobID string) ([]Chunk, error) {
	var chunks []Chunk
	if err := db.Store().Find(&chunks, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to read job chunks: %w", err)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

func sortCalls(calls []Call) {
	sort.SliceStable(calls, func(i, j int) bool {
		if calls[i].PageNumber != calls[j].PageNumber {
			return calls[i].PageNumber < calls[j].PageNumber
		}
		return calls[i].Timestamp.Before(calls[j].Timestamp)
	})
}
