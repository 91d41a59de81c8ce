package pipeline

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/brochure/internal/aggregate"
	"github.com/jackzampolin/brochure/internal/chunkproc"
	"github.com/jackzampolin/brochure/internal/classify"
	"github.com/jackzampolin/brochure/internal/document"
	"github.com/jackzampolin/brochure/internal/recorder"
	"github.com/jackzampolin/brochure/internal/storage"
)

// Session holds the state of one extraction job. Nothing about a job lives
// outside its Session, so any number of jobs may run side by side.
type Session struct {
	JobID     string
	Document  *document.Document
	StartedAt time.Time

	aggregator *aggregate.Aggregator
	recorder   *recorder.Recorder
	logger     *slog.Logger

	mu       sync.Mutex
	errors   []string
	warnings []string
	chunks   []*chunkproc.Result
}

// NewSession creates a session for doc with a fresh job ID.
func NewSession(doc *document.Document, db *storage.DB, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	jobID := uuid.New().String()
	logger = logger.With("job_id", jobID)
	return &Session{
		JobID:      jobID,
		Document:   doc,
		StartedAt:  time.Now(),
		aggregator: aggregate.New(logger),
		recorder:   recorder.New(jobID, db, logger),
		logger:     logger,
	}
}

// Recorder returns the session's diagnostics recorder.
func (s *Session) Recorder() *recorder.Recorder {
	return s.recorder
}

func (s *Session) addError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *Session) addWarnings(msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msgs...)
}

// complete records a chunk outcome and, for successful chunks, merges its
// data into the running record.
func (s *Session) complete(res *chunkproc.Result) {
	s.recorder.RecordChunk(res)

	s.mu.Lock()
	s.chunks = append(s.chunks, res)
	s.mu.Unlock()

	if res.Success {
		s.aggregator.Merge(classify.BuildChunkData(res.ChunkIndex, res.Pages))
	}
}

// chunkResults returns the chunk outcomes ordered by chunk index.
func (s *Session) chunkResults() []*chunkproc.Result {
	s.mu.Lock()
	out := append([]*chunkproc.Result(nil), s.chunks...)
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

// messages returns job-level messages followed by chunk messages in chunk order.
func (s *Session) messages() (errs, warns []string) {
	s.mu.Lock()
	errs = append([]string{}, s.errors...)
	warns = append([]string{}, s.warnings...)
	s.mu.Unlock()

	for _, res := range s.chunkResults() {
		errs = append(errs, res.Errors...)
		warns = append(warns, res.Warnings...)
	}
	return errs, warns
}
