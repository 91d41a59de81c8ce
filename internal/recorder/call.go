// Package recorder collects per-job diagnostics: one record per analyzer
// model call, one per processed chunk, and a job summary.
package recorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/chunkproc"
)

// Call is a single analyzer model call.
type Call struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`

	PageNumber int    `json:"page_number"`
	SourceID   string `json:"source_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`

	QueueMs   int64 `json:"queue_ms"`
	LatencyMs int64 `json:"latency_ms"`
	Attempts  int   `json:"attempts"`

	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FromAnalyzerCall builds a Call record. A call without a chat result (the
// client failed before producing one) is recorded as a failure.
func FromAnalyzerCall(jobID string, c analyzer.Call) Call {
	call := Call{
		ID:         uuid.New().String(),
		JobID:      jobID,
		Timestamp:  time.Now(),
		PageNumber: c.PageNumber,
		SourceID:   c.SourceID,
	}

	if r := c.Result; r != nil {
		call.RequestID = r.RequestID
		call.Provider = r.Provider
		call.Model = r.ModelUsed
		call.InputTokens = r.PromptTokens
		call.OutputTokens = r.CompletionTokens
		call.TotalTokens = r.TotalTokens
		if call.TotalTokens == 0 {
			call.TotalTokens = r.PromptTokens + r.CompletionTokens
		}
		call.CostUSD = r.CostUSD
		call.QueueMs = r.QueueTime.Milliseconds()
		call.LatencyMs = r.TotalTime.Milliseconds()
		call.Attempts = r.Attempts
		call.Success = r.Success
		call.ErrorType = r.ErrorType
		call.Error = r.ErrorMessage
	}

	if c.Err != nil {
		call.Success = false
		call.Error = c.Err.Error()
		if call.ErrorType == "" {
			call.ErrorType = "error"
		}
	}
	return call
}

// Chunk is the diagnostic record of one processed chunk.
type Chunk struct {
	ID               string   `json:"id"`
	JobID            string   `json:"job_id"`
	Index            int      `json:"index"`
	PageRange        string   `json:"page_range"`
	Success          bool     `json:"success"`
	PagesAnalyzed    int      `json:"pages_analyzed"`
	Errors           []string `json:"errors,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

// FromChunkResult builds a Chunk record.
func FromChunkResult(jobID string, res *chunkproc.Result) Chunk {
	return Chunk{
		ID:               fmt.Sprintf("%s/chunk_%03d", jobID, res.ChunkIndex),
		JobID:            jobID,
		Index:            res.ChunkIndex,
		PageRange:        res.PageRange.String(),
		Success:          res.Success,
		PagesAnalyzed:    res.PagesAnalyzed,
		Errors:           append([]string(nil), res.Errors...),
		Warnings:         append([]string(nil), res.Warnings...),
		ProcessingTimeMs: res.ProcessingTimeMs,
	}
}

// Summary aggregates a job's diagnostics.
type Summary struct {
	JobID       string    `json:"job_id"`
	SourceID    string    `json:"source_id,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`

	Pages         int `json:"pages"`
	PagesAnalyzed int `json:"pages_analyzed"`

	Chunks          int `json:"chunks"`
	ChunksSucceeded int `json:"chunks_succeeded"`

	Calls        int     `json:"calls"`
	CallsFailed  int     `json:"calls_failed"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Duration returns the elapsed job time, or zero for an unfinished job.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
