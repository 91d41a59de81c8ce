package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/chunkproc"
	"github.com/jackzampolin/brochure/internal/providers"
	"github.com/jackzampolin/brochure/internal/storage"
	"github.com/jackzampolin/brochure/internal/types"
)

const coverPage = `{
  "category": "cover", "classification": "cover", "confidence": 0.9,
  "project": {"name": "Marina Heights", "developer": null, "address": null, "area": null,
              "launch_date": null, "completion_date": null, "description": null},
  "units": [], "payment_plan": null, "amenities": [], "floor_plan_count": 0, "content": ""
}`

func chatResult(cost float64) *providers.ChatResult {
	return &providers.ChatResult{
		Provider:         "mock",
		ModelUsed:        "vision-1",
		PromptTokens:     100,
		CompletionTokens: 20,
		CostUSD:          cost,
		TotalTime:        1500 * time.Millisecond,
		Attempts:         1,
		Success:          true,
	}
}

func TestFromAnalyzerCall(t *testing.T) {
	tests := []struct {
		name        string
		call        analyzer.Call
		wantSuccess bool
		wantTokens  int
		wantError   string
	}{
		{
			name:        "successful call",
			call:        analyzer.Call{PageNumber: 3, SourceID: "doc", Result: chatResult(0.01)},
			wantSuccess: true,
			wantTokens:  120,
		},
		{
			name:      "error without result",
			call:      analyzer.Call{PageNumber: 4, Err: errors.New("timeout")},
			wantError: "timeout",
		},
		{
			name:       "error overrides successful result",
			call:       analyzer.Call{PageNumber: 5, Result: chatResult(0.01), Err: errors.New("schema mismatch")},
			wantTokens: 120,
			wantError:  "schema mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := FromAnalyzerCall("job-1", tt.call)
			assert.NotEmpty(t, call.ID)
			assert.Equal(t, "job-1", call.JobID)
			assert.Equal(t, tt.call.PageNumber, call.PageNumber)
			assert.Equal(t, tt.wantSuccess, call.Success)
			assert.Equal(t, tt.wantTokens, call.TotalTokens)
			assert.Equal(t, tt.wantError, call.Error)
			if !tt.wantSuccess {
				assert.NotEmpty(t, call.ErrorType)
			}
		})
	}
}

func TestRecorderSummary(t *testing.T) {
	rec := New("job-1", nil, nil)
	rec.Start("brochure.pdf", "hash", 10)

	var wg sync.WaitGroup
	for page := 1; page <= 10; page++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := analyzer.Call{PageNumber: page, Result: chatResult(0.5)}
			if page == 7 {
				c = analyzer.Call{PageNumber: page, Err: errors.New("boom")}
			}
			rec.Observe(c)
		}()
	}
	wg.Wait()

	rec.RecordChunk(&chunkproc.Result{ChunkIndex: 1, Success: true, PagesAnalyzed: 5, PageRange: types.PageRange{Start: 1, End: 5}})
	rec.RecordChunk(&chunkproc.Result{ChunkIndex: 0, Success: false, Errors: []string{"chunk 0 failed"}, PageRange: types.PageRange{Start: 6, End: 10}})
	rec.RecordChunk(nil)
	rec.Finish()

	s := rec.Summary()
	assert.Equal(t, "brochure.pdf", s.SourceID)
	assert.Equal(t, 10, s.Pages)
	assert.Equal(t, 10, s.Calls)
	assert.Equal(t, 1, s.CallsFailed)
	assert.InDelta(t, 4.5, s.CostUSD, 1e-9)
	assert.Equal(t, 900, s.InputTokens)
	assert.Equal(t, 2, s.Chunks)
	assert.Equal(t, 1, s.ChunksSucceeded)
	assert.Equal(t, 5, s.PagesAnalyzed)
	assert.False(t, s.FinishedAt.IsZero())

	calls := rec.Calls()
	require.Len(t, calls, 10)
	for i, c := range calls {
		assert.Equal(t, i+1, c.PageNumber)
	}

	chunks := rec.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "6-10", chunks[0].PageRange)
}

func TestRecorderObserverContext(t *testing.T) {
	rec := New("job-ctx", nil, nil)
	ctx := analyzer.WithCallObserver(context.Background(), rec.Observe)

	client := providers.NewMockClient()
	client.ResponseText = coverPage
	a, err := analyzer.NewLLMAnalyzer(analyzer.Config{Client: client, Model: "vision-1"})
	require.NoError(t, err)

	_, err = a.Analyze(ctx, analyzer.PageRequest{ImageURL: "https://img/1.jpg", PageNumber: 1})
	require.NoError(t, err)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].PageNumber)
	assert.True(t, calls[0].Success)
}

func TestRecorderFlush(t *testing.T) {
	db, err := storage.OpenDB(t.TempDir(), nil)
	require.NoError(t, err)
	defer db.Close()

	rec := New("job-db", db, nil)
	rec.Start("a.pdf", "h", 5)
	for page := 1; page <= 3; page++ {
		rec.Observe(analyzer.Call{PageNumber: page, Result: chatResult(0.25)})
	}
	rec.RecordChunk(&chunkproc.Result{ChunkIndex: 0, Success: true, PagesAnalyzed: 3, PageRange: types.PageRange{Start: 1, End: 5}})
	rec.Finish()

	ctx := context.Background()
	require.NoError(t, rec.Flush(ctx))
	require.NoError(t, rec.Flush(ctx), "flush is repeatable")

	s, err := LoadSummary(db, "job-db")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Calls)
	assert.InDelta(t, 0.75, s.CostUSD, 1e-9)

	calls, err := LoadCalls(db, "job-db")
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, 1, calls[0].PageNumber)

	chunks, err := LoadChunks(db, "job-db")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, fmt.Sprintf("%s/chunk_%03d", "job-db", 0), chunks[0].ID)

	_, err = LoadSummary(db, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRecorderFlushWithoutDB(t *testing.T) {
	rec := New("job", nil, nil)
	assert.NoError(t, rec.Flush(context.Background()))
}
