package document

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/brochure/internal/types"
)

const (
	// DefaultPagesPerChunk is the page count of each chunk.
	DefaultPagesPerChunk = 5

	// DefaultChunkThreshold is the page count at or below which a document is one chunk.
	DefaultChunkThreshold = 10
)

// Chunker splits documents into ordered, non-overlapping page-range chunks.
type Chunker struct {
	PagesPerChunk int
	Threshold     int
	Logger        *slog.Logger
}

// NewChunker creates a chunker, substituting defaults for non-positive values.
func NewChunker(pagesPerChunk, threshold int, logger *slog.Logger) *Chunker {
	if pagesPerChunk <= 0 {
		pagesPerChunk = DefaultPagesPerChunk
	}
	if threshold < 0 {
		threshold = DefaultChunkThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{PagesPerChunk: pagesPerChunk, Threshold: threshold, Logger: logger}
}

// Plan returns the page ranges for a document of totalPages pages.
// Ranges are ascending, contiguous, and their union is exactly [1, totalPages].
func Plan(totalPages, pagesPerChunk, threshold int) []types.PageRange {
	if totalPages <= 0 {
		return nil
	}
	if pagesPerChunk <= 0 {
		pagesPerChunk = DefaultPagesPerChunk
	}
	if totalPages <= threshold {
		return []types.PageRange{{Start: 1, End: totalPages}}
	}

	ranges := make([]types.PageRange, 0, (totalPages+pagesPerChunk-1)/pagesPerChunk)
	for start := 1; start <= totalPages; start += pagesPerChunk {
		end := start + pagesPerChunk - 1
		if end > totalPages {
			end = totalPages
		}
		ranges = append(ranges, types.PageRange{Start: start, End: end})
	}
	return ranges
}

// Plan returns the page ranges this chunker would produce for doc.
func (c *Chunker) Plan(doc *Document) []types.PageRange {
	return Plan(doc.PageCount, c.PagesPerChunk, c.Threshold)
}

// Split produces one standalone sub-document per planned range.
// Each chunk's Content is a fresh PDF containing copies of exactly its pages.
func (c *Chunker) Split(doc *Document) ([]types.Chunk, error) {
	ranges := c.Plan(doc)
	chunks := make([]types.Chunk, 0, len(ranges))

	for i, r := range ranges {
		var content []byte
		if len(ranges) == 1 {
			// A single chunk covers the whole document; copy rather than alias.
			content = append([]byte(nil), doc.Content...)
		} else {
			var err error
			content, err = extractRange(doc.Content, r)
			if err != nil {
				return nil, &ChunkingError{Source: doc.Name, Err: fmt.Errorf("chunk %d (pages %s): %w", i, r, err)}
			}
		}

		chunks = append(chunks, types.Chunk{
			Index:       i,
			TotalChunks: len(ranges),
			Content:     content,
			Range:       r,
			SizeBytes:   len(content),
		})
		c.Logger.Debug("created chunk", "chunk", i, "pages", r.String(), "bytes", len(content))
	}

	c.Logger.Info("split document", "document", doc.Name, "pages", doc.PageCount, "chunks", len(chunks))
	return chunks, nil
}

// extractRange writes a new PDF holding only the pages in r.
func extractRange(content []byte, r types.PageRange) ([]byte, error) {
	var out bytes.Buffer
	selection := []string{fmt.Sprintf("%d-%d", r.Start, r.End)}
	if err := api.Trim(bytes.NewReader(content), &out, selection, nil); err != nil {
		return nil, fmt.Errorf("failed to extract pages: %w", err)
	}
	return out.Bytes(), nil
}
