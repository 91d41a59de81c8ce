package types

import "fmt"

// PageRange is an inclusive, 1-indexed page range.
type PageRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether page falls inside the range.
func (r PageRange) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// Pages returns every page number in the range in ascending order.
func (r PageRange) Pages() []int {
	pages := make([]int, 0, r.Len())
	for p := r.Start; p <= r.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Chunk is a contiguous page-range slice of a source document.
// Content holds a standalone PDF with deep copies of exactly the pages in Range.
type Chunk struct {
	Index       int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Content     []byte    `json:"-"`
	Range       PageRange `json:"page_range"`
	SizeBytes   int       `json:"size_bytes"`
}
