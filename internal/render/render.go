// Package render rasterizes PDF pages and derives the fixed resolution variants.
package render

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the rasterization resolution for page images.
const DefaultDPI = 150.0

// Source rasterizes the pages of one open document.
type Source interface {
	// NumPage returns the page count.
	NumPage() int
	// Render rasterizes a 1-indexed page at the given DPI.
	Render(page int, dpi float64) (image.Image, error)
	Close() error
}

// Opener opens a rasterization source from raw document bytes.
type Opener func(content []byte) (Source, error)

// fitzSource renders pages with MuPDF via go-fitz.
type fitzSource struct {
	doc *fitz.Document
}

// OpenFitz opens a PDF held in memory for rasterization.
func OpenFitz(content []byte) (Source, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzSource{doc: doc}, nil
}

func (s *fitzSource) NumPage() int {
	return s.doc.NumPage()
}

func (s *fitzSource) Render(page int, dpi float64) (image.Image, error) {
	if page < 1 || page > s.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, s.doc.NumPage())
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	// go-fitz pages are 0-indexed.
	img, err := s.doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return img, nil
}

func (s *fitzSource) Close() error {
	return s.doc.Close()
}
