// Package document loads brochure PDFs, derives their content hash, and splits
// them into page-range chunks.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ChunkingError reports that the source document could not be parsed or split.
// It is fatal for the whole job.
type ChunkingError struct {
	Source string
	Err    error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking %s: %v", e.Source, e.Err)
}

func (e *ChunkingError) Unwrap() error {
	return e.Err
}

// Document is a parsed source PDF.
type Document struct {
	Name      string
	Content   []byte
	Hash      string
	PageCount int
}

// ContentHash returns the hex SHA-256 digest of raw document bytes.
// Identical bytes always yield the identical hash, independent of path or name.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Load reads a PDF from disk.
func Load(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return FromBytes(deriveName(path), content)
}

// FromBytes parses an in-memory PDF and counts its pages.
func FromBytes(name string, content []byte) (*Document, error) {
	if len(content) == 0 {
		return nil, &ChunkingError{Source: name, Err: fmt.Errorf("empty document")}
	}

	pageCount, err := api.PageCount(bytes.NewReader(content), nil)
	if err != nil {
		return nil, &ChunkingError{Source: name, Err: fmt.Errorf("failed to get page count: %w", err)}
	}
	if pageCount == 0 {
		return nil, &ChunkingError{Source: name, Err: fmt.Errorf("document has no pages")}
	}

	return &Document{
		Name:      name,
		Content:   content,
		Hash:      ContentHash(content),
		PageCount: pageCount,
	}, nil
}

// deriveName extracts a display name from a PDF filename.
// e.g., "/tmp/marina-heights.pdf" -> "marina-heights"
func deriveName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
