// Package storage provides the content-addressed image store used for page
// variants, and the cache index that makes uploads idempotent per page.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/brochure/internal/types"
)

// ErrNotFound is returned when a cache key has no entry.
var ErrNotFound = errors.New("not found")

// CacheKey identifies one page of one document. It is unique per (hash, page).
type CacheKey struct {
	Hash string
	Page int
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s/%04d", k.Hash, k.Page)
}

// ObjectPath returns the storage path of a variant of this page.
func (k CacheKey) ObjectPath(v types.Variant) string {
	return fmt.Sprintf("%s/page_%04d_%s.jpg", k.Hash, k.Page, v)
}

// Object is one encoded variant ready for upload.
type Object struct {
	Variant     types.Variant
	Data        []byte
	ContentType string
}

// ImageStore uploads the variants of one page and returns their URLs.
// Implementations must be idempotent: uploading the same key again returns
// the same URLs without duplicating storage.
type ImageStore interface {
	UploadWithVariants(ctx context.Context, key CacheKey, objects []Object) (types.VariantSet, error)
}

// validateObjects ensures exactly the four variants are present.
func validateObjects(objects []Object) error {
	seen := make(map[types.Variant]bool, len(objects))
	for _, o := range objects {
		if len(o.Data) == 0 {
			return fmt.Errorf("variant %s is empty", o.Variant)
		}
		seen[o.Variant] = true
	}
	for _, v := range types.AllVariants {
		if !seen[v] {
			return fmt.Errorf("missing variant %s", v)
		}
	}
	return nil
}
