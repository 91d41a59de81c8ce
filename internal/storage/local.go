package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/brochure/internal/types"
)

// LocalStore writes variants under a root directory.
// URLs are BaseURL joined with the object path; BaseURL defaults to a file:// URL of Root.
type LocalStore struct {
	Root    string
	BaseURL string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	if baseURL == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve image directory: %w", err)
		}
		baseURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// UploadWithVariants writes all four variants. Existing files are left in place,
// so repeated uploads of a key are no-ops returning the same URLs.
func (s *LocalStore) UploadWithVariants(ctx context.Context, key CacheKey, objects []Object) (types.VariantSet, error) {
	if err := validateObjects(objects); err != nil {
		return types.VariantSet{}, err
	}

	for _, o := range objects {
		if err := ctx.Err(); err != nil {
			return types.VariantSet{}, err
		}
		if err := s.writeOnce(key.ObjectPath(o.Variant), o.Data); err != nil {
			return types.VariantSet{}, err
		}
	}
	return s.urls(key), nil
}

func (s *LocalStore) urls(key CacheKey) types.VariantSet {
	var set types.VariantSet
	for _, v := range types.AllVariants {
		set.Set(v, s.BaseURL+"/"+key.ObjectPath(v))
	}
	return set
}

// writeOnce writes data atomically unless the file already exists.
// Concurrent writers of the same path race only on the final rename.
func (s *LocalStore) writeOnce(objectPath string, data []byte) error {
	dst := filepath.Join(s.Root, filepath.FromSlash(objectPath))
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", objectPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", objectPath, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("failed to store %s: %w", objectPath, err)
	}
	return nil
}
