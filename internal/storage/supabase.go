package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"

	"github.com/jackzampolin/brochure/internal/types"
)

// objectClient is the subset of the Supabase storage client the store uses.
type objectClient interface {
	UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// SupabaseStore uploads variants to a Supabase storage bucket.
// Object paths are content addressed, so uploads use upsert and repeat safely.
type SupabaseStore struct {
	Bucket string
	client objectClient
	logger *slog.Logger
}

// SupabaseConfig configures a SupabaseStore.
type SupabaseConfig struct {
	URL    string
	Key    string
	Bucket string
	Logger *slog.Logger
}

// NewSupabaseStore connects to Supabase storage.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase bucket is required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("supabase storage initialized", "url", cfg.URL, "bucket", cfg.Bucket)

	return &SupabaseStore{Bucket: cfg.Bucket, client: storageAdapter{client.Storage}, logger: logger}, nil
}

// UploadWithVariants uploads all four variants and returns their public URLs.
func (s *SupabaseStore) UploadWithVariants(ctx context.Context, key CacheKey, objects []Object) (types.VariantSet, error) {
	if err := validateObjects(objects); err != nil {
		return types.VariantSet{}, err
	}

	upsert := true
	var set types.VariantSet
	for _, o := range objects {
		if err := ctx.Err(); err != nil {
			return types.VariantSet{}, err
		}
		path := key.ObjectPath(o.Variant)
		contentType := o.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		_, err := s.client.UploadFile(s.Bucket, path, bytes.NewReader(o.Data), storage_go.FileOptions{
			ContentType: &contentType,
			Upsert:      &upsert,
		})
		if err != nil {
			return types.VariantSet{}, fmt.Errorf("failed to upload %s: %w", path, err)
		}
		set.Set(o.Variant, s.client.GetPublicUrl(s.Bucket, path).SignedURL)
	}
	s.logger.Debug("uploaded page variants", "key", key.String())
	return set, nil
}

// storageAdapter narrows *storage_go.Client to objectClient.
type storageAdapter struct {
	c *storage_go.Client
}

func (a storageAdapter) UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	return a.c.UploadFile(bucketID, relativePath, data, opts...)
}

func (a storageAdapter) GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return a.c.GetPublicUrl(bucketID, filePath, opts...)
}
