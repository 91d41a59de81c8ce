package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/jackzampolin/brochure/internal/types"
)

// CacheEntry is one cached page upload.
type CacheEntry struct {
	Key       string
	Hash      string
	Page      int
	Variants  types.VariantSet
	CreatedAt time.Time
}

// Index maps (hash, page) to the URLs of an earlier upload.
type Index interface {
	// Get returns ErrNotFound when the key has no entry.
	Get(ctx context.Context, key CacheKey) (types.VariantSet, error)
	Put(ctx context.Context, key CacheKey, set types.VariantSet) error
	// List returns the entries for a content hash ordered by page.
	List(ctx context.Context, hash string) ([]CacheEntry, error)
}

// BadgerIndex persists the cache index in badgerhold.
type BadgerIndex struct {
	db *DB
}

// NewBadgerIndex creates an index on an open database.
func NewBadgerIndex(db *DB) *BadgerIndex {
	return &BadgerIndex{db: db}
}

func (i *BadgerIndex) Get(ctx context.Context, key CacheKey) (types.VariantSet, error) {
	var entry CacheEntry
	if err := i.db.Store().Get(key.String(), &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return types.VariantSet{}, ErrNotFound
		}
		return types.VariantSet{}, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return entry.Variants, nil
}

func (i *BadgerIndex) Put(ctx context.Context, key CacheKey, set types.VariantSet) error {
	if !set.Complete() {
		return fmt.Errorf("refusing to cache incomplete variant set for %s", key)
	}
	entry := CacheEntry{
		Key:       key.String(),
		Hash:      key.Hash,
		Page:      key.Page,
		Variants:  set,
		CreatedAt: time.Now(),
	}
	if err := i.db.Store().Upsert(entry.Key, &entry); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

func (i *BadgerIndex) List(ctx context.Context, hash string) ([]CacheEntry, error) {
	var entries []CacheEntry
	if err := i.db.Store().Find(&entries, badgerhold.Where("Hash").Eq(hash)); err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Page < entries[b].Page })
	return entries, nil
}

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[CacheKey]CacheEntry
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[CacheKey]CacheEntry)}
}

func (i *MemoryIndex) Get(ctx context.Context, key CacheKey) (types.VariantSet, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	entry, ok := i.entries[key]
	if !ok {
		return types.VariantSet{}, ErrNotFound
	}
	return entry.Variants, nil
}

func (i *MemoryIndex) Put(ctx context.Context, key CacheKey, set types.VariantSet) error {
	if !set.Complete() {
		return fmt.Errorf("refusing to cache incomplete variant set for %s", key)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[key] = CacheEntry{Key: key.String(), Hash: key.Hash, Page: key.Page, Variants: set, CreatedAt: time.Now()}
	return nil
}

func (i *MemoryIndex) List(ctx context.Context, hash string) ([]CacheEntry, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var entries []CacheEntry
	for k, e := range i.entries {
		if k.Hash == hash {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Page < entries[b].Page })
	return entries, nil
}

// CachedStore consults an Index before uploading and records every upload.
type CachedStore struct {
	Store ImageStore
	Index Index
}

// NewCachedStore wraps store with index.
func NewCachedStore(store ImageStore, index Index) *CachedStore {
	return &CachedStore{Store: store, Index: index}
}

// Lookup returns the cached URLs for key, or ErrNotFound.
func (c *CachedStore) Lookup(ctx context.Context, key CacheKey) (types.VariantSet, error) {
	return c.Index.Get(ctx, key)
}

// UploadWithVariants returns cached URLs when present, otherwise uploads and indexes.
func (c *CachedStore) UploadWithVariants(ctx context.Context, key CacheKey, objects []Object) (types.VariantSet, error) {
	if set, err := c.Index.Get(ctx, key); err == nil {
		return set, nil
	} else if !errors.Is(err, ErrNotFound) {
		return types.VariantSet{}, err
	}

	set, err := c.Store.UploadWithVariants(ctx, key, objects)
	if err != nil {
		return types.VariantSet{}, err
	}
	if err := c.Index.Put(ctx, key, set); err != nil {
		return types.VariantSet{}, err
	}
	return set, nil
}
